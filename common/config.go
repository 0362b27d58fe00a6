package common

import (
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"csv-json-stream/parsers"
)

// Config holds the runtime settings, read from the environment
type Config struct {
	Port             string
	DatabasePath     string
	UploadsDir       string
	ExportsDir       string
	JWTSecret        string
	AuthRequired     bool
	DefaultDelimiter string
	MaxLineBytes     int
	RecordStore      string // sqlite or postgres
	PostgresDSN      string
	BatchSize        int
}

// LoadConfig reads Config from environment variables, falling back to defaults
func LoadConfig() Config {
	return Config{
		Port:             envString("PORT", "8080"),
		DatabasePath:     envString("DATABASE_PATH", "./csvjson.db"),
		UploadsDir:       envString("UPLOADS_DIR", UploadsDir),
		ExportsDir:       envString("EXPORTS_DIR", ExportsDir),
		JWTSecret:        envString("JWT_SECRET", ""),
		AuthRequired:     envBool("AUTH_REQUIRED", false),
		DefaultDelimiter: envString("DEFAULT_DELIMITER", ","),
		MaxLineBytes:     envInt("MAX_LINE_BYTES", parsers.DefaultMaxLineBytes),
		RecordStore:      strings.ToLower(envString("RECORD_STORE", "sqlite")),
		PostgresDSN:      envString("POSTGRES_DSN", ""),
		BatchSize:        envInt("BATCH_SIZE", 2000),
	}
}

// RecordStores lists the supported RECORD_STORE values
var RecordStores = []string{"sqlite", "postgres"}

// Validate checks the settings the service cannot start without
func (c Config) Validate() *ValidationResult {
	result := NewValidationResult()
	if _, err := ValidateDelimiter(c.DefaultDelimiter); err != nil {
		result.AddError("DEFAULT_DELIMITER", err.Message)
	}
	if err := ValidateEnum("RECORD_STORE", c.RecordStore, RecordStores); err != nil {
		result.Add(err)
	} else if c.RecordStore == "postgres" {
		result.Add(ValidateRequired("POSTGRES_DSN", c.PostgresDSN))
	}
	if c.AuthRequired {
		result.Add(ValidateRequired("JWT_SECRET", c.JWTSecret))
	}
	return result
}

// ValidateDelimiter parses a user supplied delimiter. It must be exactly one character
func ValidateDelimiter(value string) (rune, *ValidationError) {
	if utf8.RuneCountInString(value) != 1 {
		return 0, &ValidationError{
			Field:   "delimiter",
			Message: "delimiter must be exactly one character",
		}
	}
	d, _ := utf8.DecodeRuneInString(value)
	if err := parsers.ValidateDelimiter(d); err != nil {
		return 0, &ValidationError{
			Field:   "delimiter",
			Message: err.Error(),
		}
	}
	return d, nil
}

func envString(name, def string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return def
}

func envInt(name string, def int) int {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envBool(name string, def bool) bool {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return def
}
