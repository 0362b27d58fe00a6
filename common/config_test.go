package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, name := range []string{"PORT", "RECORD_STORE", "BATCH_SIZE", "AUTH_REQUIRED", "DEFAULT_DELIMITER"} {
		t.Setenv(name, "")
	}

	cfg := LoadConfig()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite", cfg.RecordStore)
	assert.Equal(t, 2000, cfg.BatchSize)
	assert.False(t, cfg.AuthRequired)
	assert.Equal(t, ",", cfg.DefaultDelimiter)
	assert.Equal(t, UploadsDir, cfg.UploadsDir)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("RECORD_STORE", "Postgres")
	t.Setenv("BATCH_SIZE", "500")
	t.Setenv("AUTH_REQUIRED", "yes")
	t.Setenv("MAX_LINE_BYTES", "not-a-number")

	cfg := LoadConfig()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "postgres", cfg.RecordStore)
	assert.Equal(t, 500, cfg.BatchSize)
	assert.True(t, cfg.AuthRequired)
	assert.Greater(t, cfg.MaxLineBytes, 0)
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{DefaultDelimiter: ",", RecordStore: "sqlite"}
	assert.True(t, valid.Validate().Valid)

	tests := []struct {
		name  string
		cfg   Config
		field string
	}{
		{"delimiter", Config{DefaultDelimiter: `"`, RecordStore: "sqlite"}, "DEFAULT_DELIMITER"},
		{"store", Config{DefaultDelimiter: ",", RecordStore: "mysql"}, "RECORD_STORE"},
		{"dsn", Config{DefaultDelimiter: ",", RecordStore: "postgres"}, "POSTGRES_DSN"},
		{"secret", Config{DefaultDelimiter: ",", RecordStore: "sqlite", AuthRequired: true}, "JWT_SECRET"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.cfg.Validate()
			assert.False(t, result.Valid)
			if assert.Len(t, result.Errors, 1) {
				assert.Equal(t, tt.field, result.Errors[0].Field)
			}
			assert.Contains(t, result.ToJSON(), tt.field)
		})
	}
}
