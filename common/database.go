package common

import (
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	// UploadsDir is where uploaded source files are kept until converted
	UploadsDir = "./uploads"

	// ExportsDir is where NDJSON exports are written
	ExportsDir = "./exports"
)

// Job statuses
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

var DB *gorm.DB

// Init opens the sqlite database at path and keeps it as the shared connection
func Init(path string) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatal("db err: (Init) ", err)
	}

	sqlDB, err := db.DB()
	if err == nil {
		// sqlite allows a single writer
		sqlDB.SetMaxOpenConns(1)
	}

	DB = db
	return DB
}

// TestDBInit opens a private in-memory database for tests
func TestDBInit() *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatal("db err: (TestDBInit) ", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	DB = db
	return DB
}

// TestDBFree closes the test database
func TestDBFree(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetDB returns the shared connection
func GetDB() *gorm.DB {
	return DB
}
