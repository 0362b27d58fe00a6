package common

import (
	"time"

	"gorm.io/gorm"
)

// ConversionJob tracks one asynchronous conversion of an uploaded file
type ConversionJob struct {
	ID             string     `gorm:"primaryKey;type:text" json:"id"`
	IdempotencyKey string     `gorm:"uniqueIndex;not null" json:"idempotency_key"`
	SourceName     string     `gorm:"not null" json:"source_name"`
	Delimiter      string     `gorm:"not null" json:"delimiter"`
	Status         string     `gorm:"not null" json:"status"` // pending, processing, completed, failed
	FilePath       string     `json:"file_path,omitempty"`
	LinesRead      int        `gorm:"default:0" json:"lines_read"`
	TotalRecords   int        `gorm:"default:0" json:"total_records"`
	Checksum       string     `json:"checksum,omitempty"` // xxh3 of the NDJSON output
	DurationMs     int64      `gorm:"default:0" json:"duration_ms"`
	Error          string     `gorm:"type:text" json:"error,omitempty"`
	CreatedAt      time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"not null" json:"updated_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// ApiMetric tracks API performance metrics
type ApiMetric struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Endpoint      string    `gorm:"not null" json:"endpoint"`
	Method        string    `gorm:"not null" json:"method"`
	StatusCode    int       `gorm:"not null" json:"status_code"`
	DurationMs    int       `gorm:"not null" json:"duration_ms"`
	RowsProcessed int       `gorm:"default:0" json:"rows_processed"`
	Errors        string    `gorm:"type:text" json:"errors,omitempty"` // JSON errors
	Timestamp     time.Time `gorm:"not null" json:"timestamp"`
}

func (ConversionJob) TableName() string { return "conversion_jobs" }
func (ApiMetric) TableName() string     { return "api_metrics" }

// AutoMigrateJobs creates job tracking tables
func AutoMigrateJobs(db *gorm.DB) error {
	return db.AutoMigrate(&ConversionJob{}, &ApiMetric{})
}
