// Package storage persists the serialized records of conversion jobs.
//
// Two backends implement RecordStore: GormStore keeps records in the service's
// sqlite database, PostgresStore loads them into Postgres with batched COPY.
// Both buffer at most one batch per job.
package storage

import (
	"bytes"
	"context"
	"fmt"
)

// ConvertedRecord is one serialized record of a job, as stored by GormStore
type ConvertedRecord struct {
	ID        uint   `gorm:"primaryKey" json:"-"`
	JobID     string `gorm:"not null;index:idx_converted_records_job_row,priority:1" json:"job_id"`
	RowNumber int    `gorm:"not null;index:idx_converted_records_job_row,priority:2" json:"row_number"`
	Data      string `gorm:"type:text;not null" json:"data"`
}

func (ConvertedRecord) TableName() string { return "converted_records" }

// RecordStore persists and replays the NDJSON output of conversion jobs
type RecordStore interface {
	// Writer returns a buffered writer for one job's records.
	Writer(jobID string) RecordWriter
	// Stream calls fn for every stored record of jobID in row order.
	Stream(ctx context.Context, jobID string, fn func(row int, line []byte) error) error
	// Count returns the number of stored records of jobID.
	Count(ctx context.Context, jobID string) (int64, error)
	// Delete removes every stored record of jobID.
	Delete(ctx context.Context, jobID string) error
	Close() error
}

// RecordWriter buffers records of a single job
type RecordWriter interface {
	Write(ctx context.Context, row int, line []byte) error
	Flush(ctx context.Context) error
}

// StoreSink adapts a RecordWriter to parsers.Sink. Records are numbered from 1
// in delivery order.
type StoreSink struct {
	ctx     context.Context
	writer  RecordWriter
	written int
}

// NewStoreSink returns a sink writing into store for jobID
func NewStoreSink(ctx context.Context, store RecordStore, jobID string) *StoreSink {
	return &StoreSink{ctx: ctx, writer: store.Writer(jobID)}
}

// WriteRecord implements parsers.Sink
func (s *StoreSink) WriteRecord(line []byte) error {
	row := s.written + 1
	if err := s.writer.Write(s.ctx, row, bytes.TrimSuffix(line, []byte{'\n'})); err != nil {
		return fmt.Errorf("store record %d: %w", row, err)
	}
	s.written = row
	return nil
}

// Close flushes the pending batch when the run succeeded. After a failed run
// the pending batch is discarded.
func (s *StoreSink) Close(runErr error) error {
	if runErr != nil {
		return nil
	}
	return s.writer.Flush(s.ctx)
}

// Written returns the number of records accepted so far
func (s *StoreSink) Written() int {
	return s.written
}

var active RecordStore

// Init sets the store shared by the HTTP handlers and background jobs
func Init(store RecordStore) RecordStore {
	active = store
	return active
}

// GetStore returns the shared store
func GetStore() RecordStore {
	return active
}
