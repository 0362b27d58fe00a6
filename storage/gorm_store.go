package storage

import (
	"context"

	"gorm.io/gorm"
)

// GormStore keeps records in the converted_records table
type GormStore struct {
	db        *gorm.DB
	batchSize int
}

// NewGormStore migrates the records table and returns a store
func NewGormStore(db *gorm.DB, batchSize int) (*GormStore, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if err := db.AutoMigrate(&ConvertedRecord{}); err != nil {
		return nil, err
	}
	return &GormStore{db: db, batchSize: batchSize}, nil
}

// Writer implements RecordStore
func (s *GormStore) Writer(jobID string) RecordWriter {
	return &gormWriter{store: s, jobID: jobID, batch: make([]ConvertedRecord, 0, s.batchSize)}
}

// Stream implements RecordStore, reading BatchSize rows per query
func (s *GormStore) Stream(ctx context.Context, jobID string, fn func(row int, line []byte) error) error {
	offset := 0
	for {
		var records []ConvertedRecord
		result := s.db.WithContext(ctx).
			Select("row_number", "data").
			Where("job_id = ?", jobID).
			Order("row_number").
			Limit(s.batchSize).Offset(offset).
			Find(&records)
		if result.Error != nil {
			return result.Error
		}

		for _, rec := range records {
			if err := fn(rec.RowNumber, []byte(rec.Data)); err != nil {
				return err
			}
		}

		if len(records) < s.batchSize {
			return nil
		}
		offset += s.batchSize
	}
}

// Count implements RecordStore
func (s *GormStore) Count(ctx context.Context, jobID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&ConvertedRecord{}).Where("job_id = ?", jobID).Count(&n).Error
	return n, err
}

// Delete implements RecordStore
func (s *GormStore) Delete(ctx context.Context, jobID string) error {
	return s.db.WithContext(ctx).Where("job_id = ?", jobID).Delete(&ConvertedRecord{}).Error
}

// Close is a no-op, the connection belongs to the caller
func (s *GormStore) Close() error {
	return nil
}

type gormWriter struct {
	store *GormStore
	jobID string
	batch []ConvertedRecord
}

func (w *gormWriter) Write(ctx context.Context, row int, line []byte) error {
	w.batch = append(w.batch, ConvertedRecord{JobID: w.jobID, RowNumber: row, Data: string(line)})
	if len(w.batch) >= w.store.batchSize {
		return w.Flush(ctx)
	}
	return nil
}

func (w *gormWriter) Flush(ctx context.Context) error {
	if len(w.batch) == 0 {
		return nil
	}
	err := w.store.db.WithContext(ctx).CreateInBatches(w.batch, w.store.batchSize).Error
	w.batch = w.batch[:0]
	return err
}
