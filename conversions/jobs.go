package conversions

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"csv-json-stream/common"
	"csv-json-stream/parsers"
	"csv-json-stream/storage"
)

// ProgressUpdateFrequency controls how often job progress is saved (every N records)
const ProgressUpdateFrequency = 1000

var errNoRecordStore = errors.New("no record store configured")

// conversionResult is the outcome of one pipeline run over a job's file
type conversionResult struct {
	stats    parsers.Stats
	checksum string
}

// ProcessConversionJob converts the job's file in the background
func ProcessConversionJob(jobID string) {
	processConversionJob(context.Background(), jobID)
}

func processConversionJob(ctx context.Context, jobID string) {
	db := common.GetDB()

	var job common.ConversionJob
	if err := db.Where("id = ?", jobID).First(&job).Error; err != nil {
		log.Printf("conversion job %s: %v", jobID, err)
		return
	}

	job.Status = common.JobStatusProcessing
	job.UpdatedAt = time.Now()
	db.Save(&job)

	start := time.Now()
	result, err := runConversion(ctx, &job)
	elapsed := time.Since(start)

	now := time.Now()
	job.LinesRead = result.stats.Lines
	job.TotalRecords = result.stats.Records
	job.DurationMs = elapsed.Milliseconds()
	job.CompletedAt = &now
	job.UpdatedAt = now

	if err != nil {
		log.Printf("conversion job %s failed after %s: %v", job.ID, elapsed, err)
		job.Status = common.JobStatusFailed
		job.Error = err.Error()
	} else {
		log.Printf("Pipeline finished in %s (%d records)", elapsed, result.stats.Records)
		job.Status = common.JobStatusCompleted
		job.Checksum = result.checksum
	}

	db.Save(&job)
}

// runConversion streams the job's file through the pipeline into the record store.
// Stored records of a failed run are deleted.
func runConversion(ctx context.Context, job *common.ConversionJob) (conversionResult, error) {
	var result conversionResult

	delimiter, verr := common.ValidateDelimiter(job.Delimiter)
	if verr != nil {
		return result, verr
	}
	pipeline, err := parsers.New(parsers.Options{
		Delimiter:    delimiter,
		MaxLineBytes: settings.MaxLineBytes,
	})
	if err != nil {
		return result, err
	}

	store := storage.GetStore()
	if store == nil {
		return result, errNoRecordStore
	}

	file, err := os.Open(job.FilePath)
	if err != nil {
		return result, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	sink := parsers.NewFingerprintSink(&progressSink{
		next:  storage.NewStoreSink(ctx, store, job.ID),
		jobID: job.ID,
		every: ProgressUpdateFrequency,
	})

	result.stats, err = pipeline.Run(ctx, file, sink)
	if err != nil {
		if derr := store.Delete(ctx, job.ID); derr != nil {
			log.Printf("conversion job %s: failed to discard records: %v", job.ID, derr)
		}
		return result, err
	}

	result.checksum = sink.Hex()
	return result, nil
}

// progressSink saves the delivered record count on the job row every few records
type progressSink struct {
	next      parsers.Sink
	jobID     string
	every     int
	delivered int
}

func (s *progressSink) WriteRecord(line []byte) error {
	if err := s.next.WriteRecord(line); err != nil {
		return err
	}
	s.delivered++
	if s.every > 0 && s.delivered%s.every == 0 {
		common.GetDB().Model(&common.ConversionJob{}).Where("id = ?", s.jobID).Updates(map[string]interface{}{
			"total_records": s.delivered,
			"updated_at":    time.Now(),
		})
	}
	return nil
}

func (s *progressSink) Close(runErr error) error {
	return s.next.Close(runErr)
}
