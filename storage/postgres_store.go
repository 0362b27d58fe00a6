package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultBatchSize is the number of records sent per insert or COPY
const DefaultBatchSize = 2000

var recordColumns = []string{"job_id", "row_number", "data"}

// CopyFn abstracts the COPY operation. In production it calls pgx's CopyFrom;
// tests pass a fake to check batching.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// PostgresStore loads records into a Postgres table with COPY
type PostgresStore struct {
	pool      *pgxpool.Pool
	table     string
	batchSize int
	copyFn    CopyFn
}

// NewPostgresStore connects to dsn and creates the records table if needed
func NewPostgresStore(ctx context.Context, dsn string, batchSize int) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := newPostgresStore(pool, "converted_records", batchSize)
	if err := s.ensureTable(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func newPostgresStore(pool *pgxpool.Pool, table string, batchSize int) *PostgresStore {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	s := &PostgresStore{pool: pool, table: table, batchSize: batchSize}
	s.copyFn = func(ctx context.Context, columns []string, rows [][]any) (int64, error) {
		return s.pool.CopyFrom(ctx, pgx.Identifier{s.table}, columns, pgx.CopyFromRows(rows))
	}
	return s
}

func (s *PostgresStore) ensureTable(ctx context.Context) error {
	ident := pgx.Identifier{s.table}.Sanitize()
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		job_id     text    NOT NULL,
		row_number integer NOT NULL,
		data       text    NOT NULL,
		PRIMARY KEY (job_id, row_number)
	)`, ident)
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create %s: %w", s.table, err)
	}
	return nil
}

// Writer implements RecordStore
func (s *PostgresStore) Writer(jobID string) RecordWriter {
	return newCopyWriter(jobID, s.batchSize, s.copyFn)
}

// Stream implements RecordStore
func (s *PostgresStore) Stream(ctx context.Context, jobID string, fn func(row int, line []byte) error) error {
	q := fmt.Sprintf("SELECT row_number, data FROM %s WHERE job_id = $1 ORDER BY row_number", pgx.Identifier{s.table}.Sanitize())
	rows, err := s.pool.Query(ctx, q, jobID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var row int
		var data string
		if err := rows.Scan(&row, &data); err != nil {
			return err
		}
		if err := fn(row, []byte(data)); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Count implements RecordStore
func (s *PostgresStore) Count(ctx context.Context, jobID string) (int64, error) {
	q := fmt.Sprintf("SELECT count(*) FROM %s WHERE job_id = $1", pgx.Identifier{s.table}.Sanitize())
	var n int64
	err := s.pool.QueryRow(ctx, q, jobID).Scan(&n)
	return n, err
}

// Delete implements RecordStore
func (s *PostgresStore) Delete(ctx context.Context, jobID string) error {
	q := fmt.Sprintf("DELETE FROM %s WHERE job_id = $1", pgx.Identifier{s.table}.Sanitize())
	_, err := s.pool.Exec(ctx, q, jobID)
	return err
}

// Close releases the pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// copyWriter groups rows into batches of batchSize and hands each one to copyFn.
// It never holds more than one batch.
type copyWriter struct {
	jobID     string
	batchSize int
	copyFn    CopyFn
	batch     [][]any
	copied    int64
}

func newCopyWriter(jobID string, batchSize int, copyFn CopyFn) *copyWriter {
	return &copyWriter{
		jobID:     jobID,
		batchSize: batchSize,
		copyFn:    copyFn,
		batch:     make([][]any, 0, batchSize),
	}
}

func (w *copyWriter) Write(ctx context.Context, row int, line []byte) error {
	w.batch = append(w.batch, []any{w.jobID, row, string(line)})
	if len(w.batch) >= w.batchSize {
		return w.Flush(ctx)
	}
	return nil
}

func (w *copyWriter) Flush(ctx context.Context) error {
	if len(w.batch) == 0 {
		return nil
	}
	n, err := w.copyFn(ctx, recordColumns, w.batch)
	w.copied += n
	// reuse backing array
	w.batch = w.batch[:0]
	if err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	return nil
}
