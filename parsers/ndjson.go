package parsers

import (
	"bytes"
	"io"
)

// Sink consumes serialized records. The pipeline calls WriteRecord once per record,
// in input order, and Close exactly once when the run ends.
type Sink interface {
	// WriteRecord receives one serialized record including its trailing newline.
	// The slice is owned by the sink.
	WriteRecord(line []byte) error
	// Close signals the end of the stream. runErr is nil when every record was
	// delivered, otherwise it is the error that stopped the run.
	Close(runErr error) error
}

// Handler processes one decoded record.
type Handler func(Record) error

// HandlerSink decodes each serialized record and passes it to a Handler.
// A line that fails to decode aborts the run.
type HandlerSink struct {
	handle    Handler
	delivered int
}

// NewHandlerSink returns a Sink that calls handle for every record.
func NewHandlerSink(handle Handler) *HandlerSink {
	return &HandlerSink{handle: handle}
}

// WriteRecord decodes line and calls the handler.
func (s *HandlerSink) WriteRecord(line []byte) error {
	var rec Record
	if err := rec.UnmarshalJSON(bytes.TrimSuffix(line, []byte{'\n'})); err != nil {
		return &StageError{Stage: StageDecode, Err: err}
	}
	if err := s.handle(rec); err != nil {
		return &StageError{Stage: StageHandle, Err: err}
	}
	s.delivered++
	return nil
}

// Close implements Sink.
func (s *HandlerSink) Close(runErr error) error {
	return nil
}

// Delivered returns the number of records handed to the handler.
func (s *HandlerSink) Delivered() int {
	return s.delivered
}

// WriterSink copies serialized records to an io.Writer, producing an NDJSON stream.
// If the writer can be flushed, Close flushes it after a successful run.
type WriterSink struct {
	w io.Writer
}

// NewWriterSink returns a Sink writing to w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// WriteRecord implements Sink.
func (s *WriterSink) WriteRecord(line []byte) error {
	_, err := s.w.Write(line)
	return err
}

// Close flushes the writer when it supports Flush and the run succeeded.
func (s *WriterSink) Close(runErr error) error {
	if runErr != nil {
		return nil
	}
	switch f := s.w.(type) {
	case interface{ Flush() error }:
		return f.Flush()
	case interface{ Flush() }:
		f.Flush()
	}
	return nil
}
