package parsers

import (
	"fmt"

	"github.com/zeebo/xxh3"
)

// FingerprintSink hashes every serialized record before passing it on.
// Two runs over byte-identical input yield the same Sum.
type FingerprintSink struct {
	next   Sink
	hasher *xxh3.Hasher
}

// NewFingerprintSink wraps next.
func NewFingerprintSink(next Sink) *FingerprintSink {
	return &FingerprintSink{next: next, hasher: xxh3.New()}
}

// WriteRecord implements Sink.
func (s *FingerprintSink) WriteRecord(line []byte) error {
	_, _ = s.hasher.Write(line)
	return s.next.WriteRecord(line)
}

// Close implements Sink.
func (s *FingerprintSink) Close(runErr error) error {
	return s.next.Close(runErr)
}

// Sum returns the xxh3 hash of everything written so far.
func (s *FingerprintSink) Sum() uint64 {
	return s.hasher.Sum64()
}

// Hex returns Sum as 16 hex digits.
func (s *FingerprintSink) Hex() string {
	return fmt.Sprintf("%016x", s.Sum())
}
