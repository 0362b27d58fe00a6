package parsers

import (
	"bufio"
	"bytes"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultMaxLineBytes bounds the size of a single input line (64 MiB).
const DefaultMaxLineBytes = 64 * 1024 * 1024

// LineSource produces the lines of an input stream one at a time.
// It is forward-only and cannot be restarted.
type LineSource struct {
	scanner *bufio.Scanner
	line    int
}

// NewLineSource wraps reader. The input is decoded as UTF-8: a leading byte order
// mark is dropped and invalid byte sequences become U+FFFD.
// maxLineBytes <= 0 selects DefaultMaxLineBytes.
func NewLineSource(reader io.Reader, maxLineBytes int) *LineSource {
	if maxLineBytes <= 0 {
		maxLineBytes = DefaultMaxLineBytes
	}
	decoded := transform.NewReader(reader, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	scanner := bufio.NewScanner(decoded)
	initial := 64 * 1024
	if initial > maxLineBytes {
		initial = maxLineBytes
	}
	scanner.Buffer(make([]byte, 0, initial), maxLineBytes)
	scanner.Split(scanUniversalLines)

	return &LineSource{scanner: scanner}
}

// Next returns the next line without its line break.
// It returns io.EOF once the input is exhausted.
func (s *LineSource) Next() (string, error) {
	if s.scanner.Scan() {
		s.line++
		return s.scanner.Text(), nil
	}
	if err := s.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// Line reports the 1-based number of the last line returned by Next.
func (s *LineSource) Line() int {
	return s.line
}

// scanUniversalLines is a bufio.SplitFunc that treats "\n", "\r\n" and a lone "\r"
// as a single line break. A trailing line without a break is returned if non-empty.
func scanUniversalLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
		// "\r" at the end of the buffer: need one more byte to tell CR from CRLF
		if !atEOF {
			return 0, nil, nil
		}
		return i + 1, data[:i], nil
	}

	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
