package parsers

import (
	"bytes"

	"github.com/goccy/go-json"
)

// Serializer encodes records as newline-delimited JSON.
// It reuses an internal buffer and is not safe for concurrent use.
type Serializer struct {
	scratch bytes.Buffer
	enc     *json.Encoder
}

// NewSerializer returns a Serializer. HTML characters are written as-is.
func NewSerializer() *Serializer {
	s := &Serializer{}
	s.enc = json.NewEncoder(&s.scratch)
	s.enc.SetEscapeHTML(false)
	return s
}

// AppendRecord appends the JSON object for rec to dst, without a trailing newline.
func (s *Serializer) AppendRecord(dst []byte, rec Record) ([]byte, error) {
	var err error
	dst = append(dst, '{')
	for i, key := range rec.keys {
		if i > 0 {
			dst = append(dst, ',')
		}
		if dst, err = s.appendString(dst, key); err != nil {
			return nil, err
		}
		dst = append(dst, ':')
		if rec.values[i] == nil {
			dst = append(dst, "null"...)
			continue
		}
		if dst, err = s.appendString(dst, *rec.values[i]); err != nil {
			return nil, err
		}
	}
	return append(dst, '}'), nil
}

// Serialize returns the serialized record: the JSON object followed by "\n".
func (s *Serializer) Serialize(rec Record) ([]byte, error) {
	line, err := s.AppendRecord(make([]byte, 0, 64), rec)
	if err != nil {
		return nil, err
	}
	return append(line, '\n'), nil
}

// Process is the Stage form of Serialize. Every emitted slice is freshly allocated.
func (s *Serializer) Process(rec Record, emit func([]byte) error) error {
	line, err := s.Serialize(rec)
	if err != nil {
		return &StageError{Stage: StageSerialize, Err: err}
	}
	return emit(line)
}

func (s *Serializer) appendString(dst []byte, v string) ([]byte, error) {
	s.scratch.Reset()
	if err := s.enc.Encode(v); err != nil {
		return nil, err
	}
	// Encode terminates every value with a newline
	return append(dst, bytes.TrimSuffix(s.scratch.Bytes(), []byte{'\n'})...), nil
}
