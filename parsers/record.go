package parsers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Header is the ordered set of column names taken from the first line.
// It is immutable once built; records are shallow clones of it.
type Header struct {
	keys []string
}

// NewHeader builds a header from the fields of the first line.
// A repeated column name keeps the position of its first occurrence.
func NewHeader(fields []string) *Header {
	seen := make(map[string]struct{}, len(fields))
	keys := make([]string, 0, len(fields))
	for _, name := range fields {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		keys = append(keys, name)
	}
	return &Header{keys: keys}
}

// Keys returns a copy of the column names in header order.
func (h *Header) Keys() []string {
	return append([]string(nil), h.keys...)
}

// Len returns the number of distinct columns.
func (h *Header) Len() int {
	return len(h.keys)
}

// NewRecord clones the header and fills values by position: the i-th field goes
// to the i-th column. Missing trailing values stay null and extra fields are dropped.
func (h *Header) NewRecord(fields []string) Record {
	values := make([]*string, len(h.keys))
	for i := 0; i < len(fields) && i < len(values); i++ {
		v := fields[i]
		values[i] = &v
	}
	return Record{keys: h.keys, values: values}
}

// Record is one data row keyed by column name. Key order follows the header.
// A nil value is JSON null.
type Record struct {
	keys   []string
	values []*string
}

// Keys returns the column names in order.
func (r Record) Keys() []string {
	return append([]string(nil), r.keys...)
}

// Len returns the number of columns.
func (r Record) Len() int {
	return len(r.keys)
}

// Get returns the value of key. ok is false when the key is absent or the value is null.
func (r Record) Get(key string) (value string, ok bool) {
	for i, k := range r.keys {
		if k == key {
			if r.values[i] == nil {
				return "", false
			}
			return *r.values[i], true
		}
	}
	return "", false
}

// Has reports whether key is a column of the record, null or not.
func (r Record) Has(key string) bool {
	for _, k := range r.keys {
		if k == key {
			return true
		}
	}
	return false
}

// Map returns the record as a map, with nil for null values.
func (r Record) Map() map[string]any {
	m := make(map[string]any, len(r.keys))
	for i, k := range r.keys {
		if r.values[i] == nil {
			m[k] = nil
		} else {
			m[k] = *r.values[i]
		}
	}
	return m
}

// String renders the record as its JSON text.
func (r Record) String() string {
	b, err := r.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("%%!Record(%v)", err)
	}
	return string(b)
}

// MarshalJSON encodes the record as a JSON object in header order.
func (r Record) MarshalJSON() ([]byte, error) {
	return NewSerializer().AppendRecord(nil, r)
}

// UnmarshalJSON decodes a flat JSON object of string or null values, keeping key order.
// A repeated key overwrites the earlier value in place.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("record must be a JSON object")
	}

	var keys []string
	var values []*string
	index := make(map[string]int)

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v", tok)
		}

		tok, err = dec.Token()
		if err != nil {
			return err
		}
		var value *string
		switch v := tok.(type) {
		case string:
			value = &v
		case nil:
		default:
			return fmt.Errorf("value of %q must be a string or null, got %T", key, tok)
		}

		if i, ok := index[key]; ok {
			values[i] = value
			continue
		}
		index[key] = len(keys)
		keys = append(keys, key)
		values = append(values, value)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("unexpected data after record")
	}

	r.keys = keys
	r.values = values
	return nil
}

// Equal reports whether two records have the same keys, order and values.
func (r Record) Equal(other Record) bool {
	if len(r.keys) != len(other.keys) {
		return false
	}
	for i := range r.keys {
		if r.keys[i] != other.keys[i] {
			return false
		}
		a, b := r.values[i], other.values[i]
		if (a == nil) != (b == nil) {
			return false
		}
		if a != nil && *a != *b {
			return false
		}
	}
	return true
}

