package parsers

import "strings"

const quote = '"'

// Tokenize splits line into fields on delimiter.
//
// The automaton keeps a field buffer and a quote counter. For every character:
// anything that is neither the delimiter nor a quote is appended to the buffer;
// while a quote is open nothing is emitted; a second quote closes the field and
// emits the buffer as-is; otherwise a non-empty buffer is emitted at a delimiter
// or at the last character of the line.
//
// Known limitations kept on purpose:
//   - a delimiter inside quotes is dropped from the value, so `"a,b",c` yields ["ab", "c"]
//   - empty fields are never emitted, so `a,,b` yields ["a", "b"] and `,b` yields ["b"]
//   - a doubled quote is not an escape
func Tokenize(line string, delimiter rune) []string {
	fields := make([]string, 0, 8)

	var buf strings.Builder
	quotes := 0

	runes := []rune(line)
	last := len(runes) - 1

	for i, c := range runes {
		if c != delimiter && c != quote {
			buf.WriteRune(c)
		}

		if c == quote {
			quotes++
		}

		// inside an open quote
		if quotes == 1 && c != quote {
			continue
		}

		if quotes == 2 {
			fields = append(fields, buf.String())
			quotes = 0
			buf.Reset()
			continue
		}

		if buf.Len() > 0 && (c == delimiter || i == last) {
			fields = append(fields, buf.String())
			buf.Reset()
		}
	}

	return fields
}

// Tokenizer is the Stage form of Tokenize.
type Tokenizer struct {
	Delimiter rune
}

// Process tokenizes one line and emits its fields.
func (t Tokenizer) Process(line string, emit func([]string) error) error {
	return emit(Tokenize(line, t.Delimiter))
}
