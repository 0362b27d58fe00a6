// Package parsers provides the streaming delimited-text to NDJSON conversion pipeline.
//
// The pipeline is designed for memory-efficient processing of large files: lines are
// pulled from the input one at a time, tokenized, mapped onto the header row and
// serialized, so no stage ever holds more than one line or record.
//
// The stages, in order:
//   - LineSource splits an io.Reader into lines (LF, CRLF or CR)
//   - Tokenize splits one line into fields with a quote-aware automaton
//   - RecordBuilder turns the first line into the header and every other line into a Record
//   - Serializer encodes a Record as one JSON line
//   - a Sink consumes serialized lines (HandlerSink decodes them and calls a Handler)
//
// Example usage:
//
//	file, _ := os.Open("data.csv")
//	defer file.Close()
//
//	p, err := parsers.New(parsers.Options{Delimiter: ','})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	sink := parsers.NewHandlerSink(func(rec parsers.Record) error {
//	    fmt.Println(rec)
//	    return nil
//	})
//	stats, err := p.Run(ctx, file, sink)
//
// Tokenization is not RFC 4180: a delimiter inside a quoted field is dropped
// rather than kept, empty fields are not emitted, and doubled quotes are not an escape.
package parsers
