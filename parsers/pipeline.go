package parsers

import (
	"context"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
)

// Stage accepts one input unit and emits zero or more output units.
// An error returned by emit must be returned unchanged.
type Stage[In, Out any] interface {
	Process(in In, emit func(Out) error) error
}

// StageFunc adapts a function to a Stage.
type StageFunc[In, Out any] func(in In, emit func(Out) error) error

// Process calls f.
func (f StageFunc[In, Out]) Process(in In, emit func(Out) error) error {
	return f(in, emit)
}

// Then composes two stages: every output of first is fed to second.
func Then[A, B, C any](first Stage[A, B], second Stage[B, C]) Stage[A, C] {
	return StageFunc[A, C](func(in A, emit func(C) error) error {
		return first.Process(in, func(mid B) error {
			return second.Process(mid, emit)
		})
	})
}

// Options configures a Pipeline.
type Options struct {
	// Delimiter separates fields within a line.
	Delimiter rune
	// MaxLineBytes bounds a single input line. Zero selects DefaultMaxLineBytes.
	MaxLineBytes int
}

// Stats summarizes a finished run.
type Stats struct {
	// Lines is the number of input lines read, header included.
	Lines int
	// Records is the number of records accepted by the sink.
	Records int
}

// Pipeline converts delimited text into NDJSON records.
// A Pipeline holds only configuration; every run gets fresh stage state, so one
// Pipeline can serve concurrent runs.
type Pipeline struct {
	opts Options
}

// New validates opts and returns a Pipeline.
func New(opts Options) (*Pipeline, error) {
	if err := ValidateDelimiter(opts.Delimiter); err != nil {
		return nil, err
	}
	return &Pipeline{opts: opts}, nil
}

// ValidateDelimiter rejects delimiters that can never split a field.
func ValidateDelimiter(d rune) error {
	switch {
	case d == 0:
		return fmt.Errorf("%w: empty", ErrInvalidDelimiter)
	case d == quote, d == '\r', d == '\n':
		return fmt.Errorf("%w: %q", ErrInvalidDelimiter, d)
	case d == utf8.RuneError || !utf8.ValidRune(d):
		return fmt.Errorf("%w: not a valid character", ErrInvalidDelimiter)
	}
	return nil
}

// Delimiter returns the configured delimiter.
func (p *Pipeline) Delimiter() rune {
	return p.opts.Delimiter
}

// lineStage builds the per-run chain line -> fields -> record -> JSON line.
func (p *Pipeline) lineStage() Stage[string, []byte] {
	return Then(
		Then[string, []string, Record](Tokenizer{Delimiter: p.opts.Delimiter}, NewRecordBuilder()),
		Stage[Record, []byte](NewSerializer()),
	)
}

// Convert runs the pipeline synchronously in the calling goroutine: a line is read
// only after the previous record has been accepted by the sink.
// sink.Close is always called with the outcome of the run.
func (p *Pipeline) Convert(ctx context.Context, reader io.Reader, sink Sink) (Stats, error) {
	var stats Stats
	err := p.convert(ctx, reader, sink, &stats)
	return stats, closeSink(sink, err)
}

func (p *Pipeline) convert(ctx context.Context, reader io.Reader, sink Sink, stats *Stats) error {
	src := NewLineSource(reader, p.opts.MaxLineBytes)
	stage := p.lineStage()

	for {
		if err := ctx.Err(); err != nil {
			return wrapStage(StageRead, src.Line()+1, err)
		}

		line, err := src.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return wrapStage(StageRead, src.Line()+1, err)
		}
		stats.Lines++

		n := src.Line()
		err = stage.Process(line, func(out []byte) error {
			if err := sink.WriteRecord(out); err != nil {
				return wrapStage(StageSink, n, err)
			}
			stats.Records++
			return nil
		})
		if err != nil {
			return wrapStage(StageSink, n, err)
		}
	}
}

type numberedLine struct {
	n    int
	text string
}

type numberedRecord struct {
	n    int
	line []byte
}

// Run executes the pipeline as three goroutines (read, transform, deliver) joined by
// channels of depth 1, so each stage runs at most one unit ahead of the next.
// Records reach the sink in input order. The first failure cancels the other stages
// and is returned; sink.Close is always called with the outcome of the run.
func (p *Pipeline) Run(ctx context.Context, reader io.Reader, sink Sink) (Stats, error) {
	var stats Stats

	g, ctx := errgroup.WithContext(ctx)
	lines := make(chan numberedLine, 1)
	records := make(chan numberedRecord, 1)

	// read
	g.Go(func() error {
		defer close(lines)
		src := NewLineSource(reader, p.opts.MaxLineBytes)
		for {
			text, err := src.Next()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return wrapStage(StageRead, src.Line()+1, err)
			}
			stats.Lines++

			select {
			case lines <- numberedLine{n: src.Line(), text: text}:
			case <-ctx.Done():
				return wrapStage(StageRead, src.Line(), ctx.Err())
			}
		}
	})

	// tokenize, build, serialize
	g.Go(func() error {
		defer close(records)
		stage := p.lineStage()
		for l := range lines {
			err := stage.Process(l.text, func(out []byte) error {
				select {
				case records <- numberedRecord{n: l.n, line: out}:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			})
			if err != nil {
				return wrapStage(StageSerialize, l.n, err)
			}
		}
		return nil
	})

	// deliver
	g.Go(func() error {
		for rec := range records {
			if err := sink.WriteRecord(rec.line); err != nil {
				return wrapStage(StageSink, rec.n, err)
			}
			stats.Records++
		}
		return nil
	})

	err := g.Wait()
	return stats, closeSink(sink, err)
}

func closeSink(sink Sink, runErr error) error {
	if err := sink.Close(runErr); err != nil && runErr == nil {
		return wrapStage(StageSink, 0, err)
	}
	return runErr
}
