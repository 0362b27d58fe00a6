// Command csvjson converts delimited text files to NDJSON.
//
//	csvjson [-d ,] [-pick N] [-color auto|always|never] [-out records|ndjson] FILE...
//
// The N-th file (1-based) of the list is converted. With -out records every record
// is decoded and printed; with -out ndjson the raw NDJSON stream is written.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"csv-json-stream/common"
	"csv-json-stream/parsers"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

type options struct {
	delimiter    string
	pick         int
	color        string
	out          string
	maxLineBytes int
	files        []string
}

func main() {
	opts, err := parseArgs(os.Args[1:], common.LoadConfig())
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatal(err)
	}

	var colors *colorizer
	switch opts.color {
	case "always":
		colors = &defaultColorizer
	case "auto":
		if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
			colors = &defaultColorizer
		}
	}

	var stdout io.Writer = os.Stdout
	if colors != nil {
		stdout = colorable.NewColorableStdout()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, stdout, colors); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

func parseArgs(args []string, cfg common.Config) (options, error) {
	opts := options{maxLineBytes: cfg.MaxLineBytes}

	fs := flag.NewFlagSet("csvjson", flag.ContinueOnError)
	fs.StringVar(&opts.delimiter, "d", cfg.DefaultDelimiter, "field delimiter, one character")
	fs.IntVar(&opts.pick, "pick", 1, "convert the N-th file of the list")
	fs.StringVar(&opts.color, "color", "auto", "colorize records: auto, always, never")
	fs.StringVar(&opts.out, "out", "records", "output: records, ndjson")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	opts.files = fs.Args()

	switch {
	case len(opts.files) == 0:
		return opts, errors.New("no input files")
	case opts.pick < 1 || opts.pick > len(opts.files):
		return opts, fmt.Errorf("invalid -pick value %d: %d file(s) given", opts.pick, len(opts.files))
	}
	if err := common.ValidateEnum("color", opts.color, []string{"auto", "always", "never"}); err != nil {
		return opts, err
	}
	if err := common.ValidateEnum("out", opts.out, []string{"records", "ndjson"}); err != nil {
		return opts, err
	}
	return opts, nil
}

func run(ctx context.Context, opts options, stdout io.Writer, colors *colorizer) error {
	delimiter, verr := common.ValidateDelimiter(opts.delimiter)
	if verr != nil {
		return verr
	}
	pipeline, err := parsers.New(parsers.Options{Delimiter: delimiter, MaxLineBytes: opts.maxLineBytes})
	if err != nil {
		return err
	}

	name := opts.files[opts.pick-1]
	file, err := os.Open(name)
	if err != nil {
		return err
	}
	defer file.Close()

	out := bufio.NewWriter(stdout)
	defer out.Flush()

	start := time.Now()
	var stats parsers.Stats
	if opts.out == "ndjson" {
		stats, err = pipeline.Run(ctx, file, parsers.NewWriterSink(out))
	} else {
		stats, err = pipeline.Convert(ctx, file, parsers.NewHandlerSink(func(rec parsers.Record) error {
			return colors.writeRecord(out, rec)
		}))
	}
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if err := out.Flush(); err != nil {
		return err
	}

	log.Println("Pipeline finished")
	log.Printf("Pipeline: %s (%d lines, %d records)", time.Since(start), stats.Lines, stats.Records)
	return nil
}

// Some color ANSI codes
var (
	reset = []byte("\033[0m")

	red     = []byte("\033[31m")
	green   = []byte("\033[32m")
	blue    = []byte("\033[34m")
	magenta = []byte("\033[35m")
)

type colorizer struct {
	keyColor    []byte
	stringColor []byte
	nullColor   []byte
	punctColor  []byte
}

var defaultColorizer = colorizer{
	keyColor:    blue,
	stringColor: green,
	nullColor:   magenta,
	punctColor:  red,
}

// writeRecord prints rec on one line as { key: 'value', ... }. A nil colorizer
// prints without colors.
func (c *colorizer) writeRecord(w *bufio.Writer, rec parsers.Record) error {
	c.write(w, c.punct(), "{")
	for i, key := range rec.Keys() {
		if i > 0 {
			c.write(w, c.punct(), ",")
		}
		w.WriteByte(' ')
		c.write(w, c.key(), strconv.Quote(key))
		c.write(w, c.punct(), ":")
		w.WriteByte(' ')
		if v, ok := rec.Get(key); ok {
			c.write(w, c.str(), strconv.Quote(v))
		} else {
			c.write(w, c.null(), "null")
		}
	}
	if rec.Len() > 0 {
		w.WriteByte(' ')
	}
	c.write(w, c.punct(), "}")
	return w.WriteByte('\n')
}

func (c *colorizer) write(w *bufio.Writer, color []byte, s string) {
	if color == nil {
		w.WriteString(s)
		return
	}
	w.Write(color)
	w.WriteString(s)
	w.Write(reset)
}

func (c *colorizer) key() []byte {
	if c == nil {
		return nil
	}
	return c.keyColor
}

func (c *colorizer) str() []byte {
	if c == nil {
		return nil
	}
	return c.stringColor
}

func (c *colorizer) null() []byte {
	if c == nil {
		return nil
	}
	return c.nullColor
}

func (c *colorizer) punct() []byte {
	if c == nil {
		return nil
	}
	return c.punctColor
}
