package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"csv-json-stream/common"
	"csv-json-stream/parsers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() common.Config {
	return common.Config{DefaultDelimiter: ",", MaxLineBytes: parsers.DefaultMaxLineBytes}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestParseArgs(t *testing.T) {
	opts, err := parseArgs([]string{"-d", ";", "-pick", "2", "-out", "ndjson", "a.csv", "b.csv"}, testConfig())
	require.NoError(t, err)
	assert.Equal(t, ";", opts.delimiter)
	assert.Equal(t, 2, opts.pick)
	assert.Equal(t, "ndjson", opts.out)
	assert.Equal(t, "auto", opts.color)
	assert.Equal(t, []string{"a.csv", "b.csv"}, opts.files)

	opts, err = parseArgs([]string{"a.csv"}, common.Config{DefaultDelimiter: "\t"})
	require.NoError(t, err)
	assert.Equal(t, "\t", opts.delimiter)
	assert.Equal(t, 1, opts.pick)

	bad := [][]string{
		{},
		{"-pick", "3", "a.csv"},
		{"-pick", "0", "a.csv"},
		{"-color", "sometimes", "a.csv"},
		{"-out", "xml", "a.csv"},
	}
	for _, args := range bad {
		_, err := parseArgs(args, testConfig())
		assert.Error(t, err, "args %v", args)
	}
}

func TestRun_Records(t *testing.T) {
	first := writeFile(t, "first.csv", "x\n1\n")
	second := writeFile(t, "second.csv", "name,age\nAlice,30\nBob\n")

	var out bytes.Buffer
	opts := options{delimiter: ",", pick: 2, out: "records", files: []string{first, second}}
	require.NoError(t, run(context.Background(), opts, &out, nil))

	assert.Equal(t, `{ "name": "Alice", "age": "30" }`+"\n"+`{ "name": "Bob", "age": null }`+"\n", out.String())
}

func TestRun_NDJSON(t *testing.T) {
	file := writeFile(t, "data.tsv", "a\tb\n1\t\"2\t3\"\n")

	var out bytes.Buffer
	opts := options{delimiter: "\t", pick: 1, out: "ndjson", files: []string{file}}
	require.NoError(t, run(context.Background(), opts, &out, nil))

	assert.Equal(t, `{"a":"1","b":"23"}`+"\n", out.String())
}

func TestRun_Errors(t *testing.T) {
	var out bytes.Buffer

	err := run(context.Background(), options{delimiter: `"`, pick: 1, out: "records", files: []string{"x.csv"}}, &out, nil)
	assert.Error(t, err)

	missing := filepath.Join(t.TempDir(), "missing.csv")
	err = run(context.Background(), options{delimiter: ",", pick: 1, out: "records", files: []string{missing}}, &out, nil)
	assert.Error(t, err)
}

func TestColorizer_WriteRecord(t *testing.T) {
	var buf bytes.Buffer
	file := writeFile(t, "c.csv", "k\nv\n")
	opts := options{delimiter: ",", pick: 1, out: "records", files: []string{file}}
	require.NoError(t, run(context.Background(), opts, &buf, &defaultColorizer))

	s := buf.String()
	assert.Contains(t, s, string(blue)+`"k"`+string(reset))
	assert.Contains(t, s, string(green)+`"v"`+string(reset))
}
