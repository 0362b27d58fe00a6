package parsers

import (
	"errors"
	"fmt"
)

// Pipeline stage names reported in StageError.
const (
	StageRead      = "read"
	StageSerialize = "serialize"
	StageSink      = "sink"
	StageDecode    = "decode"
	StageHandle    = "handle"
)

// ErrInvalidDelimiter is returned for a delimiter that cannot split fields.
var ErrInvalidDelimiter = errors.New("invalid delimiter")

// StageError is a fatal pipeline error tagged with the failing stage and the
// 1-based input line being processed.
type StageError struct {
	Stage string
	Line  int
	Err   error
}

func (e *StageError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: line %d: %v", e.Stage, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// wrapStage tags err with stage and line unless it already carries a stage.
func wrapStage(stage string, line int, err error) error {
	var se *StageError
	if errors.As(err, &se) {
		if se.Line == 0 {
			se.Line = line
		}
		return err
	}
	return &StageError{Stage: stage, Line: line, Err: err}
}
