package parsers

// BuilderState is the state of a RecordBuilder.
type BuilderState int

const (
	// AwaitingHeader is the initial state: the next fields become the header.
	AwaitingHeader BuilderState = iota
	// Streaming means the header is known and every fields slice becomes a Record.
	Streaming
)

func (s BuilderState) String() string {
	switch s {
	case AwaitingHeader:
		return "awaiting_header"
	case Streaming:
		return "streaming"
	}
	return "unknown"
}

// RecordBuilder maps tokenized lines onto the header taken from the first line.
// Each conversion needs its own builder; it is not safe for concurrent use.
type RecordBuilder struct {
	state  BuilderState
	header *Header
}

// NewRecordBuilder returns a builder waiting for the header line.
func NewRecordBuilder() *RecordBuilder {
	return &RecordBuilder{state: AwaitingHeader}
}

// State returns the current state.
func (b *RecordBuilder) State() BuilderState {
	return b.state
}

// Header returns the header, or nil before the first line.
func (b *RecordBuilder) Header() *Header {
	return b.header
}

// Build consumes one tokenized line. It returns ok=false for the header line.
func (b *RecordBuilder) Build(fields []string) (rec Record, ok bool) {
	if b.state == AwaitingHeader {
		b.header = NewHeader(fields)
		b.state = Streaming
		return Record{}, false
	}
	return b.header.NewRecord(fields), true
}

// Process is the Stage form of Build.
func (b *RecordBuilder) Process(fields []string, emit func(Record) error) error {
	rec, ok := b.Build(fields)
	if !ok {
		return nil
	}
	return emit(rec)
}
