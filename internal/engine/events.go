package engine

// EventKind discriminates pipeline progress events.
type EventKind int

const (
	EventBatchStarted EventKind = iota
	EventFileStarted
	EventFileSkipped
	EventPageExtracted
	EventPageSkipped
	EventFileFinished
	EventFileFailed
	EventBatchFinished
)

// Event is one progress notification. Fields are populated per kind: File for
// all per-file events, Page for page events (1-based sequence number), Pages
// for EventFileFinished, Index/Total for batch positioning, Err for failures
// and Message for skip reasons and warnings.
type Event struct {
	Kind    EventKind
	File    string
	Page    int
	Pages   int
	Index   int
	Total   int
	Err     error
	Message string
}

// Reporter consumes pipeline events. The pipeline calls it synchronously, so
// implementations must return quickly. It keeps the core free of any
// assumption about the presentation layer.
type Reporter func(Event)

// NopReporter discards all events.
func NopReporter(Event) {}
