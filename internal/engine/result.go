package engine

// FileStatus is the terminal state of one input file.
type FileStatus int

const (
	StatusDone FileStatus = iota
	StatusSkipped
	StatusFailed
)

func (s FileStatus) String() string {
	switch s {
	case StatusDone:
		return "done"
	case StatusSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// FileOutcome records how one input file ended up.
type FileOutcome struct {
	File    string
	Status  FileStatus
	Pages   int
	Partial bool   // set when a lenient run kept a recovered subset
	Archive string // final archive name for StatusDone
	Reason  string // skip or failure reason
}

// BatchSummary aggregates per-file outcomes for one run.
type BatchSummary struct {
	Outcomes []FileOutcome
	Done     int
	Skipped  int
	Failed   int
}

func (s *BatchSummary) Add(o FileOutcome) {
	s.Outcomes = append(s.Outcomes, o)
	switch o.Status {
	case StatusDone:
		s.Done++
	case StatusSkipped:
		s.Skipped++
	case StatusFailed:
		s.Failed++
	}
}
