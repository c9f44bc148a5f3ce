package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBatchSummary_Add(t *testing.T) {
	var s BatchSummary
	s.Add(FileOutcome{File: "a.cbz", Status: StatusDone, Pages: 12})
	s.Add(FileOutcome{File: "b.txt", Status: StatusSkipped, Reason: "unsupported"})
	s.Add(FileOutcome{File: "c.cbr", Status: StatusFailed, Reason: "corrupt"})
	s.Add(FileOutcome{File: "d.pdf", Status: StatusDone, Pages: 3, Partial: true})

	assert.Equal(t, 2, s.Done)
	assert.Equal(t, 1, s.Skipped)
	assert.Equal(t, 1, s.Failed)
	assert.Len(t, s.Outcomes, 4)
}
