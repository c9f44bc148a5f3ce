package engine

import "fmt"

// MinPadWidth is the smallest zero-pad width used for sequence names.
const MinPadWidth = 3

// Rename is one filename adjustment required when the pad width grows.
type Rename struct {
	From string
	To   string
}

// Sequencer assigns zero-padded sequential names to extracted pages. Numbers
// are 1-based. At every point the lexicographic order of all assigned names
// equals the assignment order; when a book outgrows the current width the
// caller receives the rename set that restores the invariant for names
// already handed out.
type Sequencer struct {
	width int
	exts  []string
}

func NewSequencer(minWidth int) *Sequencer {
	if minWidth < MinPadWidth {
		minWidth = MinPadWidth
	}
	return &Sequencer{width: minWidth}
}

// Next assigns the name for the next page. When the new ordinal does not fit
// the current width, renames lists the adjustments for previously assigned
// names; the caller must apply them before using the returned name.
func (s *Sequencer) Next(ext string) (name string, renames []Rename) {
	ordinal := len(s.exts) + 1
	for decimalWidth(ordinal) > s.width {
		old := s.width
		s.width++
		for i, e := range s.exts {
			renames = append(renames, Rename{
				From: sequenceName(i+1, old, e),
				To:   sequenceName(i+1, s.width, e),
			})
		}
	}
	s.exts = append(s.exts, ext)
	return sequenceName(ordinal, s.width, ext), renames
}

// Count returns the number of names assigned so far.
func (s *Sequencer) Count() int {
	return len(s.exts)
}

// Width returns the current zero-pad width.
func (s *Sequencer) Width() int {
	return s.width
}

// Names returns all assigned names at the current width, in sequence order.
func (s *Sequencer) Names() []string {
	names := make([]string, len(s.exts))
	for i, e := range s.exts {
		names[i] = sequenceName(i+1, s.width, e)
	}
	return names
}

func decimalWidth(n int) int {
	w := 1
	for n >= 10 {
		n /= 10
		w++
	}
	return w
}

func sequenceName(ordinal, width int, ext string) string {
	return fmt.Sprintf("%0*d.%s", width, ordinal, ext)
}
