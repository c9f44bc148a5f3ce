// Package natsort orders strings by the numeric value of embedded digit runs
// rather than pure lexicographic order, so "page2" sorts before "page10".
package natsort

import (
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

func newCollator() *collate.Collator {
	return collate.New(language.Und, collate.Numeric)
}

// Sort sorts names in place in natural order.
func Sort(names []string) {
	newCollator().SortStrings(names)
}

// Compare reports the natural ordering of a and b: -1, 0 or +1.
func Compare(a, b string) int {
	return newCollator().CompareString(a, b)
}
