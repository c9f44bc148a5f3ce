package engine

import "context"

// YieldFunc receives pages in document order. Returning an error stops the
// extraction and propagates the error out of Extract.
type YieldFunc func(Page) error

// Extractor produces the ordered page stream for one source file.
// The sequence is lazy, finite and non-restartable: Extract may be called at
// most once per extractor instance.
type Extractor interface {
	Named
	Extract(ctx context.Context, yield YieldFunc) error
}
