package engine

import (
	"context"
	"io"
)

type Named interface {
	Name() string
	Kind() string
}

type Closer interface {
	Close(context.Context) error
}

// Sink receives finished artifacts such as CBZ archives.
type Sink interface {
	Named
	Write(ctx context.Context, path string, data io.Reader) error
	Close(ctx context.Context) error
}

// SourceRootName is the fixed archival folder created at the root of the
// working directory. Every processed book keeps its original file and its
// extracted pages in a subfolder below it.
const SourceRootName = "Source"
