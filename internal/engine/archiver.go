package engine

import (
	"context"
	"io"
)

// Archiver collects page images into a comic archive.
type Archiver interface {
	// AddFile adds one page to the archive under the given entry name.
	AddFile(ctx context.Context, filename string, data io.Reader) error

	// Close finalizes the archive and returns a reader for the complete
	// archive data.
	Close() (io.Reader, error)

	// Extension returns the file extension for this archive type (e.g. ".cbz").
	Extension() string
}
