package archivers

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/cbzforge/cbzforge/internal/engine"
	"github.com/klauspost/compress/zip"
)

// CompressionMethod selects how page entries are stored in the zip container.
type CompressionMethod string

const (
	// MethodStore writes entries uncompressed. Comic pages are already
	// compressed rasters, so this is the default.
	MethodStore CompressionMethod = "store"

	MethodDeflate CompressionMethod = "deflate"
)

// CBZArchiver builds a CBZ (zip) archive in memory. Entries appear in the
// container in the order AddFile was called.
type CBZArchiver struct {
	buf    *bytes.Buffer
	zw     *zip.Writer
	method uint16
	closed bool
}

// NewCBZArchiver creates a CBZ archiver using the given compression method.
// An empty method defaults to "store".
func NewCBZArchiver(method string) (engine.Archiver, error) {
	cm := CompressionMethod(method)
	if cm == "" {
		cm = MethodStore
	}

	var zipMethod uint16
	switch cm {
	case MethodStore:
		zipMethod = zip.Store
	case MethodDeflate:
		zipMethod = zip.Deflate
	default:
		return nil, fmt.Errorf("unsupported compression method: %s", method)
	}

	buf := new(bytes.Buffer)
	return &CBZArchiver{
		buf:    buf,
		zw:     zip.NewWriter(buf),
		method: zipMethod,
	}, nil
}

// AddFile adds one page entry to the archive.
func (a *CBZArchiver) AddFile(ctx context.Context, filename string, data io.Reader) error {
	if a.closed {
		return fmt.Errorf("archiver is closed")
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}

	entry, err := a.zw.CreateHeader(&zip.FileHeader{
		Name:   filename,
		Method: a.method,
	})
	if err != nil {
		return fmt.Errorf("failed to create zip entry %s: %w", filename, err)
	}

	if _, err := io.Copy(entry, data); err != nil {
		return fmt.Errorf("failed to write zip entry %s: %w", filename, err)
	}

	return nil
}

// Close finalizes the zip container and returns a reader for its bytes.
func (a *CBZArchiver) Close() (io.Reader, error) {
	if a.closed {
		return nil, fmt.Errorf("archiver already closed")
	}
	a.closed = true

	if err := a.zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close zip writer: %w", err)
	}

	return bytes.NewReader(a.buf.Bytes()), nil
}

// Extension returns the file extension for this archive type.
func (a *CBZArchiver) Extension() string {
	return ".cbz"
}
