package sinks

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesystemSink_Write(t *testing.T) {
	fs := afero.NewMemMapFs()
	sink := NewFilesystemSink(fs)

	content := []byte("archive bytes")
	err := sink.Write(t.Context(), "book.cbz", bytes.NewReader(content))
	require.NoError(t, err)

	got, err := afero.ReadFile(fs, "book.cbz")
	require.NoError(t, err)
	assert.Equal(t, content, got)

	_, err = fs.Stat("book.cbz.tmp")
	assert.Error(t, err, "temporary file must not survive a successful write")
}

func TestFilesystemSink_WriteNested(t *testing.T) {
	fs := afero.NewMemMapFs()
	sink := NewFilesystemSink(fs)

	err := sink.Write(t.Context(), "mirror/book.cbz", strings.NewReader("nested"))
	require.NoError(t, err)

	got, err := afero.ReadFile(fs, "mirror/book.cbz")
	require.NoError(t, err)
	assert.Equal(t, "nested", string(got))
}

// failingReader errors partway through, simulating a truncated source.
type failingReader struct {
	data []byte
	read bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.read {
		return 0, fmt.Errorf("read failed")
	}
	r.read = true
	n := copy(p, r.data)
	return n, nil
}

func TestFilesystemSink_FailedWriteLeavesNothing(t *testing.T) {
	fs := afero.NewMemMapFs()
	sink := NewFilesystemSink(fs)

	err := sink.Write(t.Context(), "book.cbz", &failingReader{data: []byte("partial")})
	require.Error(t, err)

	_, err = fs.Stat("book.cbz")
	assert.Error(t, err, "no artifact may appear at the final path")
	_, err = fs.Stat("book.cbz.tmp")
	assert.Error(t, err, "temporary file must be cleaned up")
}

func TestFilesystemSink_CancelledContext(t *testing.T) {
	fs := afero.NewMemMapFs()
	sink := NewFilesystemSink(fs)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	err := sink.Write(ctx, "book.cbz", strings.NewReader("late"))
	require.Error(t, err)

	_, err = fs.Stat("book.cbz")
	assert.Error(t, err)
}

func TestFilesystemSink_OverwriteIsAtomic(t *testing.T) {
	fs := afero.NewMemMapFs()
	sink := NewFilesystemSink(fs)

	require.NoError(t, sink.Write(t.Context(), "book.cbz", strings.NewReader("v1")))
	require.NoError(t, sink.Write(t.Context(), "book.cbz", strings.NewReader("v2")))

	got, err := afero.ReadFile(fs, "book.cbz")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(got))
}

func TestFilesystemSink_Close(t *testing.T) {
	sink := NewFilesystemSink(afero.NewMemMapFs())
	assert.NoError(t, sink.Close(t.Context()))
}
