package runner

import (
	"testing"
	"time"

	"github.com/cbzforge/cbzforge/internal/extractors/cbr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	require.NoError(t, opts.Validate())

	assert.Equal(t, 1, opts.Workers)
	assert.Equal(t, 3, opts.PadWidth)
	assert.False(t, opts.Strict)
	assert.Equal(t, RarEngineUnrar, opts.RarEngine)
	assert.Equal(t, "store", opts.Compression)
	assert.Nil(t, opts.Upload)
}

func TestParseOptions(t *testing.T) {
	doc := `
workers: 4
pad_width: 4
strict: true
rar_engine: library
tool_timeout: 45s
compression: deflate
upload:
  bucket: comics
  region: eu-west-1
  prefix: library/manga
`
	opts, err := ParseOptions([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, 4, opts.Workers)
	assert.Equal(t, 4, opts.PadWidth)
	assert.True(t, opts.Strict)
	assert.Equal(t, RarEngineLibrary, opts.RarEngine)
	assert.Equal(t, "45s", opts.ToolTimeout)
	assert.Equal(t, "deflate", opts.Compression)
	require.NotNil(t, opts.Upload)
	assert.Equal(t, "comics", opts.Upload.Bucket)
	assert.Equal(t, "library/manga", opts.Upload.Prefix)
}

func TestParseOptions_PartialDocumentKeepsDefaults(t *testing.T) {
	opts, err := ParseOptions([]byte("workers: 8\n"))
	require.NoError(t, err)

	assert.Equal(t, 8, opts.Workers)
	assert.Equal(t, 3, opts.PadWidth)
	assert.Equal(t, RarEngineUnrar, opts.RarEngine)
}

func TestParseOptions_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "not yaml",
			doc:  "{{{",
		},
		{
			name: "too many workers",
			doc:  "workers: 512",
		},
		{
			name: "pad width below minimum",
			doc:  "pad_width: 1",
		},
		{
			name: "unknown rar engine",
			doc:  "rar_engine: sevenzip",
		},
		{
			name: "unknown compression",
			doc:  "compression: lzma",
		},
		{
			name: "malformed tool timeout",
			doc:  "tool_timeout: soon",
		},
		{
			name: "negative tool timeout",
			doc:  "tool_timeout: -5s",
		},
		{
			name: "upload without bucket",
			doc:  "upload:\n  region: eu-west-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOptions([]byte(tt.doc))
			require.Error(t, err)
		})
	}
}

func TestOptions_ToolTimeout(t *testing.T) {
	opts := DefaultOptions()
	d, err := opts.toolTimeout()
	require.NoError(t, err)
	assert.Equal(t, cbr.DefaultToolTimeout, d)

	opts.ToolTimeout = "90s"
	d, err = opts.toolTimeout()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)
}
