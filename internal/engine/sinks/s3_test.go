package sinks

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockUploader struct {
	uploads []mockUpload
	err     error
}

type mockUpload struct {
	bucket      string
	key         string
	body        []byte
	contentType string
}

func (m *mockUploader) Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	body, _ := io.ReadAll(input.Body)
	upload := mockUpload{
		bucket: *input.Bucket,
		key:    *input.Key,
		body:   body,
	}
	if input.ContentType != nil {
		upload.contentType = *input.ContentType
	}
	m.uploads = append(m.uploads, upload)
	return &manager.UploadOutput{}, nil
}

func TestS3Sink_Name(t *testing.T) {
	sink := NewS3SinkWithUploader("comics", "", &mockUploader{})
	assert.Equal(t, "s3(comics)", sink.Name())
	assert.Equal(t, "s3", sink.Kind())

	sink = NewS3SinkWithUploader("comics", "library/manga", &mockUploader{})
	assert.Equal(t, "s3(comics/library/manga)", sink.Name())
}

func TestS3Sink_Write(t *testing.T) {
	tests := []struct {
		name            string
		prefix          string
		path            string
		wantKey         string
		wantContentType string
	}{
		{
			name:            "archive without prefix",
			path:            "One Piece v1.cbz",
			wantKey:         "One Piece v1.cbz",
			wantContentType: "application/zip",
		},
		{
			name:            "archive with prefix",
			prefix:          "library/manga",
			path:            "One Piece v1.cbz",
			wantKey:         "library/manga/One Piece v1.cbz",
			wantContentType: "application/zip",
		},
		{
			name:            "jpeg page",
			path:            "001.jpg",
			wantKey:         "001.jpg",
			wantContentType: "image/jpeg",
		},
		{
			name:    "unknown extension has no content type",
			path:    "notes.bin",
			wantKey: "notes.bin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uploader := &mockUploader{}
			sink := NewS3SinkWithUploader("comics", tt.prefix, uploader)

			err := sink.Write(t.Context(), tt.path, bytes.NewReader([]byte("archive bytes")))
			require.NoError(t, err)

			require.Len(t, uploader.uploads, 1)
			upload := uploader.uploads[0]
			assert.Equal(t, "comics", upload.bucket)
			assert.Equal(t, tt.wantKey, upload.key)
			assert.Equal(t, []byte("archive bytes"), upload.body)
			assert.Equal(t, tt.wantContentType, upload.contentType)
		})
	}
}

func TestS3Sink_WriteError(t *testing.T) {
	uploader := &mockUploader{err: fmt.Errorf("access denied")}
	sink := NewS3SinkWithUploader("comics", "", uploader)

	err := sink.Write(t.Context(), "book.cbz", bytes.NewReader([]byte("x")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://comics/book.cbz")
}

func TestS3Sink_Close(t *testing.T) {
	sink := NewS3SinkWithUploader("comics", "", &mockUploader{})
	assert.NoError(t, sink.Close(t.Context()))
}
