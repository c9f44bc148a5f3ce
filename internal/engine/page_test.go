package engine

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSniffImageExt(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{
			name: "jpeg",
			data: []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'},
			want: "jpg",
		},
		{
			name: "png",
			data: []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0x00},
			want: "png",
		},
		{
			name: "gif87a",
			data: []byte("GIF87a..."),
			want: "gif",
		},
		{
			name: "gif89a",
			data: []byte("GIF89a..."),
			want: "gif",
		},
		{
			name: "webp",
			data: []byte("RIFF\x00\x00\x00\x00WEBPVP8 "),
			want: "webp",
		},
		{
			name: "bmp",
			data: []byte("BM\x00\x00\x00\x00"),
			want: "bmp",
		},
		{
			name: "tiff little endian",
			data: []byte{'I', 'I', 0x2A, 0x00, 0x08},
			want: "tif",
		},
		{
			name: "tiff big endian",
			data: []byte{'M', 'M', 0x00, 0x2A, 0x00},
			want: "tif",
		},
		{
			name: "riff but not webp",
			data: []byte("RIFF\x00\x00\x00\x00WAVEfmt "),
			want: "",
		},
		{
			name: "plain text",
			data: []byte("hello, world"),
			want: "",
		},
		{
			name: "empty",
			data: nil,
			want: "",
		},
		{
			name: "truncated jpeg magic",
			data: []byte{0xFF, 0xD8},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SniffImageExt(tt.data))
		})
	}
}

func TestNormalizeImageExt(t *testing.T) {
	tests := []struct {
		ext    string
		want   string
		wantOK bool
	}{
		{ext: "jpg", want: "jpg", wantOK: true},
		{ext: ".jpeg", want: "jpg", wantOK: true},
		{ext: "JPEG", want: "jpg", wantOK: true},
		{ext: ".PNG", want: "png", wantOK: true},
		{ext: "tiff", want: "tif", wantOK: true},
		{ext: ".tif", want: "tif", wantOK: true},
		{ext: "webp", want: "webp", wantOK: true},
		{ext: "svg", wantOK: false},
		{ext: ".txt", wantOK: false},
		{ext: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run("ext "+tt.ext, func(t *testing.T) {
			got, ok := NormalizeImageExt(tt.ext)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestIsImageName(t *testing.T) {
	assert.True(t, IsImageName("page001.jpg"))
	assert.True(t, IsImageName("cover.PNG"))
	assert.True(t, IsImageName("art/page.webp"))
	assert.False(t, IsImageName("ComicInfo.xml"))
	assert.False(t, IsImageName("page001"))
	assert.False(t, IsImageName("thumbs.db"))
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestImageArea(t *testing.T) {
	assert.Equal(t, 12, ImageArea(encodePNG(t, 4, 3)))
	assert.Equal(t, 1, ImageArea(encodePNG(t, 1, 1)))
	assert.Equal(t, -1, ImageArea([]byte("not an image")))
	assert.Equal(t, -1, ImageArea(nil))
}
