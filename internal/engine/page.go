package engine

import (
	"bytes"
	"image"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Page is a single extracted comic page.
// Ordinal is the 0-based position within the source's document order.
// Ext is the normalized image extension without the dot ("jpg", "png", ...).
type Page struct {
	Ordinal int
	Data    []byte
	Ext     string
}

// imageExts maps normalized extensions of raster formats a comic reader is
// expected to handle.
var imageExts = map[string]string{
	"jpg":  "jpg",
	"jpeg": "jpg",
	"png":  "png",
	"gif":  "gif",
	"webp": "webp",
	"bmp":  "bmp",
	"tif":  "tif",
	"tiff": "tif",
}

// SniffImageExt inspects the magic bytes of data and returns the matching
// extension, or the empty string when data is not a recognized raster image.
func SniffImageExt(data []byte) string {
	switch {
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return "jpg"
	case len(data) >= 8 && bytes.Equal(data[:8], []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}):
		return "png"
	case len(data) >= 6 && (bytes.Equal(data[:6], []byte("GIF87a")) || bytes.Equal(data[:6], []byte("GIF89a"))):
		return "gif"
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return "webp"
	case len(data) >= 2 && data[0] == 'B' && data[1] == 'M':
		return "bmp"
	case len(data) >= 4 && (bytes.Equal(data[:4], []byte{'I', 'I', 0x2A, 0x00}) || bytes.Equal(data[:4], []byte{'M', 'M', 0x00, 0x2A})):
		return "tif"
	default:
		return ""
	}
}

// NormalizeImageExt maps an extension (with or without dot, any case) to its
// canonical form and reports whether it names a supported raster format.
func NormalizeImageExt(ext string) (string, bool) {
	norm, ok := imageExts[strings.ToLower(strings.TrimPrefix(ext, "."))]
	return norm, ok
}

// IsImageName reports whether name carries a supported raster extension.
func IsImageName(name string) bool {
	_, ok := NormalizeImageExt(filepath.Ext(name))
	return ok
}

// ImageArea returns the pixel area of the encoded image, or -1 when the
// dimensions cannot be determined. Only the header is decoded.
func ImageArea(data []byte) int {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return -1
	}
	return cfg.Width * cfg.Height
}
