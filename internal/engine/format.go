package engine

import (
	"path/filepath"
	"strings"
)

// Format identifies the extraction strategy family for an input file.
// The set is closed: dispatch over it is a switch, not a plugin lookup.
type Format int

const (
	FormatUnsupported Format = iota
	FormatPDF
	FormatMOBI // covers both .mobi and .azw3, same container
	FormatEPUB
	FormatCBZ
	FormatCBR
)

func (f Format) String() string {
	switch f {
	case FormatPDF:
		return "pdf"
	case FormatMOBI:
		return "mobi"
	case FormatEPUB:
		return "epub"
	case FormatCBZ:
		return "cbz"
	case FormatCBR:
		return "cbr"
	default:
		return "unsupported"
	}
}

// DetectFormat classifies a file by its extension, case-insensitively.
// It never touches the filesystem.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return FormatPDF
	case ".mobi", ".azw3":
		return FormatMOBI
	case ".epub":
		return FormatEPUB
	case ".cbz":
		return FormatCBZ
	case ".cbr":
		return FormatCBR
	default:
		return FormatUnsupported
	}
}

// SupportedExtensions returns the recognized input extensions, dot included.
func SupportedExtensions() []string {
	return []string{".pdf", ".mobi", ".azw3", ".epub", ".cbz", ".cbr"}
}
