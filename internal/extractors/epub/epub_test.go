package epub

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/cbzforge/cbzforge/internal/engine"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var jpegMagic = []byte{0xFF, 0xD8, 0xFF, 0xE0, 'x'}

// jpegPage returns a fake JPEG payload with a distinguishing trailing byte.
func jpegPage(marker byte) []byte {
	return []byte{0xFF, 0xD8, 0xFF, 0xE0, marker}
}

const containerXML = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

// writeEPUB assembles a minimal container: the OCF container pointer, one OPF
// package document listing items, and the referenced payload entries.
func writeEPUB(t *testing.T, path, manifest string, payload map[string][]byte) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)

	write := func(name string, data []byte) {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}

	write("META-INF/container.xml", []byte(containerXML))
	opf := fmt.Sprintf(`<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <manifest>
%s
  </manifest>
</package>`, manifest)
	write("OEBPS/content.opf", []byte(opf))
	for name, data := range payload {
		write(name, data)
	}

	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func collectPages(t *testing.T, e *Extractor) ([]engine.Page, error) {
	t.Helper()
	var pages []engine.Page
	err := e.Extract(t.Context(), func(p engine.Page) error {
		pages = append(pages, p)
		return nil
	})
	return pages, err
}

func TestExtractor_ManifestOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.epub")
	manifest := `    <item id="p1" href="images/p1.jpg" media-type="image/jpeg"/>
    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml"/>
    <item id="p2" href="images/p2.jpg" media-type="image/jpeg"/>
    <item id="css" href="style.css" media-type="text/css"/>
    <item id="p3" href="images/p3.png" media-type="image/png"/>`
	writeEPUB(t, path, manifest, map[string][]byte{
		"OEBPS/images/p1.jpg": jpegPage('1'),
		"OEBPS/images/p2.jpg": jpegPage('2'),
		"OEBPS/images/p3.png": []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, '3'},
		"OEBPS/nav.xhtml":     []byte("<html/>"),
		"OEBPS/style.css":     []byte("body{}"),
	})

	pages, err := collectPages(t, New(zap.NewNop(), path))
	require.NoError(t, err)

	require.Len(t, pages, 3)
	assert.Equal(t, "jpg", pages[0].Ext)
	assert.Equal(t, "jpg", pages[1].Ext)
	assert.Equal(t, "png", pages[2].Ext)
	assert.Equal(t, byte('1'), pages[0].Data[len(pages[0].Data)-1])
	assert.Equal(t, byte('2'), pages[1].Data[len(pages[1].Data)-1])
	for i, p := range pages {
		assert.Equal(t, i, p.Ordinal)
	}
}

func TestExtractor_SkipsSVG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.epub")
	manifest := `    <item id="p1" href="p1.jpg" media-type="image/jpeg"/>
    <item id="cover" href="cover.svg" media-type="image/svg+xml"/>`
	writeEPUB(t, path, manifest, map[string][]byte{
		"OEBPS/p1.jpg":    jpegMagic,
		"OEBPS/cover.svg": []byte("<svg/>"),
	})

	pages, err := collectPages(t, New(zap.NewNop(), path))
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "jpg", pages[0].Ext)
}

func TestExtractor_PercentEncodedHref(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.epub")
	manifest := `    <item id="p1" href="images/page%201.jpg" media-type="image/jpeg"/>`
	writeEPUB(t, path, manifest, map[string][]byte{
		"OEBPS/images/page 1.jpg": jpegMagic,
	})

	pages, err := collectPages(t, New(zap.NewNop(), path))
	require.NoError(t, err)
	require.Len(t, pages, 1)
}

func TestExtractor_MissingManifestImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.epub")
	manifest := `    <item id="p1" href="p1.jpg" media-type="image/jpeg"/>
    <item id="p2" href="gone.jpg" media-type="image/jpeg"/>`
	writeEPUB(t, path, manifest, map[string][]byte{
		"OEBPS/p1.jpg": jpegMagic,
	})

	pages, err := collectPages(t, New(zap.NewNop(), path))
	var partial *engine.PartialError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, 1, partial.Recovered)
	assert.Equal(t, 1, partial.Missing)
	assert.Len(t, pages, 1, "recoverable pages are still yielded")
}

func TestExtractor_NoImages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.epub")
	manifest := `    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml"/>`
	writeEPUB(t, path, manifest, map[string][]byte{
		"OEBPS/nav.xhtml": []byte("<html/>"),
	})

	_, err := collectPages(t, New(zap.NewNop(), path))
	var parseErr *engine.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, engine.FormatEPUB, parseErr.Format)
}

func TestExtractor_MissingContainer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.epub")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("mimetype")
	require.NoError(t, err)
	_, err = w.Write([]byte("application/epub+zip"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, err = collectPages(t, New(zap.NewNop(), path))
	var parseErr *engine.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, parseErr.Error(), "container.xml")
}
