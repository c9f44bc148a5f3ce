// Package epub extracts embedded images from EPUB containers.
package epub

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/cbzforge/cbzforge/internal/engine"
	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"
)

const containerPath = "META-INF/container.xml"

type container struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

type opfPackage struct {
	Manifest struct {
		Items []manifestItem `xml:"item"`
	} `xml:"manifest"`
}

type manifestItem struct {
	ID        string `xml:"id,attr"`
	Href      string `xml:"href,attr"`
	MediaType string `xml:"media-type,attr"`
}

type Extractor struct {
	logger *zap.Logger
	path   string
}

func New(logger *zap.Logger, path string) *Extractor {
	return &Extractor{logger: logger, path: path}
}

func (e *Extractor) Name() string {
	return fmt.Sprintf("epub(%s)", filepath.Base(e.path))
}

func (e *Extractor) Kind() string {
	return "epub"
}

// Extract parses the OPF package referenced by META-INF/container.xml and
// yields every image manifest item in document order. Non-raster manifest
// items (markup, styles, fonts) are skipped silently; a missing or malformed
// container is a parse failure.
func (e *Extractor) Extract(ctx context.Context, yield engine.YieldFunc) error {
	r, err := zip.OpenReader(e.path)
	if err != nil {
		return e.parseErr(err)
	}
	defer r.Close()

	entries := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		entries[f.Name] = f
	}

	opfPath, err := rootfilePath(entries)
	if err != nil {
		return e.parseErr(err)
	}

	pkg, err := readPackage(entries, opfPath)
	if err != nil {
		return e.parseErr(err)
	}

	opfDir := path.Dir(opfPath)

	var missing, ordinal int
	var lastErr error
	for _, item := range pkg.Manifest.Items {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !strings.HasPrefix(item.MediaType, "image/") {
			continue
		}
		if item.MediaType == "image/svg+xml" {
			// vector asset, nothing to recover without rendering
			e.logger.Debug("skipping vector image", zap.String("href", item.Href))
			continue
		}

		entryName := resolveHref(opfDir, item.Href)
		f, ok := entries[entryName]
		if !ok {
			e.logger.Warn("manifest image missing from container",
				zap.String("item", item.ID),
				zap.String("href", item.Href),
			)
			missing++
			lastErr = fmt.Errorf("manifest item %s not found in container", item.Href)
			continue
		}

		data, err := readEntry(f)
		if err != nil {
			e.logger.Warn("failed to read manifest image", zap.String("href", item.Href), zap.Error(err))
			missing++
			lastErr = err
			continue
		}

		if err := yield(engine.Page{Ordinal: ordinal, Data: data, Ext: imageExt(item, data)}); err != nil {
			return err
		}
		ordinal++
	}

	if ordinal == 0 && missing == 0 {
		return e.parseErr(fmt.Errorf("no image items in manifest"))
	}
	if missing > 0 {
		return &engine.PartialError{Recovered: ordinal, Missing: missing, Err: lastErr}
	}

	return nil
}

func (e *Extractor) parseErr(err error) error {
	return &engine.ParseError{Format: engine.FormatEPUB, Path: e.path, Err: err}
}

func rootfilePath(entries map[string]*zip.File) (string, error) {
	f, ok := entries[containerPath]
	if !ok {
		return "", fmt.Errorf("missing %s", containerPath)
	}

	data, err := readEntry(f)
	if err != nil {
		return "", err
	}

	var c container
	if err := xml.Unmarshal(data, &c); err != nil {
		return "", fmt.Errorf("malformed container.xml: %w", err)
	}
	if len(c.Rootfiles) == 0 || c.Rootfiles[0].FullPath == "" {
		return "", fmt.Errorf("container.xml declares no rootfile")
	}

	return c.Rootfiles[0].FullPath, nil
}

func readPackage(entries map[string]*zip.File, opfPath string) (*opfPackage, error) {
	f, ok := entries[opfPath]
	if !ok {
		return nil, fmt.Errorf("missing package document %s", opfPath)
	}

	data, err := readEntry(f)
	if err != nil {
		return nil, err
	}

	var pkg opfPackage
	if err := xml.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("malformed package document %s: %w", opfPath, err)
	}

	return &pkg, nil
}

// resolveHref joins a manifest href to the package document's directory.
// Hrefs may be percent-encoded.
func resolveHref(opfDir, href string) string {
	if unescaped, err := url.PathUnescape(href); err == nil {
		href = unescaped
	}
	if opfDir == "." {
		return href
	}
	return path.Join(opfDir, href)
}

func imageExt(item manifestItem, data []byte) string {
	if ext, ok := engine.NormalizeImageExt(strings.TrimPrefix(item.MediaType, "image/")); ok {
		return ext
	}
	if ext, ok := engine.NormalizeImageExt(path.Ext(item.Href)); ok {
		return ext
	}
	return engine.SniffImageExt(data)
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
