// Package cbz extracts pages from CBZ comic archives (zip containers).
package cbz

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/cbzforge/cbzforge/internal/engine"
	"github.com/cbzforge/cbzforge/internal/natsort"
	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"
)

type Extractor struct {
	logger *zap.Logger
	path   string
}

func New(logger *zap.Logger, path string) *Extractor {
	return &Extractor{logger: logger, path: path}
}

func (e *Extractor) Name() string {
	return fmt.Sprintf("cbz(%s)", filepath.Base(e.path))
}

func (e *Extractor) Kind() string {
	return "cbz"
}

// Extract walks the zip container, natural-sorts its image entries by name
// and yields their contents in that order. Non-image entries, directory
// markers and dotfiles are ignored.
func (e *Extractor) Extract(ctx context.Context, yield engine.YieldFunc) error {
	r, err := zip.OpenReader(e.path)
	if err != nil {
		return &engine.ParseError{Format: engine.FormatCBZ, Path: e.path, Err: err}
	}
	defer r.Close()

	entries := make(map[string]*zip.File, len(r.File))
	var names []string
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if strings.HasPrefix(filepath.Base(f.Name), ".") {
			continue
		}
		if !engine.IsImageName(f.Name) {
			e.logger.Debug("skipping non-image entry", zap.String("entry", f.Name))
			continue
		}
		entries[f.Name] = f
		names = append(names, f.Name)
	}

	if len(names) == 0 {
		return &engine.ParseError{Format: engine.FormatCBZ, Path: e.path, Err: fmt.Errorf("no image entries")}
	}

	natsort.Sort(names)

	var missing int
	var lastErr error
	ordinal := 0
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}

		data, err := readEntry(entries[name])
		if err != nil {
			e.logger.Warn("failed to read entry", zap.String("entry", name), zap.Error(err))
			missing++
			lastErr = err
			continue
		}

		ext, ok := engine.NormalizeImageExt(filepath.Ext(name))
		if !ok {
			ext = engine.SniffImageExt(data)
		}

		if err := yield(engine.Page{Ordinal: ordinal, Data: data, Ext: ext}); err != nil {
			return err
		}
		ordinal++
	}

	if missing > 0 {
		return &engine.PartialError{Recovered: ordinal, Missing: missing, Err: lastErr}
	}

	return nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
