// Package cbr re-packages CBR comic archives. The proprietary compression is
// handled by an archive-extraction engine: either the external unrar tool or
// a pure-Go decoder. The strategy itself only enumerates, orders and yields
// the extracted images.
package cbr

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cbzforge/cbzforge/internal/engine"
	"github.com/cbzforge/cbzforge/internal/natsort"
	"go.uber.org/zap"
)

// Engine decompresses a CBR archive into destDir. It is the opaque
// extraction capability behind this strategy.
type Engine interface {
	Name() string
	Extract(ctx context.Context, archivePath, destDir string) error
}

type Extractor struct {
	logger *zap.Logger
	path   string
	engine Engine
}

func New(logger *zap.Logger, path string, eng Engine) *Extractor {
	return &Extractor{logger: logger, path: path, engine: eng}
}

func (e *Extractor) Name() string {
	return fmt.Sprintf("cbr(%s)", filepath.Base(e.path))
}

func (e *Extractor) Kind() string {
	return "cbr"
}

// Extract decompresses the archive into a temporary area, natural-sorts the
// extracted image files by name and yields them in that order. The temporary
// area is removed before returning.
func (e *Extractor) Extract(ctx context.Context, yield engine.YieldFunc) error {
	tmpDir, err := os.MkdirTemp("", "cbr-extract-*")
	if err != nil {
		return fmt.Errorf("create extraction area: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	if err := e.engine.Extract(ctx, e.path, tmpDir); err != nil {
		var toolErr *engine.ToolUnavailableError
		if errors.As(err, &toolErr) {
			return err
		}
		return &engine.ParseError{Format: engine.FormatCBR, Path: e.path, Err: err}
	}

	names, err := imageFiles(tmpDir)
	if err != nil {
		return &engine.ParseError{Format: engine.FormatCBR, Path: e.path, Err: err}
	}
	if len(names) == 0 {
		return &engine.ParseError{Format: engine.FormatCBR, Path: e.path, Err: fmt.Errorf("no image entries")}
	}

	natsort.Sort(names)

	var missing, ordinal int
	var lastErr error
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}

		data, err := os.ReadFile(filepath.Join(tmpDir, name))
		if err != nil {
			e.logger.Warn("failed to read extracted entry", zap.String("entry", name), zap.Error(err))
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

// imageFiles walks root and returns the relative paths of all image files.
func imageFiles(root string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !engine.IsImageName(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		names = append(names, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enumerate extracted files: %w", err)
	}
	return names, nil
}
