// Package pdf extracts embedded raster images from PDF documents without
// re-rendering them.
package pdf

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/cbzforge/cbzforge/internal/engine"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
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
	return fmt.Sprintf("pdf(%s)", filepath.Base(e.path))
}

func (e *Extractor) Kind() string {
	return "pdf"
}

// candidate is one embedded image recovered from a page.
type candidate struct {
	data []byte
	ext  string
}

// Extract pulls the embedded images out of the document in page order. Pages
// holding several images contribute exactly one: the largest by pixel area,
// with the byte length as tie-break when dimensions cannot be sniffed. Pages
// with no raster content (vector or text-only) are dropped and the remaining
// pages are renumbered densely.
func (e *Extractor) Extract(ctx context.Context, yield engine.YieldFunc) error {
	f, err := os.Open(e.path)
	if err != nil {
		return e.parseErr(err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pageImages, err := api.ExtractImagesRaw(f, nil, conf)
	if err != nil {
		return e.parseErr(err)
	}

	byPage := make(map[int]candidate)
	var missing int
	var lastErr error
	for _, m := range pageImages {
		for _, img := range m {
			if err := ctx.Err(); err != nil {
				return err
			}

			data, err := io.ReadAll(img)
			if err != nil {
				e.logger.Warn("failed to read embedded image",
					zap.Int("page", img.PageNr),
					zap.String("resource", img.Name),
					zap.Error(err),
				)
				missing++
				lastErr = err
				continue
			}

			cand := candidate{data: data, ext: normalizeExt(img.FileType, data)}
			if best, ok := byPage[img.PageNr]; !ok || largerImage(cand, best) {
				byPage[img.PageNr] = cand
			}
		}
	}

	if len(byPage) == 0 && missing == 0 {
		return e.parseErr(fmt.Errorf("no embedded raster images"))
	}

	pages := make([]int, 0, len(byPage))
	for nr := range byPage {
		pages = append(pages, nr)
	}
	slices.Sort(pages)

	for ordinal, nr := range pages {
		cand := byPage[nr]
		if err := yield(engine.Page{Ordinal: ordinal, Data: cand.data, Ext: cand.ext}); err != nil {
			return err
		}
	}

	if missing > 0 {
		return &engine.PartialError{Recovered: len(pages), Missing: missing, Err: lastErr}
	}

	return nil
}

func (e *Extractor) parseErr(err error) error {
	return &engine.ParseError{Format: engine.FormatPDF, Path: e.path, Err: err}
}

// largerImage reports whether a should replace b as a page's canonical image.
// Pixel area decides; byte length is the fallback when either header cannot
// be decoded.
func largerImage(a, b candidate) bool {
	areaA, areaB := engine.ImageArea(a.data), engine.ImageArea(b.data)
	if areaA >= 0 && areaB >= 0 {
		return areaA > areaB
	}
	return len(a.data) > len(b.data)
}

func normalizeExt(fileType string, data []byte) string {
	if ext, ok := engine.NormalizeImageExt(fileType); ok {
		return ext
	}
	if ext := engine.SniffImageExt(data); ext != "" {
		return ext
	}
	// pdfcpu reports raw filter types for exotic encodings; keep them rather
	// than inventing a raster extension.
	return fileType
}
