// Package extractors maps each supported format to its extraction strategy.
package extractors

import (
	"path/filepath"

	"github.com/cbzforge/cbzforge/internal/engine"
	"github.com/cbzforge/cbzforge/internal/extractors/cbr"
	"github.com/cbzforge/cbzforge/internal/extractors/cbz"
	"github.com/cbzforge/cbzforge/internal/extractors/epub"
	"github.com/cbzforge/cbzforge/internal/extractors/mobi"
	"github.com/cbzforge/cbzforge/internal/extractors/pdf"
	"go.uber.org/zap"
)

// Config carries strategy options shared across a run.
type Config struct {
	// RarEngine is the archive-extraction capability for CBR files.
	RarEngine cbr.Engine
}

// ForFormat returns the extraction strategy for a format, reading from path.
// The dispatch is closed over the supported format set.
func ForFormat(logger *zap.Logger, format engine.Format, path string, cfg Config) (engine.Extractor, error) {
	switch format {
	case engine.FormatPDF:
		return pdf.New(logger.Named("pdf"), path), nil
	case engine.FormatMOBI:
		return mobi.New(logger.Named("mobi"), path), nil
	case engine.FormatEPUB:
		return epub.New(logger.Named("epub"), path), nil
	case engine.FormatCBZ:
		return cbz.New(logger.Named("cbz"), path), nil
	case engine.FormatCBR:
		return cbr.New(logger.Named("cbr"), path, cfg.RarEngine), nil
	default:
		return nil, &engine.UnsupportedFormatError{Path: path, Ext: filepath.Ext(path)}
	}
}
