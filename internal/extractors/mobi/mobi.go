// Package mobi recovers page images from MOBI and AZW3 books.
//
// Both formats share the PalmDB container: a record directory followed by the
// record payloads. Fixed-layout comics store one encoded raster per record in
// the image section, so recovery walks the records from the first image index
// and keeps everything that is an image, in record order. This is lossless
// where rasterizing the book would force a re-encode.
package mobi

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cbzforge/cbzforge/internal/engine"
	"go.uber.org/zap"
)

const (
	pdbHeaderLen   = 78
	recordEntryLen = 8

	// offsets within record 0
	mobiMagicOff     = 16
	firstImageIdxOff = 108
	firstImageIdxEnd = 112
	minRecord0Len    = firstImageIdxEnd
)

// structural record magics that sit between or after image records
var skipMagics = [][]byte{
	[]byte("FLIS"),
	[]byte("FCIS"),
	[]byte("SRCS"),
	[]byte("DATP"),
	[]byte("RESC"),
	[]byte("BOUN"), // BOUNDARY between MOBI and KF8 sections
	[]byte("CMET"),
	[]byte("AUDI"),
	[]byte("VIDE"),
	{0xE9, 0x8E, 0x0D, 0x0A}, // end-of-file record
}

type Extractor struct {
	logger *zap.Logger
	path   string
}

func New(logger *zap.Logger, path string) *Extractor {
	return &Extractor{logger: logger, path: path}
}

func (e *Extractor) Name() string {
	return fmt.Sprintf("mobi(%s)", filepath.Base(e.path))
}

func (e *Extractor) Kind() string {
	return "mobi"
}

func (e *Extractor) Extract(ctx context.Context, yield engine.YieldFunc) error {
	data, err := os.ReadFile(e.path)
	if err != nil {
		return e.parseErr(err)
	}

	records, err := parseRecords(data)
	if err != nil {
		return e.parseErr(err)
	}

	first := firstImageRecord(records)
	if first < 0 {
		return e.parseErr(fmt.Errorf("no image records"))
	}

	ordinal := 0
	for i := first; i < len(records); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		rec := records[i]
		if isStructuralRecord(rec) {
			continue
		}

		ext := engine.SniffImageExt(rec)
		if ext == "" {
			e.logger.Debug("skipping non-image record", zap.Int("record", i), zap.Int("size", len(rec)))
			continue
		}

		if err := yield(engine.Page{Ordinal: ordinal, Data: rec, Ext: ext}); err != nil {
			return err
		}
		ordinal++
	}

	if ordinal == 0 {
		return e.parseErr(fmt.Errorf("no image records"))
	}

	return nil
}

func (e *Extractor) parseErr(err error) error {
	return &engine.ParseError{Format: engine.FormatMOBI, Path: e.path, Err: err}
}

// parseRecords validates the PalmDB header and slices data into its records.
func parseRecords(data []byte) ([][]byte, error) {
	if len(data) < pdbHeaderLen {
		return nil, fmt.Errorf("truncated PalmDB header")
	}
	if string(data[60:64]) != "BOOK" || string(data[64:68]) != "MOBI" {
		return nil, fmt.Errorf("not a MOBI container (type/creator %q)", data[60:68])
	}

	numRecords := int(binary.BigEndian.Uint16(data[76:78]))
	if numRecords == 0 {
		return nil, fmt.Errorf("empty record directory")
	}
	dirEnd := pdbHeaderLen + numRecords*recordEntryLen
	if len(data) < dirEnd {
		return nil, fmt.Errorf("truncated record directory")
	}

	offsets := make([]int, numRecords+1)
	for i := 0; i < numRecords; i++ {
		off := int(binary.BigEndian.Uint32(data[pdbHeaderLen+i*recordEntryLen:]))
		if off < dirEnd || off > len(data) {
			return nil, fmt.Errorf("record %d offset %d out of range", i, off)
		}
		if i > 0 && off < offsets[i-1] {
			return nil, fmt.Errorf("record %d offset not monotonic", i)
		}
		offsets[i] = off
	}
	offsets[numRecords] = len(data)

	records := make([][]byte, numRecords)
	for i := 0; i < numRecords; i++ {
		records[i] = data[offsets[i]:offsets[i+1]]
	}
	return records, nil
}

// firstImageRecord reads the first-image index from the MOBI header in record
// 0, falling back to a scan when the header does not declare one.
func firstImageRecord(records [][]byte) int {
	rec0 := records[0]
	if len(rec0) >= minRecord0Len && string(rec0[mobiMagicOff:mobiMagicOff+4]) == "MOBI" {
		idx := binary.BigEndian.Uint32(rec0[firstImageIdxOff:firstImageIdxEnd])
		if idx != 0 && idx != 0xFFFFFFFF && int(idx) < len(records) {
			return int(idx)
		}
	}

	for i := 1; i < len(records); i++ {
		if engine.SniffImageExt(records[i]) != "" {
			return i
		}
	}
	return -1
}

func isStructuralRecord(rec []byte) bool {
	if len(rec) < 4 {
		return true
	}
	for _, magic := range skipMagics {
		if string(rec[:len(magic)]) == string(magic) {
			return true
		}
	}
	return false
}
