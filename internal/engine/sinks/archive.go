package sinks

import (
	"context"
	"fmt"
	"io"

	"github.com/cbzforge/cbzforge/internal/engine"
)

// ArchiveSink collects page writes into an archiver and, on Close, hands the
// finished archive to an inner sink under the configured name. Abort discards
// everything collected so far; nothing reaches the inner sink in that case.
type ArchiveSink struct {
	inner       engine.Sink
	archiver    engine.Archiver
	archiveName string
	aborted     bool
}

func NewArchiveSink(inner engine.Sink, archiver engine.Archiver, archiveName string) *ArchiveSink {
	return &ArchiveSink{
		inner:       inner,
		archiver:    archiver,
		archiveName: archiveName,
	}
}

func (s *ArchiveSink) Name() string {
	return fmt.Sprintf("archive(%s)->%s", s.archiveName, s.inner.Name())
}

func (s *ArchiveSink) Kind() string {
	return "archive"
}

// Write adds one page entry to the pending archive.
func (s *ArchiveSink) Write(ctx context.Context, path string, data io.Reader) error {
	if s.aborted {
		return fmt.Errorf("archive sink is aborted")
	}
	if err := s.archiver.AddFile(ctx, path, data); err != nil {
		return fmt.Errorf("failed to add page to archive: %w", err)
	}
	return nil
}

// Abort drops the pending archive without writing it anywhere.
func (s *ArchiveSink) Abort() {
	s.aborted = true
}

// Close finalizes the archive and writes it to the inner sink.
func (s *ArchiveSink) Close(ctx context.Context) error {
	if s.aborted {
		return nil
	}

	reader, err := s.archiver.Close()
	if err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}

	if err := s.inner.Write(ctx, s.archiveName, reader); err != nil {
		return fmt.Errorf("failed to write archive to sink: %w", err)
	}

	if err := s.inner.Close(ctx); err != nil {
		return fmt.Errorf("failed to close inner sink: %w", err)
	}

	return nil
}
