package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/cbzforge/cbzforge/internal/engine"
	"github.com/cbzforge/cbzforge/internal/engine/archivers"
	"github.com/cbzforge/cbzforge/internal/engine/sinks"
	"github.com/cbzforge/cbzforge/internal/extractors"
	"github.com/cbzforge/cbzforge/internal/extractors/cbr"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Runner drives the whole conversion batch for one working directory.
type Runner struct {
	logger   *zap.Logger
	opts     Options
	reporter engine.Reporter
	cfg      extractors.Config
	upload   engine.Sink
}

// New creates a runner. A nil reporter discards all events.
func New(logger *zap.Logger, opts Options, reporter engine.Reporter) (*Runner, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if reporter == nil {
		reporter = engine.NopReporter
	}

	timeout, err := opts.toolTimeout()
	if err != nil {
		return nil, err
	}

	var rarEngine cbr.Engine
	switch opts.RarEngine {
	case RarEngineLibrary:
		rarEngine = cbr.NewLibraryEngine(logger.Named("rardecode"))
	default:
		rarEngine = cbr.NewToolEngine(logger.Named("unrar"), opts.UnrarBinary, timeout)
	}

	return &Runner{
		logger:   logger,
		opts:     opts,
		reporter: reporter,
		cfg:      extractors.Config{RarEngine: rarEngine},
	}, nil
}

// batchState is the only mutable state shared between workers.
type batchState struct {
	mu         sync.Mutex
	rarToolErr error
}

func (s *batchState) toolError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rarToolErr
}

func (s *batchState) setToolError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rarToolErr == nil {
		s.rarToolErr = err
	}
}

// Run converts every supported file directly under workdir. Candidates are
// enumerated once at the start; each file is processed independently and a
// failure never aborts the rest of the batch. Only resource exhaustion
// (disk full) or cancellation stops the run early.
func (r *Runner) Run(ctx context.Context, workdir string) (*engine.BatchSummary, error) {
	info, err := os.Stat(workdir)
	if err != nil {
		return nil, fmt.Errorf("working directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("working directory %s is not a directory", workdir)
	}

	files, err := enumerate(workdir)
	if err != nil {
		return nil, err
	}

	if r.opts.Upload != nil {
		sink, err := sinks.NewS3Sink(ctx, sinks.S3Config{
			Bucket:          r.opts.Upload.Bucket,
			Region:          r.opts.Upload.Region,
			Endpoint:        r.opts.Upload.Endpoint,
			Prefix:          r.opts.Upload.Prefix,
			AccessKeyID:     r.opts.Upload.AccessKeyID,
			SecretAccessKey: r.opts.Upload.SecretAccessKey,
			ForcePathStyle:  r.opts.Upload.ForcePathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("configure upload: %w", err)
		}
		r.upload = sink
	}

	r.logger.Info("starting batch",
		zap.String("workdir", workdir),
		zap.Int("candidates", len(files)),
		zap.Int("workers", r.opts.Workers),
	)
	r.reporter(engine.Event{Kind: engine.EventBatchStarted, Total: len(files)})

	ws := engine.NewWorkspaceAt(workdir)
	st := &batchState{}
	summary := &engine.BatchSummary{}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type task struct {
		index int
		name  string
	}
	tasks := make(chan task)

	var (
		mu       sync.Mutex
		fatalErr error
		wg       sync.WaitGroup
	)
	for range r.opts.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range tasks {
				outcome, err := r.processFile(ctx, ws, workdir, t.index, len(files), t.name, st)
				mu.Lock()
				summary.Add(outcome)
				if err != nil && fatalErr == nil {
					fatalErr = err
				}
				mu.Unlock()
				if err != nil {
					cancel()
				}
			}
		}()
	}

	for i, name := range files {
		if ctx.Err() != nil {
			break
		}
		tasks <- task{index: i + 1, name: name}
	}
	close(tasks)
	wg.Wait()

	r.reporter(engine.Event{Kind: engine.EventBatchFinished, Total: len(files)})
	r.logger.Info("batch finished",
		zap.Int("done", summary.Done),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
	)

	if fatalErr != nil {
		return summary, fatalErr
	}
	return summary, nil
}

// enumerate lists candidate files at the workdir root, exactly once per run.
// Directories and dotfiles are never candidates; unsupported files stay in so
// they can be reported as skipped.
func enumerate(workdir string) ([]string, error) {
	entries, err := os.ReadDir(workdir)
	if err != nil {
		return nil, fmt.Errorf("enumerate working directory: %w", err)
	}

	return lo.FilterMap(entries, func(entry os.DirEntry, _ int) (string, bool) {
		if !entry.Type().IsRegular() {
			return "", false
		}
		if strings.HasPrefix(entry.Name(), ".") {
			return "", false
		}
		return entry.Name(), true
	}), nil
}

// processFile runs one file through the per-file state machine:
// detect, extract, sequence, organize, archive.
// The returned error is nil unless the whole batch must stop.
func (r *Runner) processFile(ctx context.Context, ws *engine.Workspace, workdir string, index, total int, name string, st *batchState) (engine.FileOutcome, error) {
	logger := r.logger.With(zap.String("file", name))
	book := strings.TrimSuffix(name, filepath.Ext(name))

	skip := func(reason string) engine.FileOutcome {
		r.reporter(engine.Event{Kind: engine.EventFileSkipped, File: name, Index: index, Total: total, Message: reason})
		logger.Info("skipping file", zap.String("reason", reason))
		return engine.FileOutcome{File: name, Status: engine.StatusSkipped, Reason: reason}
	}
	fail := func(err error) (engine.FileOutcome, error) {
		r.reporter(engine.Event{Kind: engine.EventFileFailed, File: name, Index: index, Total: total, Err: err})
		logger.Error("file failed", zap.Error(err))
		outcome := engine.FileOutcome{File: name, Status: engine.StatusFailed, Reason: err.Error()}
		if isDiskFull(err) {
			return outcome, fmt.Errorf("disk full while processing %s: %w", name, err)
		}
		return outcome, nil
	}

	// Detected
	format := engine.DetectFormat(name)
	if format == engine.FormatUnsupported {
		return skip(fmt.Sprintf("unsupported format %q", filepath.Ext(name))), nil
	}

	processed, err := ws.AlreadyProcessed(book, name)
	if err != nil {
		return fail(err)
	}
	if processed {
		return skip("already processed in a previous run"), nil
	}

	if format == engine.FormatCBR {
		if toolErr := st.toolError(); toolErr != nil {
			return fail(toolErr)
		}
	}

	r.reporter(engine.Event{Kind: engine.EventFileStarted, File: name, Index: index, Total: total})
	logger.Info("processing file", zap.Stringer("format", format))

	ex, err := extractors.ForFormat(logger, format, filepath.Join(workdir, name), r.cfg)
	if err != nil {
		return fail(err)
	}

	bookDir, err := ws.CreateBookDir(book)
	if err != nil {
		return fail(err)
	}
	// Until the original moves in, a failure releases the claimed folder so
	// the file can be retried once the user repairs it.
	discard := func(err error) (engine.FileOutcome, error) {
		if rmErr := ws.RemoveBookDir(bookDir); rmErr != nil {
			logger.Warn("failed to release book folder", zap.Error(rmErr))
		}
		return fail(err)
	}

	// Extracting + Sequencing
	seq := engine.NewSequencer(r.opts.PadWidth)
	extractErr := ex.Extract(ctx, func(p engine.Page) error {
		if p.Ext == "" {
			r.reporter(engine.Event{Kind: engine.EventPageSkipped, File: name, Message: "unrecognized image encoding"})
			logger.Warn("skipping page with unrecognized encoding", zap.Int("ordinal", p.Ordinal))
			return nil
		}

		pageName, renames := seq.Next(p.Ext)
		if len(renames) > 0 {
			if err := ws.ApplyRenames(bookDir, renames); err != nil {
				return err
			}
		}
		if err := ws.WritePage(bookDir, pageName, p.Data); err != nil {
			return err
		}
		r.reporter(engine.Event{Kind: engine.EventPageExtracted, File: name, Page: seq.Count()})
		return nil
	})

	partial := false
	if extractErr != nil {
		if errors.Is(extractErr, context.Canceled) || errors.Is(extractErr, context.DeadlineExceeded) {
			outcome, _ := discard(extractErr)
			return outcome, ctx.Err()
		}

		var toolErr *engine.ToolUnavailableError
		if errors.As(extractErr, &toolErr) {
			st.setToolError(extractErr)
			return discard(extractErr)
		}

		var partialErr *engine.PartialError
		if errors.As(extractErr, &partialErr) && !r.opts.Strict {
			logger.Warn("partial extraction, keeping recovered pages",
				zap.Int("recovered", partialErr.Recovered),
				zap.Int("missing", partialErr.Missing),
			)
			partial = true
		} else {
			return discard(extractErr)
		}
	}

	if seq.Count() == 0 {
		return discard(fmt.Errorf("no pages recovered from %s", name))
	}

	// Organizing
	if _, err := ws.MoveOriginal(name, bookDir); err != nil {
		return discard(err)
	}

	// Archiving
	archiveName := archiveNameFor(bookDir)
	if err := r.archive(ctx, ws, bookDir, archiveName, seq.Names()); err != nil {
		return fail(err)
	}

	if r.upload != nil {
		if err := r.uploadArchive(ctx, ws, archiveName); err != nil {
			// mirroring is additive, the local result stands
			logger.Warn("failed to upload archive", zap.Error(err))
		}
	}

	r.reporter(engine.Event{Kind: engine.EventFileFinished, File: name, Index: index, Total: total, Pages: seq.Count()})
	logger.Info("file done", zap.Int("pages", seq.Count()), zap.Bool("partial", partial))

	return engine.FileOutcome{
		File:    name,
		Status:  engine.StatusDone,
		Pages:   seq.Count(),
		Partial: partial,
		Archive: archiveName,
	}, nil
}

// archiveNameFor derives the output archive name from the claimed book
// folder. When the folder carries a collision suffix the archive carries the
// same suffix, so two same-named books never overwrite each other's output.
func archiveNameFor(bookDir string) string {
	return filepath.Base(bookDir) + ".cbz"
}

// archive bundles the sequenced pages into a CBZ at the workdir root. The
// filesystem sink writes atomically, so a failure here never leaves a partial
// archive at the final path.
func (r *Runner) archive(ctx context.Context, ws *engine.Workspace, bookDir, archiveName string, pageNames []string) error {
	arch, err := archivers.NewCBZArchiver(r.opts.Compression)
	if err != nil {
		return err
	}

	sink := sinks.NewArchiveSink(sinks.NewFilesystemSink(ws.Fs()), arch, archiveName)

	for _, pageName := range pageNames {
		f, err := ws.OpenPage(bookDir, pageName)
		if err != nil {
			sink.Abort()
			return err
		}
		err = sink.Write(ctx, pageName, f)
		f.Close()
		if err != nil {
			sink.Abort()
			return err
		}
	}

	return sink.Close(ctx)
}

func (r *Runner) uploadArchive(ctx context.Context, ws *engine.Workspace, archiveName string) error {
	f, err := ws.Fs().Open(archiveName)
	if err != nil {
		return err
	}
	defer f.Close()
	return r.upload.Write(ctx, archiveName, f)
}

func isDiskFull(err error) bool {
	return errors.Is(err, syscall.ENOSPC)
}
