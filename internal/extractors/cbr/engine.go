package cbr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/cbzforge/cbzforge/internal/engine"
	"github.com/nwaples/rardecode"
	"go.uber.org/zap"
)

// DefaultToolTimeout bounds a single unrar invocation.
const DefaultToolTimeout = 2 * time.Minute

// ToolEngine extracts archives by running the external unrar binary.
type ToolEngine struct {
	logger  *zap.Logger
	binary  string
	timeout time.Duration
}

// NewToolEngine creates an engine around the given unrar binary. An empty
// binary defaults to "unrar", a zero timeout to DefaultToolTimeout.
func NewToolEngine(logger *zap.Logger, binary string, timeout time.Duration) *ToolEngine {
	if binary == "" {
		binary = "unrar"
	}
	if timeout <= 0 {
		timeout = DefaultToolTimeout
	}
	return &ToolEngine{logger: logger, binary: binary, timeout: timeout}
}

func (e *ToolEngine) Name() string {
	return fmt.Sprintf("unrar(%s)", e.binary)
}

func (e *ToolEngine) Extract(ctx context.Context, archivePath, destDir string) error {
	bin, err := exec.LookPath(e.binary)
	if err != nil {
		return &engine.ToolUnavailableError{
			Tool:        e.binary,
			Remediation: "install unrar and make sure it is on PATH, or rerun with the library engine (--rar-engine=library)",
		}
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin, "x", "-o+", "-idq", archivePath, destDir+string(os.PathSeparator))

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	e.logger.Debug("invoking unrar",
		zap.String("binary", bin),
		zap.String("archive", archivePath),
		zap.Duration("timeout", e.timeout),
	)
	start := time.Now()
	err = cmd.Run()
	duration := time.Since(start)
	exitCode := -1
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}
	e.logger.Debug("unrar finished",
		zap.Int("exit_code", exitCode),
		zap.Duration("duration", duration),
	)

	if err != nil {
		stderrStr := strings.TrimSpace(stderr.String())
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("unrar timed out after %s: %s", e.timeout, stderrStr)
		}
		if stderrStr != "" {
			return fmt.Errorf("unrar failed: %w: %s", err, stderrStr)
		}
		return fmt.Errorf("unrar failed: %w", err)
	}

	return nil
}

// LibraryEngine extracts archives in-process with a pure-Go RAR decoder.
type LibraryEngine struct {
	logger *zap.Logger
}

func NewLibraryEngine(logger *zap.Logger) *LibraryEngine {
	return &LibraryEngine{logger: logger}
}

func (e *LibraryEngine) Name() string {
	return "rardecode"
}

func (e *LibraryEngine) Extract(ctx context.Context, archivePath, destDir string) error {
	rr, err := rardecode.OpenReader(archivePath, "")
	if err != nil {
		return fmt.Errorf("open rar archive: %w", err)
	}
	defer rr.Close()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		hdr, err := rr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read rar entry: %w", err)
		}
		if hdr.IsDir {
			continue
		}

		rel, err := sanitizeEntryName(hdr.Name)
		if err != nil {
			e.logger.Warn("skipping unsafe archive entry", zap.String("entry", hdr.Name), zap.Error(err))
			continue
		}

		if err := writeEntry(filepath.Join(destDir, rel), rr); err != nil {
			return fmt.Errorf("extract entry %s: %w", hdr.Name, err)
		}
	}
}

// sanitizeEntryName rejects absolute paths and parent traversal so an entry
// can never escape the extraction area.
func sanitizeEntryName(name string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("path escapes extraction area")
	}
	return cleaned, nil
}

func writeEntry(path string, data io.Reader) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	_, err = io.Copy(f, data)
	return err
}
