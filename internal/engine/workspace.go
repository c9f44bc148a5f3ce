package engine

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// Workspace organizes the per-book directory tree below one working
// directory. All paths are relative to the workdir-rooted filesystem.
type Workspace struct {
	fs afero.Fs
}

func NewWorkspace(fs afero.Fs) *Workspace {
	return &Workspace{fs: fs}
}

// NewWorkspaceAt roots a workspace at dir on the OS filesystem.
func NewWorkspaceAt(dir string) *Workspace {
	return NewWorkspace(afero.NewBasePathFs(afero.NewOsFs(), dir))
}

// Fs exposes the workdir-rooted filesystem for sinks sharing the same root.
func (w *Workspace) Fs() afero.Fs {
	return w.fs
}

// AlreadyProcessed reports whether book left a finished archive or an
// archival subfolder behind in a previous run. source is the candidate file
// under consideration; for CBZ input the archive path coincides with the
// source itself, which must not count as a finished result.
func (w *Workspace) AlreadyProcessed(book, source string) (bool, error) {
	for _, p := range []string{book + ".cbz", filepath.Join(SourceRootName, book)} {
		if p == source {
			continue
		}
		_, err := w.fs.Stat(p)
		if err == nil {
			return true, nil
		}
		if !os.IsNotExist(err) {
			return false, fmt.Errorf("stat %s: %w", p, err)
		}
	}
	return false, nil
}

// CreateBookDir creates the archival subfolder for book below the Source
// root. On a name collision the folder gets a counter suffix: "name (2)",
// "name (3)" and so on. The create is exclusive, so concurrent workers can
// never claim the same folder.
func (w *Workspace) CreateBookDir(book string) (string, error) {
	if err := w.fs.MkdirAll(SourceRootName, 0o755); err != nil {
		return "", fmt.Errorf("create archival root: %w", err)
	}

	const maxSuffix = 100
	name := book
	for i := 2; i <= maxSuffix; i++ {
		dir := filepath.Join(SourceRootName, name)
		err := w.fs.Mkdir(dir, 0o755)
		if err == nil {
			return dir, nil
		}
		if !os.IsExist(err) {
			return "", fmt.Errorf("create book folder %s: %w", dir, err)
		}
		name = fmt.Sprintf("%s (%d)", book, i)
	}
	return "", &ConflictError{Path: filepath.Join(SourceRootName, book)}
}

// RemoveBookDir deletes a claimed book folder, including any pages written
// into it, so a failed file can be retried on a later run. Only call while
// the original still sits at the workdir root.
func (w *Workspace) RemoveBookDir(bookDir string) error {
	if err := w.fs.RemoveAll(bookDir); err != nil {
		return fmt.Errorf("remove book folder %s: %w", bookDir, err)
	}
	return nil
}

// MoveOriginal relocates the source file from the workdir root into the book
// folder. Rename is attempted first; filesystems that cannot rename fall back
// to a byte-preserving copy followed by removal of the source.
func (w *Workspace) MoveOriginal(srcName, bookDir string) (string, error) {
	dst := filepath.Join(bookDir, filepath.Base(srcName))
	if err := w.fs.Rename(srcName, dst); err == nil {
		return dst, nil
	}

	if err := w.copyFile(srcName, dst); err != nil {
		return "", fmt.Errorf("move %s into %s: %w", srcName, bookDir, err)
	}
	if err := w.fs.Remove(srcName); err != nil {
		return "", fmt.Errorf("remove %s after copy: %w", srcName, err)
	}
	return dst, nil
}

func (w *Workspace) copyFile(src, dst string) (err error) {
	in, err := w.fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := w.fs.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, out.Close())
	}()

	_, err = io.Copy(out, in)
	return err
}

// WritePage stores one sequenced page image in the book folder.
func (w *Workspace) WritePage(bookDir, name string, data []byte) error {
	if err := afero.WriteFile(w.fs, filepath.Join(bookDir, name), data, 0o644); err != nil {
		return fmt.Errorf("write page %s: %w", name, err)
	}
	return nil
}

// ApplyRenames widens already-written page names after the sequencer grew its
// pad width. Source and target widths never overlap, so order is irrelevant.
func (w *Workspace) ApplyRenames(bookDir string, renames []Rename) error {
	for _, r := range renames {
		from := filepath.Join(bookDir, r.From)
		to := filepath.Join(bookDir, r.To)
		if err := w.fs.Rename(from, to); err != nil {
			return fmt.Errorf("widen page name %s: %w", r.From, err)
		}
	}
	return nil
}

// OpenPage opens a previously written page for archiving.
func (w *Workspace) OpenPage(bookDir, name string) (io.ReadCloser, error) {
	f, err := w.fs.Open(filepath.Join(bookDir, name))
	if err != nil {
		return nil, fmt.Errorf("open page %s: %w", name, err)
	}
	return f, nil
}
