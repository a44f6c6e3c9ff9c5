package extract

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/arthur-debert/srcpack/pkg/errors"
	"github.com/arthur-debert/srcpack/pkg/types"
)

type dirMeta struct {
	path    string
	mode    fs.FileMode
	modTime time.Time
}

// treeWriter materializes archive members below root. Directory modes
// and times are applied by finish, after all children have been written,
// so read-only directories and mtimes survive extraction.
type treeWriter struct {
	fs   types.FS
	root string
	dirs []dirMeta
}

func (w *treeWriter) dir(path string, mode fs.FileMode, modTime time.Time) error {
	if err := w.checkParents(path); err != nil {
		return err
	}
	if info, err := w.fs.Lstat(path); err == nil && !info.IsDir() {
		if err := w.fs.Remove(path); err != nil {
			return err
		}
	}
	if err := w.fs.MkdirAll(path, 0755); err != nil {
		return err
	}
	if err := w.fs.Chmod(path, mode.Perm()|0700); err != nil {
		return err
	}
	w.dirs = append(w.dirs, dirMeta{path: path, mode: mode.Perm(), modTime: modTime})
	return nil
}

func (w *treeWriter) file(path string, r io.Reader, mode fs.FileMode, modTime time.Time) error {
	if err := w.prepare(path); err != nil {
		return err
	}
	out, err := w.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm()|0200)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	if err := w.fs.Chmod(path, mode.Perm()); err != nil {
		return err
	}
	return w.fs.Chtimes(path, modTime, modTime)
}

func (w *treeWriter) symlink(path, target string) error {
	if err := w.prepare(path); err != nil {
		return err
	}
	return w.fs.Symlink(target, path)
}

func (w *treeWriter) hardlink(path, existing string) error {
	if err := w.checkParents(existing); err != nil {
		return err
	}
	if err := w.prepare(path); err != nil {
		return err
	}
	return w.fs.Link(existing, path)
}

// prepare makes sure the parent exists and nothing but a directory occupies
// path. Existing files and links are replaced rather than written through.
func (w *treeWriter) prepare(path string) error {
	if err := w.checkParents(path); err != nil {
		return err
	}
	if err := w.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	info, err := w.fs.Lstat(path)
	if err != nil {
		return nil
	}
	if info.IsDir() {
		return w.fs.RemoveAll(path)
	}
	return w.fs.Remove(path)
}

// checkParents fails when a directory between root and path is a symlink.
// Members must never be written through a link an earlier member created.
func (w *treeWriter) checkParents(path string) error {
	rel, err := filepath.Rel(w.root, filepath.Dir(path))
	if err != nil || rel == "." {
		return err
	}
	current := w.root
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		current = filepath.Join(current, part)
		info, err := w.fs.Lstat(current)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return err
		}
		if info.Mode()&fs.ModeSymlink != 0 {
			return errors.Newf(errors.ErrExtraction, "archive entry %s resolves through symlink %s", path, current).
				WithDetail("symlink", current)
		}
	}
	return nil
}

func (w *treeWriter) finish() error {
	for i := len(w.dirs) - 1; i >= 0; i-- {
		d := w.dirs[i]
		if err := w.fs.Chmod(d.path, d.mode); err != nil {
			return err
		}
		if err := w.fs.Chtimes(d.path, d.modTime, d.modTime); err != nil {
			return err
		}
	}
	return nil
}
