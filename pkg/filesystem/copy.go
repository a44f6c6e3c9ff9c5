package filesystem

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/arthur-debert/srcpack/pkg/types"
)

// CopyTree copies the contents of src into dst with archive semantics:
// permissions and modification times are kept, symlinks are recreated as
// symlinks, and anything already at a destination path is replaced. dst is
// created if missing. Copying the same tree twice yields the same result.
func CopyTree(fsys types.FS, src, dst string) error {
	info, err := fsys.Lstat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("copy tree: %s is not a directory", src)
	}
	return copyEntry(fsys, src, dst, info)
}

// CopyEntry copies a single file, symlink or directory tree from src to dst.
func CopyEntry(fsys types.FS, src, dst string) error {
	info, err := fsys.Lstat(src)
	if err != nil {
		return err
	}
	return copyEntry(fsys, src, dst, info)
}

func copyEntry(fsys types.FS, src, dst string, info fs.FileInfo) error {
	switch {
	case info.Mode()&fs.ModeSymlink != 0:
		return copySymlink(fsys, src, dst)
	case info.IsDir():
		return copyDir(fsys, src, dst, info)
	case info.Mode().IsRegular():
		return CopyFile(fsys, src, dst)
	default:
		// Devices, sockets and pipes have no place in a source tree.
		return nil
	}
}

func copyDir(fsys types.FS, src, dst string, info fs.FileInfo) error {
	if existing, err := fsys.Lstat(dst); err == nil && !existing.IsDir() {
		if err := fsys.Remove(dst); err != nil {
			return err
		}
	}
	// Owner write is needed while children are copied in; the real mode is
	// applied once the directory is filled.
	if err := fsys.MkdirAll(dst, info.Mode().Perm()|0700); err != nil {
		return err
	}
	if err := fsys.Chmod(dst, info.Mode().Perm()|0700); err != nil {
		return err
	}

	entries, err := fsys.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		childInfo, err := fsys.Lstat(filepath.Join(src, entry.Name()))
		if err != nil {
			return err
		}
		if err := copyEntry(fsys, filepath.Join(src, entry.Name()), filepath.Join(dst, entry.Name()), childInfo); err != nil {
			return err
		}
	}

	if err := fsys.Chmod(dst, info.Mode().Perm()); err != nil {
		return err
	}
	return fsys.Chtimes(dst, info.ModTime(), info.ModTime())
}

func copySymlink(fsys types.FS, src, dst string) error {
	target, err := fsys.Readlink(src)
	if err != nil {
		return err
	}
	if err := clearPath(fsys, dst); err != nil {
		return err
	}
	return fsys.Symlink(target, dst)
}

// CopyFile copies a regular file, keeping its mode and modification time.
// An existing file, link or directory at dst is removed first.
func CopyFile(fsys types.FS, src, dst string) error {
	info, err := fsys.Stat(src)
	if err != nil {
		return err
	}

	in, err := fsys.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		_ = in.Close()
	}()

	if err := clearPath(fsys, dst); err != nil {
		return err
	}
	if err := fsys.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	out, err := fsys.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm()|0200)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	if err := fsys.Chmod(dst, info.Mode().Perm()); err != nil {
		return err
	}
	return fsys.Chtimes(dst, info.ModTime(), info.ModTime())
}

// MoveFile renames src to dst, falling back to copy and remove when the
// rename crosses filesystems.
func MoveFile(fsys types.FS, src, dst string) error {
	if err := fsys.Rename(src, dst); err == nil {
		return nil
	}
	if err := CopyFile(fsys, src, dst); err != nil {
		return err
	}
	return fsys.Remove(src)
}

// Exists reports whether path exists, without following a final symlink.
func Exists(fsys types.FS, path string) bool {
	_, err := fsys.Lstat(path)
	return err == nil
}

func clearPath(fsys types.FS, path string) error {
	if !Exists(fsys, path) {
		return nil
	}
	return fsys.RemoveAll(path)
}
