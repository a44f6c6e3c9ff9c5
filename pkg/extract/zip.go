package extract

import (
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/arthur-debert/srcpack/pkg/errors"
	"github.com/arthur-debert/srcpack/pkg/filesystem"
	"github.com/arthur-debert/srcpack/pkg/types"
)

const stagingPrefix = ".srcpack-unzip-"

// extractZip unpacks a zip archive. Zip has no native strip support, so a
// stripped extraction goes through a staging directory beside destDir and
// only the contents of each top-level directory are copied over.
func (e *Extractor) extractZip(archivePath, destDir string, strip types.StripLevels) error {
	if !strip.Enabled() {
		return e.unzip(archivePath, destDir)
	}
	if strip.Count() > 1 {
		e.logger.Warn().
			Str("archive", archivePath).
			Int("strip", strip.Count()).
			Msg("Zip archives are stripped by one level only")
	}

	staging, err := e.fs.MkdirTemp(filepath.Dir(destDir), stagingPrefix)
	if err != nil {
		return errors.Wrapf(err, errors.ErrDirCreate, "failed to create staging directory beside %s", destDir)
	}
	defer func() {
		if err := e.fs.RemoveAll(staging); err != nil {
			e.logger.Warn().Err(err).Str("staging", staging).Msg("Failed to remove staging directory")
		}
	}()

	if err := e.unzip(archivePath, staging); err != nil {
		return err
	}

	tops, err := e.fs.ReadDir(staging)
	if err != nil {
		return errors.Wrapf(err, errors.ErrExtraction, "failed to read staging directory %s", staging)
	}
	for _, top := range tops {
		topPath := filepath.Join(staging, top.Name())
		info, err := e.fs.Lstat(topPath)
		if err != nil {
			return errors.Wrapf(err, errors.ErrExtraction, "failed to stat %s", topPath)
		}
		if !info.IsDir() {
			e.logger.Debug().Str("entry", top.Name()).Msg("Dropping top-level file from stripped zip")
			continue
		}

		children, err := e.fs.ReadDir(topPath)
		if err != nil {
			return errors.Wrapf(err, errors.ErrExtraction, "failed to read %s", topPath)
		}
		for _, child := range children {
			if err := filesystem.CopyEntry(e.fs, filepath.Join(topPath, child.Name()), filepath.Join(destDir, child.Name())); err != nil {
				return errors.Wrapf(err, errors.ErrExtraction, "failed to copy %s into %s", child.Name(), destDir)
			}
		}
	}

	e.logger.Info().Str("archive", archivePath).Str("dest", destDir).Msg("Extracted zip archive")
	return nil
}

// unzip writes every member of the archive below dir.
func (e *Extractor) unzip(archivePath, dir string) error {
	f, err := e.fs.Open(archivePath)
	if err != nil {
		return errors.Wrapf(err, errors.ErrExtraction, "failed to open %s", archivePath)
	}
	defer func() {
		_ = f.Close()
	}()

	info, err := f.Stat()
	if err != nil {
		return errors.Wrapf(err, errors.ErrExtraction, "failed to stat %s", archivePath)
	}
	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return errors.Wrapf(err, errors.ErrExtraction, "failed to read %s as zip", archivePath)
	}

	w := &treeWriter{fs: e.fs, root: dir}
	for _, zf := range zr.File {
		if err := writeZipEntry(w, zf, dir); err != nil {
			return err
		}
	}
	if err := w.finish(); err != nil {
		return errors.Wrapf(err, errors.ErrExtraction, "failed to set directory attributes in %s", dir)
	}
	return nil
}

func writeZipEntry(w *treeWriter, zf *zip.File, dir string) error {
	name := stripComponents(zf.Name, 0)
	if name == "" {
		return nil
	}
	target, err := safeJoin(dir, name)
	if err != nil {
		return err
	}
	if target == dir {
		return nil
	}

	mode := zf.Mode()
	switch {
	case mode.IsDir() || strings.HasSuffix(zf.Name, "/"):
		if mode.Perm() == 0 {
			mode |= 0755
		}
		err = w.dir(target, mode, zf.Modified)
	case mode&fs.ModeSymlink != 0:
		var linkTarget string
		linkTarget, err = readZipMember(zf)
		if err == nil {
			err = w.symlink(target, linkTarget)
		}
	default:
		if mode.Perm() == 0 {
			mode |= 0644
		}
		var rc io.ReadCloser
		rc, err = zf.Open()
		if err == nil {
			err = w.file(target, rc, mode, zf.Modified)
			_ = rc.Close()
		}
	}

	if err != nil {
		return errors.Wrapf(err, errors.ErrExtraction, "failed to extract %s", zf.Name).
			WithDetail("entry", zf.Name)
	}
	return nil
}

func readZipMember(zf *zip.File) (string, error) {
	rc, err := zf.Open()
	if err != nil {
		return "", err
	}
	defer func() {
		_ = rc.Close()
	}()
	data, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
