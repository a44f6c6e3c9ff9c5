package extract

import (
	"archive/tar"
	"compress/bzip2"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"

	"github.com/arthur-debert/srcpack/pkg/errors"
	"github.com/arthur-debert/srcpack/pkg/types"
)

// decompress wraps r with the decoder for format's compression layer.
func decompress(format types.Format, r io.Reader) (io.Reader, func(), error) {
	noop := func() {}
	switch format {
	case types.FormatTar:
		return r, noop, nil
	case types.FormatTarGz:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, noop, err
		}
		return gz, func() { _ = gz.Close() }, nil
	case types.FormatTarBz2:
		return bzip2.NewReader(r), noop, nil
	case types.FormatTarXz:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, noop, err
		}
		return xr, noop, nil
	case types.FormatTarZst:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, noop, err
		}
		return zr, zr.Close, nil
	case types.FormatTarLz4:
		return lz4.NewReader(r), noop, nil
	default:
		return nil, noop, fmt.Errorf("%s is not a tar format", format)
	}
}

// extractTar streams the archive straight into destDir, dropping strip
// leading components from every member name.
func (e *Extractor) extractTar(archivePath, destDir string, format types.Format, strip int) error {
	f, err := e.fs.Open(archivePath)
	if err != nil {
		return errors.Wrapf(err, errors.ErrExtraction, "failed to open %s", archivePath)
	}
	defer func() {
		_ = f.Close()
	}()

	r, closeDecoder, err := decompress(format, f)
	if err != nil {
		return errors.Wrapf(err, errors.ErrExtraction, "failed to read %s as %s", archivePath, format)
	}
	defer closeDecoder()

	w := &treeWriter{fs: e.fs, root: destDir}
	tr := tar.NewReader(r)
	count := 0
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrapf(err, errors.ErrExtraction, "failed to read %s", archivePath)
		}

		if err := e.writeTarEntry(w, tr, hdr, destDir, strip); err != nil {
			return err
		}
		count++
	}

	if err := w.finish(); err != nil {
		return errors.Wrapf(err, errors.ErrExtraction, "failed to set directory attributes in %s", destDir)
	}

	e.logger.Info().
		Str("archive", archivePath).
		Str("dest", destDir).
		Int("entries", count).
		Msg("Extracted tar archive")
	return nil
}

func (e *Extractor) writeTarEntry(w *treeWriter, tr *tar.Reader, hdr *tar.Header, destDir string, strip int) error {
	name := stripComponents(hdr.Name, strip)
	if name == "" {
		return nil
	}
	target, err := safeJoin(destDir, name)
	if err != nil {
		return err
	}
	if target == destDir {
		return nil
	}

	mode := hdr.FileInfo().Mode()
	switch hdr.Typeflag {
	case tar.TypeDir:
		err = w.dir(target, mode, hdr.ModTime)
	case tar.TypeReg:
		err = w.file(target, tr, mode, hdr.ModTime)
	case tar.TypeSymlink:
		err = w.symlink(target, hdr.Linkname)
	case tar.TypeLink:
		linkName := stripComponents(hdr.Linkname, strip)
		if linkName == "" {
			return errors.Newf(errors.ErrExtraction, "hard link %q points at %q, which is stripped", hdr.Name, hdr.Linkname)
		}
		existing, joinErr := safeJoin(destDir, linkName)
		if joinErr != nil {
			return joinErr
		}
		err = w.hardlink(target, existing)
	default:
		e.logger.Debug().
			Str("entry", hdr.Name).
			Str("type", string(hdr.Typeflag)).
			Msg("Skipping unsupported tar entry")
		return nil
	}

	if err != nil {
		return errors.Wrapf(err, errors.ErrExtraction, "failed to extract %s", hdr.Name).
			WithDetail("entry", hdr.Name)
	}
	return nil
}
