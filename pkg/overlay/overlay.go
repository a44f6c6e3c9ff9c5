// Package overlay copies a source's extra files over its extracted tree.
package overlay

import (
	"io/fs"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/srcpack/pkg/errors"
	"github.com/arthur-debert/srcpack/pkg/filesystem"
	"github.com/arthur-debert/srcpack/pkg/logging"
	"github.com/arthur-debert/srcpack/pkg/paths"
	"github.com/arthur-debert/srcpack/pkg/types"
)

// Applier copies extra files into destination trees.
type Applier struct {
	fs     types.FS
	logger zerolog.Logger
}

// New creates an Applier on fsys.
func New(fsys types.FS) *Applier {
	return &Applier{fs: fsys, logger: logging.GetLogger("overlay")}
}

// Apply copies extraFilesDir/sourceID into destDir with archive semantics.
// Colliding paths in destDir are replaced. It reports false, and does
// nothing, when the source has no extra files directory. Any other failure
// to inspect that directory is an error.
func (a *Applier) Apply(extraFilesDir, sourceID, destDir string) (bool, error) {
	src := paths.OverlayDir(extraFilesDir, sourceID)
	info, err := a.fs.Stat(src)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		a.logger.Debug().Str("dir", src).Msg("No extra files")
		return false, nil
	case err != nil:
		return false, errors.Wrapf(err, errors.ErrOverlay, "failed to inspect extra files in %s", src).
			WithDetail("source_id", sourceID)
	case !info.IsDir():
		return false, errors.Newf(errors.ErrOverlay, "extra files path %s is not a directory", src).
			WithDetail("source_id", sourceID)
	}

	if err := filesystem.CopyTree(a.fs, src, destDir); err != nil {
		return false, errors.Wrapf(err, errors.ErrOverlay, "failed to copy extra files from %s", src).
			WithDetail("source_id", sourceID)
	}

	a.logger.Info().Str("from", src).Str("dest", destDir).Msg("Applied extra files")
	return true, nil
}
