// Package extract unpacks a verified artifact into its destination
// directory according to the artifact's format and strip setting.
package extract

import (
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/srcpack/pkg/errors"
	"github.com/arthur-debert/srcpack/pkg/filesystem"
	"github.com/arthur-debert/srcpack/pkg/logging"
	"github.com/arthur-debert/srcpack/pkg/types"
)

// Extractor places artifacts into destination directories.
type Extractor struct {
	fs     types.FS
	logger zerolog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithFS sets the filesystem archives are read from and written to.
func WithFS(fsys types.FS) Option {
	return func(e *Extractor) { e.fs = fsys }
}

// WithLogger replaces the component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Extractor) { e.logger = logger }
}

// New creates an Extractor working on the real filesystem by default.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		fs:     filesystem.NewOS(),
		logger: logging.GetLogger("extract"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract unpacks archivePath into destDir on the real filesystem.
func Extract(archivePath, destDir string, format types.Format, extract bool, strip types.StripLevels) error {
	return New().Extract(archivePath, destDir, format, extract, strip)
}

// Extract unpacks archivePath into destDir. destDir and its parents are
// created first. With extract false, or for FormatNone, the artifact is
// moved into destDir as it is.
func (e *Extractor) Extract(archivePath, destDir string, format types.Format, extract bool, strip types.StripLevels) error {
	destDir = filepath.Clean(destDir)
	if err := e.fs.MkdirAll(destDir, 0755); err != nil {
		return errors.Wrapf(err, errors.ErrDirCreate, "failed to create destination %s", destDir)
	}

	strategy := format.Strategy()
	if !extract {
		strategy = types.StrategyRaw
	}

	e.logger.Debug().
		Str("archive", archivePath).
		Str("dest", destDir).
		Str("format", format.String()).
		Str("strip", strip.String()).
		Msg("Extracting")

	switch strategy {
	case types.StrategyRaw:
		return e.placeRaw(archivePath, destDir)
	case types.StrategyTar:
		return e.extractTar(archivePath, destDir, format, strip.Count())
	case types.StrategyZip:
		return e.extractZip(archivePath, destDir, strip)
	default:
		return errors.Newf(errors.ErrUnrecognizedFormat, "unrecognized archive format %s", format).
			WithDetail("archive", archivePath)
	}
}

func (e *Extractor) placeRaw(archivePath, destDir string) error {
	target := filepath.Join(destDir, filepath.Base(archivePath))
	if err := filesystem.MoveFile(e.fs, archivePath, target); err != nil {
		return errors.Wrapf(err, errors.ErrExtraction, "failed to move %s into %s", archivePath, destDir)
	}
	return nil
}
