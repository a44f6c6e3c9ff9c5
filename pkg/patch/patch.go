// Package patch applies a source's patch series on top of its extracted
// tree.
package patch

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/srcpack/pkg/errors"
	"github.com/arthur-debert/srcpack/pkg/filesystem"
	"github.com/arthur-debert/srcpack/pkg/logging"
	"github.com/arthur-debert/srcpack/pkg/paths"
	"github.com/arthur-debert/srcpack/pkg/types"
)

// DefaultCommand is the patch program used when none is configured.
const DefaultCommand = "patch"

// Applier applies patch files with an external patch program.
type Applier struct {
	fs      types.FS
	runner  Runner
	command string
	logger  zerolog.Logger
}

// Option configures an Applier.
type Option func(*Applier)

// WithFS sets the filesystem patch directories are listed through.
func WithFS(fsys types.FS) Option {
	return func(a *Applier) { a.fs = fsys }
}

// WithRunner replaces the command runner.
func WithRunner(r Runner) Option {
	return func(a *Applier) { a.runner = r }
}

// WithLogger replaces the component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(a *Applier) { a.logger = logger }
}

// New creates an Applier that runs command for every patch.
func New(command string, opts ...Option) *Applier {
	if command == "" {
		command = DefaultCommand
	}
	a := &Applier{
		fs:      filesystem.NewOS(),
		runner:  NewExecRunner(),
		command: command,
		logger:  logging.GetLogger("patch"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Find returns the patches for sourceID in patchDir, in the order they are
// applied. A missing patchDir yields no patches.
func (a *Applier) Find(patchDir, sourceID string) ([]string, error) {
	entries, err := a.fs.ReadDir(patchDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "failed to list patches in %s", patchDir)
	}

	pattern := paths.PatchPattern(sourceID)
	var patches []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if ok, _ := filepath.Match(pattern, entry.Name()); ok {
			patches = append(patches, filepath.Join(patchDir, entry.Name()))
		}
	}
	sort.Strings(patches)
	return patches, nil
}

// Apply applies every sourceID patch in patchDir to destDir with strip
// prefix 1, stopping at the first failure. Patches applied before the
// failing one are left in place.
func (a *Applier) Apply(ctx context.Context, patchDir, sourceID, destDir string) (int, error) {
	patches, err := a.Find(patchDir, sourceID)
	if err != nil {
		return 0, err
	}
	if len(patches) == 0 {
		a.logger.Debug().Str("dir", patchDir).Str("source_id", sourceID).Msg("No patches to apply")
		return 0, nil
	}

	applied := 0
	for _, p := range patches {
		abs, err := filepath.Abs(p)
		if err != nil {
			return applied, errors.Wrapf(err, errors.ErrFileAccess, "failed to resolve %s", p)
		}

		out, err := a.runner.Run(ctx, destDir, a.command, "-p1", "--forward", "--batch", "-i", abs)
		if err != nil {
			return applied, errors.Wrapf(err, errors.ErrPatchFailed, "patch %s failed", filepath.Base(p)).
				WithDetail("patch", filepath.Base(p)).
				WithDetail("output", out.Combined())
		}

		a.logger.Info().Str("patch", filepath.Base(p)).Str("dest", destDir).Msg("Applied patch")
		applied++
	}
	return applied, nil
}
