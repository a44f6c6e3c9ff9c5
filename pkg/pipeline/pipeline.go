// Package pipeline materializes a source into a directory: fetch, verify,
// extract, patch and overlay, in that order, stopping at the first failure.
package pipeline

import (
	"context"
	"net/http"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/arthur-debert/srcpack/pkg/config"
	"github.com/arthur-debert/srcpack/pkg/descriptor"
	"github.com/arthur-debert/srcpack/pkg/errors"
	"github.com/arthur-debert/srcpack/pkg/extract"
	"github.com/arthur-debert/srcpack/pkg/fetch"
	"github.com/arthur-debert/srcpack/pkg/filesystem"
	"github.com/arthur-debert/srcpack/pkg/logging"
	"github.com/arthur-debert/srcpack/pkg/overlay"
	"github.com/arthur-debert/srcpack/pkg/patch"
	"github.com/arthur-debert/srcpack/pkg/paths"
	"github.com/arthur-debert/srcpack/pkg/types"
	"github.com/arthur-debert/srcpack/pkg/verify"
)

// Result describes a run. Materialize returns it on failure too, with the
// fields filled in as far as the run got.
type Result struct {
	RunID          string
	DestDir        string
	ArchivePath    string
	FromCache      bool
	PatchesApplied int
	OverlayApplied bool
}

// CleanupFunc is called once at the end of every run, with the error that
// ended it or nil.
type CleanupFunc func(res *Result, err error)

// Pipeline runs the source acquisition steps with one configuration.
type Pipeline struct {
	cfg        *config.Config
	fs         types.FS
	httpClient *http.Client
	runner     patch.Runner
	cleanup    CleanupFunc
	logger     *zerolog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithFS sets the filesystem every step works on.
func WithFS(fsys types.FS) Option {
	return func(p *Pipeline) { p.fs = fsys }
}

// WithHTTPClient makes downloads use client.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Pipeline) { p.httpClient = client }
}

// WithPatchRunner replaces the command runner used to apply patches.
func WithPatchRunner(r patch.Runner) Option {
	return func(p *Pipeline) { p.runner = r }
}

// WithCleanup registers fn to run when Materialize returns.
func WithCleanup(fn CleanupFunc) Option {
	return func(p *Pipeline) { p.cleanup = fn }
}

// WithLogger replaces the per-run logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Pipeline) { p.logger = &logger }
}

// New creates a Pipeline. A nil cfg means the built-in defaults.
func New(cfg *config.Config, opts ...Option) *Pipeline {
	if cfg == nil {
		cfg = config.Default()
	}
	p := &Pipeline{
		cfg: cfg,
		fs:  filesystem.NewOS(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// MaterializeFile loads the descriptor at descriptorPath and materializes it.
func (p *Pipeline) MaterializeFile(ctx context.Context, descriptorPath, sourceID, destDir string) (*Result, error) {
	desc, err := descriptor.LoadFile(p.fs, descriptorPath, sourceID)
	if err != nil {
		return nil, err
	}
	return p.Materialize(ctx, desc, destDir)
}

// Materialize places the source described by desc into destDir. The
// checksum is verified before anything is written to destDir. Errors from
// the steps are returned with their codes intact; destDir is not rolled
// back.
func (p *Pipeline) Materialize(ctx context.Context, desc *types.SourceDescriptor, destDir string) (_ *Result, err error) {
	res := &Result{RunID: uuid.NewString(), DestDir: destDir}
	defer func() {
		if p.cleanup != nil {
			p.cleanup(res, err)
		}
	}()

	if desc == nil {
		return res, errors.New(errors.ErrInvalidInput, "no source descriptor")
	}
	if destDir == "" {
		return res, errors.New(errors.ErrInvalidInput, "no destination directory")
	}

	logger := logging.ForRun("pipeline", res.RunID, desc.SourceID)
	if p.logger != nil {
		logger = p.logger.With().Str("run", res.RunID).Str("source", desc.SourceID).Logger()
	}
	done := logging.LogOperationStart(logger, "materialize")
	defer done()
	defer func() {
		if err == nil {
			return
		}
		event := logger.Warn()
		if errors.IsFatal(err) {
			event = logger.Error()
		}
		event.Err(err).
			Str("code", string(errors.GetErrorCode(err))).
			Fields(errors.GetErrorDetails(err)).
			Msg("Materialize failed")
	}()

	layout, err := paths.New(p.cfg.Layout())
	if err != nil {
		return res, err
	}

	runDir := layout.RunDir(res.RunID)
	defer func() {
		if p.cfg.KeepWorkDir {
			p.keepRunDir(logger, runDir, desc)
			return
		}
		if rmErr := p.fs.RemoveAll(runDir); rmErr != nil {
			logger.Warn().Err(rmErr).Str("dir", runDir).Msg("Failed to remove work directory")
		}
	}()

	if err := p.fetch(ctx, logger, desc, layout, runDir, res); err != nil {
		return res, err
	}
	if err := p.verify(logger, desc, res); err != nil {
		return res, err
	}
	if err := p.extract(logger, desc, destDir, res); err != nil {
		return res, err
	}
	if err := p.patch(ctx, logger, desc, layout, destDir, res); err != nil {
		return res, err
	}
	if err := p.overlay(logger, desc, layout, destDir, res); err != nil {
		return res, err
	}

	logger.Info().
		Str("dest", destDir).
		Bool("from_cache", res.FromCache).
		Int("patches", res.PatchesApplied).
		Bool("overlay", res.OverlayApplied).
		Msg("Source materialized")
	return res, nil
}

func (p *Pipeline) fetch(ctx context.Context, logger zerolog.Logger, desc *types.SourceDescriptor, layout paths.Paths, runDir string, res *Result) error {
	defer logging.LogOperationStart(logger, "fetch")()

	opts := []fetch.Option{fetch.WithFS(p.fs), fetch.WithLogger(logger)}
	if p.httpClient != nil {
		opts = append(opts, fetch.WithHTTPClient(p.httpClient))
	}

	archive, fromCache, err := fetch.New(p.cfg.Fetch, opts...).Fetch(ctx, desc, layout.CacheDir(), runDir)
	if err != nil {
		return err
	}
	res.ArchivePath = archive
	res.FromCache = fromCache
	return nil
}

func (p *Pipeline) verify(logger zerolog.Logger, desc *types.SourceDescriptor, res *Result) error {
	defer logging.LogOperationStart(logger, "verify")()

	if desc.Checksum == "" && res.FromCache {
		logger.Warn().Str("archive", res.ArchivePath).Msg("No checksum given; trusting cached artifact")
		return nil
	}
	return verify.Verify(p.fs, res.ArchivePath, desc.Checksum, desc.Algorithm)
}

func (p *Pipeline) extract(logger zerolog.Logger, desc *types.SourceDescriptor, destDir string, res *Result) error {
	defer logging.LogOperationStart(logger, "extract")()

	ex := extract.New(extract.WithFS(p.fs), extract.WithLogger(logger))
	err := ex.Extract(res.ArchivePath, destDir, desc.Format, desc.Extract, desc.Strip)
	if err != nil && errors.IsErrorCode(err, errors.ErrUnrecognizedFormat) {
		var srcErr *errors.SrcpackError
		if errors.As(err, &srcErr) {
			srcErr.Message = "unrecognized archive format " + desc.RawFormat
			srcErr.WithDetail("format", desc.RawFormat)
		}
	}
	return err
}

func (p *Pipeline) patch(ctx context.Context, logger zerolog.Logger, desc *types.SourceDescriptor, layout paths.Paths, destDir string, res *Result) error {
	defer logging.LogOperationStart(logger, "patch")()

	opts := []patch.Option{patch.WithFS(p.fs), patch.WithLogger(logger)}
	if p.runner != nil {
		opts = append(opts, patch.WithRunner(p.runner))
	}

	applied, err := patch.New(p.cfg.Patch.Command, opts...).Apply(ctx, layout.PatchesDir(), desc.SourceID, destDir)
	res.PatchesApplied = applied
	return err
}

func (p *Pipeline) overlay(logger zerolog.Logger, desc *types.SourceDescriptor, layout paths.Paths, destDir string, res *Result) error {
	defer logging.LogOperationStart(logger, "overlay")()

	applied, err := overlay.New(p.fs).Apply(layout.ExtraFilesDir(), desc.SourceID, destDir)
	res.OverlayApplied = applied
	return err
}

// keepRunDir leaves runDir in place with the resolved descriptor written
// next to the artifact, so a kept run records what it fetched.
func (p *Pipeline) keepRunDir(logger zerolog.Logger, runDir string, desc *types.SourceDescriptor) {
	snapshot := filepath.Join(runDir, desc.SourceID+".src")
	err := p.fs.MkdirAll(runDir, 0755)
	if err == nil {
		err = p.fs.WriteFile(snapshot, []byte(descriptor.Encode(desc)), 0644)
	}
	if err != nil {
		logger.Warn().Err(err).Str("file", snapshot).Msg("Failed to record descriptor")
	}
	logger.Info().Str("dir", runDir).Msg("Keeping work directory")
}
