package paths

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/arthur-debert/srcpack/pkg/errors"
)

// Environment variable names
const (
	// EnvHome is the standard home directory variable
	EnvHome = "HOME"

	// EnvStateHome is read directly; adrg/xdg resolves it at init time only.
	EnvStateHome = "XDG_STATE_HOME"
)

// Default directories and files
const (
	// AppDirName is the directory name for srcpack-specific files
	AppDirName = "srcpack"

	// DefaultInstanceID keys the cache when no instance is configured
	DefaultInstanceID = "default"

	// DefaultPatchesDir is relative to the working directory
	DefaultPatchesDir = "patches"

	// DefaultExtraFilesDir is relative to the working directory
	DefaultExtraFilesDir = "sources/extra_files"

	// PatchSuffix is the extension every patch file carries
	PatchSuffix = ".patch"

	// ConfigFileName is the name of the user configuration file
	ConfigFileName = "config.toml"

	// LogFileName is the name of the log file
	LogFileName = "srcpack.log"

	// RunDirPrefix prefixes per-run scratch directories
	RunDirPrefix = "run-"
)

// Layout is the raw, possibly relative, set of directories a pipeline is
// configured with. Empty fields take their defaults.
type Layout struct {
	CacheRoot     string
	InstanceID    string
	PatchesDir    string
	ExtraFilesDir string
	WorkDir       string
}

// Paths provides the resolved directory layout for one pipeline
type Paths interface {
	CacheRoot() string
	InstanceID() string
	CacheDir() string
	PatchesDir() string
	ExtraFilesDir() string
	WorkDir() string
	RunDir(runID string) string
}

type paths struct {
	cacheRoot     string
	instanceID    string
	patchesDir    string
	extraFilesDir string
	workDir       string
}

// New resolves a Layout into absolute paths, filling defaults.
func New(layout Layout) (Paths, error) {
	p := &paths{
		cacheRoot:     layout.CacheRoot,
		instanceID:    layout.InstanceID,
		patchesDir:    layout.PatchesDir,
		extraFilesDir: layout.ExtraFilesDir,
		workDir:       layout.WorkDir,
	}

	if p.cacheRoot == "" {
		p.cacheRoot = DefaultCacheRoot()
	}
	if p.instanceID == "" {
		p.instanceID = DefaultInstanceID
	}
	if strings.ContainsAny(p.instanceID, `/\`) || p.instanceID == "." || p.instanceID == ".." {
		return nil, errors.Newf(errors.ErrInvalidInput, "instance id %q must be a single path component", p.instanceID)
	}
	if p.patchesDir == "" {
		p.patchesDir = DefaultPatchesDir
	}
	if p.extraFilesDir == "" {
		p.extraFilesDir = DefaultExtraFilesDir
	}
	if p.workDir == "" {
		p.workDir = os.TempDir()
	}

	for _, dir := range []*string{&p.cacheRoot, &p.patchesDir, &p.extraFilesDir, &p.workDir} {
		abs, err := filepath.Abs(ExpandHome(*dir))
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrFileAccess, "failed to get absolute path for %s", *dir)
		}
		*dir = abs
	}

	return p, nil
}

// DefaultCacheRoot is $XDG_CACHE_HOME/srcpack
func DefaultCacheRoot() string {
	return filepath.Join(xdg.CacheHome, AppDirName)
}

// DefaultConfigFile is $XDG_CONFIG_HOME/srcpack/config.toml
func DefaultConfigFile() string {
	return filepath.Join(xdg.ConfigHome, AppDirName, ConfigFileName)
}

// StateDir is $XDG_STATE_HOME/srcpack, checked at call time so tests can
// point it elsewhere.
func StateDir() string {
	if stateDir := os.Getenv(EnvStateHome); stateDir != "" {
		return filepath.Join(stateDir, AppDirName)
	}
	return filepath.Join(xdg.StateHome, AppDirName)
}

// ExpandHome expands a leading ~ to the home directory
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = os.Getenv(EnvHome)
		if homeDir == "" {
			return path
		}
	}

	if len(path) == 1 {
		return homeDir
	}
	if path[1] == '/' || path[1] == filepath.Separator {
		return filepath.Join(homeDir, path[2:])
	}
	// ~user is left alone
	return path
}

func (p *paths) CacheRoot() string { return p.cacheRoot }

func (p *paths) InstanceID() string { return p.instanceID }

// CacheDir is the cache directory for this instance: <cache root>/<instance id>
func (p *paths) CacheDir() string {
	return filepath.Join(p.cacheRoot, p.instanceID)
}

func (p *paths) PatchesDir() string { return p.patchesDir }

func (p *paths) ExtraFilesDir() string { return p.extraFilesDir }

func (p *paths) WorkDir() string { return p.workDir }

// RunDir is the private scratch directory of one pipeline run.
func (p *paths) RunDir(runID string) string {
	return filepath.Join(p.workDir, RunDirPrefix+runID)
}

// PatchPattern is the glob, relative to a patches directory, selecting a
// source's patches.
func PatchPattern(sourceID string) string {
	return sourceID + "-*" + PatchSuffix
}

// OverlayDir is the extra-files tree for one source.
func OverlayDir(extraFilesDir, sourceID string) string {
	return filepath.Join(extraFilesDir, sourceID)
}
