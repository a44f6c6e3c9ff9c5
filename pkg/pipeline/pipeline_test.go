// TEST TYPE: End-to-end
// DEPENDENCIES: httptest server, real temp directories, fake patch runner
// PURPOSE: step ordering, halting on failure and the cleanup hook
package pipeline_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/arthur-debert/srcpack/pkg/config"
	"github.com/arthur-debert/srcpack/pkg/descriptor"
	"github.com/arthur-debert/srcpack/pkg/errors"
	"github.com/arthur-debert/srcpack/pkg/patch"
	"github.com/arthur-debert/srcpack/pkg/pipeline"
	"github.com/arthur-debert/srcpack/pkg/testutil"
	"github.com/arthur-debert/srcpack/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	cfg     *config.Config
	archive []byte
	server  *httptest.Server
	hits    *int32
}

func newEnv(t *testing.T) *env {
	t.Helper()

	root := t.TempDir()
	cfg := config.Default()
	cfg.CacheRoot = filepath.Join(root, "cache")
	cfg.PatchesDir = filepath.Join(root, "patches")
	cfg.ExtraFilesDir = filepath.Join(root, "extra")
	cfg.WorkDir = filepath.Join(root, "work")
	cfg.Fetch.ConnectTimeout = 5 * time.Second
	cfg.Fetch.Timeout = 5 * time.Second

	archive := testutil.TarGz(t,
		testutil.Dir("pkg"),
		testutil.File("pkg/a.txt", "hello\n"),
	)

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write(archive)
	}))
	t.Cleanup(srv.Close)

	return &env{cfg: cfg, archive: archive, server: srv, hits: &hits}
}

func (e *env) descriptor() *types.SourceDescriptor {
	return &types.SourceDescriptor{
		SourceID:  "app",
		URL:       e.server.URL + "/app-1.0.tar.gz",
		Checksum:  testutil.GetTestChecksum(e.archive),
		Algorithm: types.ChecksumSHA256,
		Format:    types.FormatTarGz,
		RawFormat: "tar.gz",
		Extract:   true,
		Strip:     types.StripOne(),
		Filename:  "app.tar.gz",
	}
}

func TestMaterialize_StripTrue(t *testing.T) {
	e := newEnv(t)
	dest := filepath.Join(t.TempDir(), "dest")

	res, err := pipeline.New(e.cfg).Materialize(context.Background(), e.descriptor(), dest)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dest, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))

	assert.Equal(t, dest, res.DestDir)
	assert.False(t, res.FromCache)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, int32(1), atomic.LoadInt32(e.hits))
}

func TestMaterialize_StripFalse(t *testing.T) {
	e := newEnv(t)
	dest := t.TempDir()
	desc := e.descriptor()
	desc.Strip = types.NoStrip()

	_, err := pipeline.New(e.cfg).Materialize(context.Background(), desc, dest)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dest, "pkg", "a.txt"))
	assert.NoFileExists(t, filepath.Join(dest, "a.txt"))
}

func TestMaterialize_WrongChecksumLeavesDestinationEmpty(t *testing.T) {
	e := newEnv(t)
	dest := t.TempDir()
	desc := e.descriptor()
	desc.Checksum = testutil.GetTestChecksum([]byte("something else"))

	var calls int
	var hookErr error
	p := pipeline.New(e.cfg, pipeline.WithCleanup(func(_ *pipeline.Result, err error) {
		calls++
		hookErr = err
	}))

	res, err := p.Materialize(context.Background(), desc, dest)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCorruptSource))
	require.NotNil(t, res)
	assert.NotEmpty(t, res.RunID)
	assert.NotEmpty(t, res.ArchivePath)
	assert.False(t, res.FromCache)

	assert.Empty(t, testutil.ListNames(t, dest))
	assert.Equal(t, 1, calls)
	assert.Equal(t, err, hookErr)
}

func TestMaterialize_CleanupCalledOnceOnSuccess(t *testing.T) {
	e := newEnv(t)

	var calls int
	var seen *pipeline.Result
	p := pipeline.New(e.cfg, pipeline.WithCleanup(func(res *pipeline.Result, err error) {
		calls++
		seen = res
		assert.NoError(t, err)
	}))

	res, err := p.Materialize(context.Background(), e.descriptor(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Same(t, res, seen)
}

func TestMaterialize_RemovesWorkDir(t *testing.T) {
	e := newEnv(t)

	_, err := pipeline.New(e.cfg).Materialize(context.Background(), e.descriptor(), t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, testutil.ListNames(t, e.cfg.WorkDir))

	e.cfg.KeepWorkDir = true
	res, err := pipeline.New(e.cfg).Materialize(context.Background(), e.descriptor(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, []string{"run-" + res.RunID}, testutil.ListNames(t, e.cfg.WorkDir))

	snapshot, err := os.ReadFile(filepath.Join(e.cfg.WorkDir, "run-"+res.RunID, "app.src"))
	require.NoError(t, err)
	again, err := descriptor.Parse(bytes.NewReader(snapshot), "app")
	require.NoError(t, err)
	assert.Equal(t, e.descriptor(), again)
}

func TestMaterialize_CacheHit(t *testing.T) {
	e := newEnv(t)
	testutil.WriteBytes(t, filepath.Join(e.cfg.CacheRoot, "default", "app.tar.gz"), e.archive)
	dest := t.TempDir()

	res, err := pipeline.New(e.cfg).Materialize(context.Background(), e.descriptor(), dest)
	require.NoError(t, err)

	assert.True(t, res.FromCache)
	assert.Equal(t, int32(0), atomic.LoadInt32(e.hits))
	assert.FileExists(t, filepath.Join(dest, "a.txt"))
}

func TestMaterialize_CorruptCacheIsFatal(t *testing.T) {
	e := newEnv(t)
	testutil.WriteBytes(t, filepath.Join(e.cfg.CacheRoot, "default", "app.tar.gz"), []byte("truncated"))

	_, err := pipeline.New(e.cfg).Materialize(context.Background(), e.descriptor(), t.TempDir())
	assert.True(t, errors.IsErrorCode(err, errors.ErrCorruptSource))
	assert.Equal(t, int32(0), atomic.LoadInt32(e.hits))
}

func TestMaterialize_FetchFailure(t *testing.T) {
	e := newEnv(t)
	var hits int32
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer failing.Close()

	desc := e.descriptor()
	desc.URL = failing.URL + "/missing.tar.gz"

	var hookErr error
	p := pipeline.New(e.cfg, pipeline.WithCleanup(func(_ *pipeline.Result, err error) { hookErr = err }))

	_, err := p.Materialize(context.Background(), desc, t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrFetch))
	assert.True(t, errors.IsErrorCode(hookErr, errors.ErrFetch))
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestMaterialize_UnrecognizedFormat(t *testing.T) {
	e := newEnv(t)
	desc := e.descriptor()
	desc.Format = types.ParseFormat("rar")
	desc.RawFormat = "rar"

	_, err := pipeline.New(e.cfg).Materialize(context.Background(), desc, t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrUnrecognizedFormat))
	assert.Equal(t, "rar", errors.GetErrorDetails(err)["format"])
	assert.Contains(t, err.Error(), "rar")
}

type recordingRunner struct {
	patches []string
	fail    bool
}

func (r *recordingRunner) Run(_ context.Context, _, _ string, args ...string) (patch.Output, error) {
	r.patches = append(r.patches, filepath.Base(args[len(args)-1]))
	if r.fail {
		return patch.Output{Stderr: "hunk FAILED"}, fmt.Errorf("exit status 1")
	}
	return patch.Output{}, nil
}

func TestMaterialize_PatchesAndOverlay(t *testing.T) {
	e := newEnv(t)
	testutil.WriteFile(t, filepath.Join(e.cfg.PatchesDir, "app-002-second.patch"), "", 0644)
	testutil.WriteFile(t, filepath.Join(e.cfg.PatchesDir, "app-001-first.patch"), "", 0644)
	testutil.WriteFile(t, filepath.Join(e.cfg.PatchesDir, "other-001.patch"), "", 0644)
	testutil.WriteFile(t, filepath.Join(e.cfg.ExtraFilesDir, "app", "a.txt"), "overlaid\n", 0644)
	testutil.WriteFile(t, filepath.Join(e.cfg.ExtraFilesDir, "app", "conf", "extra.ini"), "x=1\n", 0600)

	runner := &recordingRunner{}
	dest := t.TempDir()
	res, err := pipeline.New(e.cfg, pipeline.WithPatchRunner(runner)).Materialize(context.Background(), e.descriptor(), dest)
	require.NoError(t, err)

	assert.Equal(t, []string{"app-001-first.patch", "app-002-second.patch"}, runner.patches)
	assert.Equal(t, 2, res.PatchesApplied)
	assert.True(t, res.OverlayApplied)

	tree := testutil.SnapshotTree(t, dest)
	assert.Equal(t, "overlaid\n", tree["a.txt"].Content)
	assert.Equal(t, os.FileMode(0600), tree["conf/extra.ini"].Mode)
}

func TestMaterialize_PatchFailureSkipsOverlay(t *testing.T) {
	e := newEnv(t)
	testutil.WriteFile(t, filepath.Join(e.cfg.PatchesDir, "app-001.patch"), "", 0644)
	testutil.WriteFile(t, filepath.Join(e.cfg.ExtraFilesDir, "app", "extra.txt"), "x\n", 0644)

	dest := t.TempDir()
	res, err := pipeline.New(e.cfg, pipeline.WithPatchRunner(&recordingRunner{fail: true})).
		Materialize(context.Background(), e.descriptor(), dest)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrPatchFailed))
	require.NotNil(t, res)
	assert.Equal(t, dest, res.DestDir)
	assert.Equal(t, 0, res.PatchesApplied)
	assert.False(t, res.OverlayApplied)

	// Extraction already happened and is not rolled back.
	assert.FileExists(t, filepath.Join(dest, "a.txt"))
	assert.NoFileExists(t, filepath.Join(dest, "extra.txt"))
}

func TestMaterializeFile(t *testing.T) {
	e := newEnv(t)
	descPath := filepath.Join(t.TempDir(), "app.src")
	testutil.WriteFile(t, descPath, fmt.Sprintf(
		"SOURCE_URL=%s/app-1.0.tar.gz\nSOURCE_SUM=%s\nSOURCE_IN_SUBDIR=false\n",
		e.server.URL, testutil.GetTestChecksum(e.archive)), 0644)
	dest := t.TempDir()

	res, err := pipeline.New(e.cfg).MaterializeFile(context.Background(), descPath, "app", dest)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dest, "pkg", "a.txt"))
	assert.Equal(t, dest, res.DestDir)
}

func TestMaterialize_InvalidInput(t *testing.T) {
	e := newEnv(t)
	var calls int
	p := pipeline.New(e.cfg, pipeline.WithCleanup(func(*pipeline.Result, error) { calls++ }))

	_, err := p.Materialize(context.Background(), nil, t.TempDir())
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))

	_, err = p.Materialize(context.Background(), e.descriptor(), "")
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
	assert.Equal(t, 2, calls)
}
