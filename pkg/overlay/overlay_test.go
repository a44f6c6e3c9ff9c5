// TEST TYPE: Integration
// DEPENDENCIES: real temp directories
// PURPOSE: overlay copy semantics and idempotence
package overlay_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/arthur-debert/srcpack/pkg/errors"
	"github.com/arthur-debert/srcpack/pkg/filesystem"
	"github.com/arthur-debert/srcpack/pkg/overlay"
	"github.com/arthur-debert/srcpack/pkg/testutil"
	"github.com/arthur-debert/srcpack/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupExtraFiles(t *testing.T) string {
	t.Helper()

	extra := t.TempDir()
	testutil.WriteFile(t, filepath.Join(extra, "app", "config", "settings.ini"), "[main]\n", 0600)
	testutil.WriteFile(t, filepath.Join(extra, "app", "bin", "start.sh"), "#!/bin/sh\n", 0755)
	require.NoError(t, os.Symlink("config/settings.ini", filepath.Join(extra, "app", "settings")))

	mtime := time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, os.Chtimes(filepath.Join(extra, "app", "bin", "start.sh"), mtime, mtime))
	return extra
}

func TestApply_CopiesWithArchiveSemantics(t *testing.T) {
	extra := setupExtraFiles(t)
	dest := t.TempDir()
	testutil.WriteFile(t, filepath.Join(dest, "README"), "upstream\n", 0644)

	applied, err := overlay.New(filesystem.NewOS()).Apply(extra, "app", dest)
	require.NoError(t, err)
	assert.True(t, applied)

	tree := testutil.SnapshotTree(t, dest)
	assert.Equal(t, "upstream\n", tree["README"].Content)
	assert.Equal(t, os.FileMode(0600), tree["config/settings.ini"].Mode)
	assert.Equal(t, os.FileMode(0755), tree["bin/start.sh"].Mode)
	assert.Equal(t, time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC).Unix(), tree["bin/start.sh"].ModTime)
	assert.Equal(t, "config/settings.ini", tree["settings"].LinkTarget)
}

func TestApply_OverwritesCollisions(t *testing.T) {
	extra := setupExtraFiles(t)
	dest := t.TempDir()

	// A file where the overlay has a symlink, and a symlink where it has a file.
	testutil.WriteFile(t, filepath.Join(dest, "settings"), "stale\n", 0644)
	outside := filepath.Join(t.TempDir(), "outside.sh")
	testutil.WriteFile(t, outside, "keep me\n", 0644)
	require.NoError(t, os.MkdirAll(filepath.Join(dest, "bin"), 0755))
	require.NoError(t, os.Symlink(outside, filepath.Join(dest, "bin", "start.sh")))

	_, err := overlay.New(filesystem.NewOS()).Apply(extra, "app", dest)
	require.NoError(t, err)

	tree := testutil.SnapshotTree(t, dest)
	assert.Equal(t, "config/settings.ini", tree["settings"].LinkTarget)
	assert.Equal(t, "#!/bin/sh\n", tree["bin/start.sh"].Content)

	data, err := os.ReadFile(outside)
	require.NoError(t, err)
	assert.Equal(t, "keep me\n", string(data))
}

func TestApply_Idempotent(t *testing.T) {
	extra := setupExtraFiles(t)
	dest := t.TempDir()
	a := overlay.New(filesystem.NewOS())

	_, err := a.Apply(extra, "app", dest)
	require.NoError(t, err)
	once := testutil.SnapshotTree(t, dest)

	_, err = a.Apply(extra, "app", dest)
	require.NoError(t, err)
	assert.Equal(t, once, testutil.SnapshotTree(t, dest))
}

func TestApply_NoExtraFiles(t *testing.T) {
	dest := t.TempDir()

	applied, err := overlay.New(filesystem.NewOS()).Apply(t.TempDir(), "app", dest)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Empty(t, testutil.ListNames(t, dest))

	applied, err = overlay.New(filesystem.NewOS()).Apply(filepath.Join(t.TempDir(), "missing"), "app", dest)
	require.NoError(t, err)
	assert.False(t, applied)
}

// deniedFS fails every Stat of one path with a permission error.
type deniedFS struct {
	types.FS
	path string
}

func (d deniedFS) Stat(name string) (fs.FileInfo, error) {
	if name == d.path {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrPermission}
	}
	return d.FS.Stat(name)
}

func TestApply_UnreadableExtraFilesFails(t *testing.T) {
	fsys := deniedFS{FS: filesystem.NewMemory(), path: filepath.Join("/extra", "app")}
	require.NoError(t, fsys.MkdirAll("/extra/app/etc", 0755))
	require.NoError(t, fsys.WriteFile("/extra/app/etc/app.conf", []byte("x=1\n"), 0644))
	require.NoError(t, fsys.MkdirAll("/dest", 0755))

	applied, err := overlay.New(fsys).Apply("/extra", "app", "/dest")
	require.Error(t, err)
	assert.False(t, applied)
	assert.True(t, errors.IsErrorCode(err, errors.ErrOverlay))
	assert.ErrorIs(t, err, fs.ErrPermission)

	_, statErr := fsys.FS.Stat("/dest/etc/app.conf")
	assert.ErrorIs(t, statErr, fs.ErrNotExist)
}

func TestApply_UnsearchableParentFails(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	extra := setupExtraFiles(t)
	require.NoError(t, os.Chmod(extra, 0000))
	t.Cleanup(func() { _ = os.Chmod(extra, 0755) })

	applied, err := overlay.New(filesystem.NewOS()).Apply(extra, "app", t.TempDir())
	require.Error(t, err)
	assert.False(t, applied)
	assert.True(t, errors.IsErrorCode(err, errors.ErrOverlay))
}

func TestApply_ExtraFilesPathIsFile(t *testing.T) {
	extra := t.TempDir()
	testutil.WriteFile(t, filepath.Join(extra, "app"), "not a dir\n", 0644)

	applied, err := overlay.New(filesystem.NewOS()).Apply(extra, "app", t.TempDir())
	require.Error(t, err)
	assert.False(t, applied)
	assert.True(t, errors.IsErrorCode(err, errors.ErrOverlay))
}

func TestApply_InMemory(t *testing.T) {
	fsys := filesystem.NewMemory()
	require.NoError(t, fsys.MkdirAll("/extra/app/etc", 0755))
	require.NoError(t, fsys.WriteFile("/extra/app/etc/app.conf", []byte("x=1\n"), 0644))
	require.NoError(t, fsys.MkdirAll("/dest", 0755))

	applied, err := overlay.New(fsys).Apply("/extra", "app", "/dest")
	require.NoError(t, err)
	assert.True(t, applied)

	data, err := fsys.ReadFile("/dest/etc/app.conf")
	require.NoError(t, err)
	assert.Equal(t, "x=1\n", string(data))
}
