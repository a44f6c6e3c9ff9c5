package testutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// FileState is what SnapshotTree records for one path.
type FileState struct {
	Mode       os.FileMode
	Content    string
	LinkTarget string
	// ModTime is recorded for regular files only, in Unix seconds.
	ModTime int64
}

// SnapshotTree walks root without following symlinks and returns the state
// of every path below it, keyed by slash-separated relative path.
func SnapshotTree(t *testing.T, root string) map[string]FileState {
	t.Helper()

	snapshot := make(map[string]FileState)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		info, err := os.Lstat(path)
		if err != nil {
			return err
		}

		state := FileState{Mode: info.Mode()}
		switch {
		case info.Mode()&fs.ModeSymlink != 0:
			target, err := os.Readlink(path)
			if err != nil {
				return err
			}
			state.LinkTarget = target
		case info.Mode().IsRegular():
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			state.Content = string(data)
			state.ModTime = info.ModTime().Unix()
		}
		snapshot[filepath.ToSlash(rel)] = state
		return nil
	})
	require.NoError(t, err)
	return snapshot
}
