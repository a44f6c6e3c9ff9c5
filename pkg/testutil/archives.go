package testutil

import (
	"archive/tar"
	"bytes"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

// FixtureTime is the modification time given to every archive entry.
var FixtureTime = time.Date(2024, 5, 17, 10, 30, 0, 0, time.UTC)

// Entry is one member of a test archive. Names ending in "/" are
// directories; a non-empty Link makes the entry a symlink.
type Entry struct {
	Name    string
	Content string
	Mode    os.FileMode
	Link    string
}

// Dir returns a directory entry.
func Dir(name string) Entry {
	return Entry{Name: strings.TrimSuffix(name, "/") + "/", Mode: 0755}
}

// File returns a regular file entry with mode 0644.
func File(name, content string) Entry {
	return Entry{Name: name, Content: content, Mode: 0644}
}

// Symlink returns a symlink entry.
func Symlink(name, target string) Entry {
	return Entry{Name: name, Link: target, Mode: 0777}
}

func (e Entry) isDir() bool { return strings.HasSuffix(e.Name, "/") }

// Tar returns an uncompressed tar archive holding entries.
func Tar(t *testing.T, entries ...Entry) []byte {
	t.Helper()

	var buf bytes.Buffer
	writeTar(t, &buf, entries)
	return buf.Bytes()
}

// TarGz returns a gzip-compressed tar archive.
func TarGz(t *testing.T, entries ...Entry) []byte {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	writeTar(t, gz, entries)
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

// TarXz returns an xz-compressed tar archive.
func TarXz(t *testing.T, entries ...Entry) []byte {
	t.Helper()

	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	require.NoError(t, err)
	writeTar(t, w, entries)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// TarZst returns a zstd-compressed tar archive.
func TarZst(t *testing.T, entries ...Entry) []byte {
	t.Helper()

	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	writeTar(t, w, entries)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// TarLz4 returns an lz4-compressed tar archive.
func TarLz4(t *testing.T, entries ...Entry) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	writeTar(t, w, entries)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func writeTar(t *testing.T, w io.Writer, entries []Entry) {
	t.Helper()

	tw := tar.NewWriter(w)
	for _, e := range entries {
		hdr := &tar.Header{
			Name:    e.Name,
			Mode:    int64(e.Mode.Perm()),
			ModTime: FixtureTime,
			Format:  tar.FormatPAX,
		}
		switch {
		case e.Link != "":
			hdr.Typeflag = tar.TypeSymlink
			hdr.Linkname = e.Link
		case e.isDir():
			hdr.Typeflag = tar.TypeDir
		default:
			hdr.Typeflag = tar.TypeReg
			hdr.Size = int64(len(e.Content))
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if hdr.Typeflag == tar.TypeReg {
			_, err := tw.Write([]byte(e.Content))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
}

// Zip returns a zip archive holding entries.
func Zip(t *testing.T, entries ...Entry) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		hdr := &zip.FileHeader{
			Name:     e.Name,
			Method:   zip.Deflate,
			Modified: FixtureTime,
		}
		switch {
		case e.Link != "":
			hdr.SetMode(os.ModeSymlink | 0777)
		case e.isDir():
			hdr.Method = zip.Store
			hdr.SetMode(os.ModeDir | e.Mode.Perm())
		default:
			hdr.SetMode(e.Mode.Perm())
		}

		w, err := zw.CreateHeader(hdr)
		require.NoError(t, err)
		switch {
		case e.Link != "":
			_, err = w.Write([]byte(e.Link))
		case !e.isDir():
			_, err = w.Write([]byte(e.Content))
		}
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}
