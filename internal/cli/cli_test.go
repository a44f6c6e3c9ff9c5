// TEST TYPE: Integration
// DEPENDENCIES: real temp directories, file:// source URLs
// PURPOSE: command wiring, flag overrides and output of the srcpack CLI
package cli

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/arthur-debert/srcpack/pkg/errors"
	"github.com/arthur-debert/srcpack/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	t.Setenv("NO_COLOR", "1")

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, root string) string {
	t.Helper()
	path := filepath.Join(root, "config.toml")
	testutil.WriteFile(t, path, fmt.Sprintf(
		"cache_root = %q\nwork_dir = %q\npatches_dir = %q\nextra_files_dir = %q\n",
		filepath.Join(root, "cache"), filepath.Join(root, "work"),
		filepath.Join(root, "patches"), filepath.Join(root, "extra")), 0644)
	return path
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "srcpack version dev")
}

func TestSumCmd(t *testing.T) {
	file := filepath.Join(t.TempDir(), "abc")
	testutil.WriteFile(t, file, "abc", 0644)

	out, err := run(t, "sum", file)
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad  "+file+"\n", out)

	out, err = run(t, "sum", "--algorithm", "md5sum", file)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "900150983cd24fb0d6963f7d28e17f72  "))
}

func TestVerifyCmd(t *testing.T) {
	file := filepath.Join(t.TempDir(), "abc")
	testutil.WriteFile(t, file, "abc", 0644)
	digest := testutil.GetTestChecksum([]byte("abc"))

	out, err := run(t, "verify", file, "--checksum", digest)
	require.NoError(t, err)
	assert.Equal(t, file+": OK\n", out)

	_, err = run(t, "verify", file, "--checksum", "sha256:"+digest, "--algorithm", "md5")
	assert.NoError(t, err)

	_, err = run(t, "verify", file, "--checksum", testutil.GetTestChecksum([]byte("abd")))
	assert.True(t, errors.IsErrorCode(err, errors.ErrCorruptSource))

	_, err = run(t, "verify", file)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
}

func TestMaterializeCmd(t *testing.T) {
	root := t.TempDir()
	archive := testutil.TarGz(t,
		testutil.Dir("app-1.0"),
		testutil.File("app-1.0/main.c", "int main(void) { return 0; }\n"),
	)
	archivePath := filepath.Join(root, "upstream", "app-1.0.tar.gz")
	testutil.WriteBytes(t, archivePath, archive)
	testutil.WriteFile(t, filepath.Join(root, "extra", "web", "Makefile"), "all:\n", 0644)

	descriptor := filepath.Join(root, "web.src")
	testutil.WriteFile(t, descriptor, fmt.Sprintf(
		"SOURCE_URL=file://%s\nSOURCE_SUM=%s\n", archivePath, testutil.GetTestChecksum(archive)), 0644)

	dest := filepath.Join(root, "build", "src")
	out, err := run(t, "--config", writeConfig(t, root),
		"materialize", dest, "--descriptor", descriptor, "--source-id", "web")
	require.NoError(t, err)
	assert.Equal(t, dest+"\n", out)

	tree := testutil.SnapshotTree(t, dest)
	assert.Equal(t, "int main(void) { return 0; }\n", tree["main.c"].Content)
	assert.Equal(t, "all:\n", tree["Makefile"].Content)

	// The per-run work directory is gone.
	assert.Empty(t, testutil.ListNames(t, filepath.Join(root, "work")))
}

func TestMaterializeCmd_FlagOverrides(t *testing.T) {
	root := t.TempDir()
	archive := testutil.TarGz(t, testutil.Dir("pkg"), testutil.File("pkg/a.txt", "cached\n"))
	testutil.WriteBytes(t, filepath.Join(root, "other-cache", "ci", "app.tar.gz"), archive)

	descriptor := filepath.Join(root, "app.src")
	testutil.WriteFile(t, descriptor, "SOURCE_SUM="+testutil.GetTestChecksum(archive)+"\n", 0644)

	dest := filepath.Join(root, "dest")
	_, err := run(t, "--config", writeConfig(t, root),
		"--cache-root", filepath.Join(root, "other-cache"), "--instance-id", "ci",
		"materialize", dest, "--descriptor", descriptor)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dest, "a.txt"))
}

func TestMaterializeCmd_Errors(t *testing.T) {
	root := t.TempDir()

	_, err := run(t, "--config", writeConfig(t, root), "materialize", filepath.Join(root, "dest"))
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))

	descriptor := filepath.Join(root, "app.src")
	testutil.WriteFile(t, descriptor, "SOURCE_SUM=abc\n", 0644)
	_, err = run(t, "--config", writeConfig(t, root),
		"materialize", filepath.Join(root, "dest"), "--descriptor", descriptor)
	assert.True(t, errors.IsErrorCode(err, errors.ErrFetch))

	_, err = run(t, "--config", filepath.Join(root, "missing.toml"),
		"materialize", filepath.Join(root, "dest"), "--descriptor", descriptor)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigLoad))

	_, err = run(t, "--config", writeConfig(t, root), "--instance-id", "a/b",
		"materialize", filepath.Join(root, "dest"), "--descriptor", descriptor)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
}

func TestRenderError(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	var buf bytes.Buffer

	got := RenderError(&buf, errors.New(errors.ErrPatchFailed, "patch app-001.patch failed"))
	assert.Equal(t, "Error: [PATCH_FAILED] patch app-001.patch failed", got)
}
