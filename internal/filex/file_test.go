package filex

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) func() {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	return func() { _ = os.Chdir(old) }
}

func TestEnsureSubDir_CreatesDirectoryInCWD(t *testing.T) {
	tmp := t.TempDir()
	defer chdir(t, tmp)()

	got, err := EnsureSubDir("downloads")
	require.NoError(t, err)

	want := filepath.Join(tmp, "downloads")
	require.Equal(t, want, got)

	fi, err := os.Stat(want)
	require.NoError(t, err)
	require.True(t, fi.IsDir(), "should create a directory")

	if runtime.GOOS != "windows" {
		perm := fi.Mode().Perm()
		require.Equal(t, os.FileMode(0o700), perm&0o700)
	}
}

func TestEnsureSubDir_IdempotentWhenExists(t *testing.T) {
	tmp := t.TempDir()
	defer chdir(t, tmp)()

	first, err := EnsureSubDir("downloads")
	require.NoError(t, err)
	second, err := EnsureSubDir("downloads")
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestSaveToDir_WritesFile(t *testing.T) {
	tmp := t.TempDir()
	defer chdir(t, tmp)()

	path, err := SaveToDir("downloads", "report.txt", []byte("contents"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(tmp, "downloads", "report.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, []byte("contents"), data)
}

func TestSaveToDir_StripsPathComponents(t *testing.T) {
	tmp := t.TempDir()
	defer chdir(t, tmp)()

	path, err := SaveToDir("downloads", "../../escape.txt", []byte("x"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(tmp, "downloads", "escape.txt"), path)
}
