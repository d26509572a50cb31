package archive

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"

	"github.com/imamik/shipyard/internal/fileset"
)

func seedTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "app"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "logs"), 0o755)) // stays empty
	require.NoError(t, os.WriteFile(filepath.Join(dir, "compose.yaml"), []byte("services: {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app", "main.py"), []byte("print('hi')\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app", "run.sh"), []byte("#!/bin/sh\n"), 0o755))
	return dir
}

func resolve(t *testing.T, dir string, entries ...string) fileset.Resolved {
	t.Helper()
	rs, err := fileset.Resolve(entries, dir)
	require.NoError(t, err)
	return rs
}

func members(t *testing.T, archivePath string) []string {
	t.Helper()
	f, err := os.Open(archivePath)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	tr := tar.NewReader(gz)
	var names []string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		names = append(names, hdr.Name)
	}
	return names
}

func TestPack_EmptyFileSet(t *testing.T) {
	t.Parallel()
	_, err := Pack(fileset.Resolved{Base: t.TempDir()})
	require.ErrorIs(t, err, fileset.ErrEmptyFileSet)
}

func TestPackUnpack_RoundTrip(t *testing.T) {
	t.Parallel()
	dir := seedTree(t)

	archivePath, err := Pack(resolve(t, dir, "app", "logs", "compose.yaml"))
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(archivePath) })

	out := t.TempDir()
	require.NoError(t, Unpack(archivePath, out))

	data, err := os.ReadFile(filepath.Join(out, "app", "main.py"))
	require.NoError(t, err)
	require.Equal(t, "print('hi')\n", string(data))

	// Mode bits survive.
	info, err := os.Stat(filepath.Join(out, "app", "run.sh"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	// Empty directories survive.
	info, err = os.Stat(filepath.Join(out, "logs"))
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestPackUnpack_GroupWritableModesSurviveUmask(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "params"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "params", "shared.sh"), []byte("#!/bin/sh\n"), 0o644))
	// Chmod after creation: the seeding calls themselves go through the
	// umask, which is exactly what restore must not do.
	require.NoError(t, os.Chmod(filepath.Join(dir, "params"), 0o775))
	require.NoError(t, os.Chmod(filepath.Join(dir, "params", "shared.sh"), 0o775))

	archivePath, err := Pack(resolve(t, dir, "params"))
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(archivePath) })

	out := t.TempDir()
	require.NoError(t, Unpack(archivePath, out))

	info, err := os.Stat(filepath.Join(out, "params"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o775), info.Mode().Perm())

	info, err = os.Stat(filepath.Join(out, "params", "shared.sh"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o775), info.Mode().Perm())
}

func TestPack_DeterministicMemberOrder(t *testing.T) {
	t.Parallel()
	dir := seedTree(t)
	rs := resolve(t, dir, "app", "compose.yaml")

	first, err := Pack(rs)
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(first) })
	second, err := Pack(rs)
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(second) })

	want := []string{"app/", "app/main.py", "app/run.sh", "compose.yaml"}
	require.Equal(t, want, members(t, first))
	require.Equal(t, want, members(t, second))
}

func TestUnpack_RejectsEscapingEntries(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	evil := filepath.Join(dir, "evil.tar.gz")

	f, err := os.Create(evil)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name: "../escape.txt", Mode: 0o644, Size: 4, Typeflag: tar.TypeReg,
	}))
	_, err = tw.Write([]byte("oops"))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	err = Unpack(evil, t.TempDir())
	require.Error(t, err)
	require.Contains(t, err.Error(), "escapes")
}
