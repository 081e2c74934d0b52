package fsutil

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSFileSystem_Exists(t *testing.T) {
	fs := OSFileSystem{}

	if !fs.Exists("filesystem.go") {
		t.Error("expected filesystem.go to exist")
	}
	if fs.Exists("nonexistent_file_xyz.go") {
		t.Error("expected nonexistent file to not exist")
	}
}

func TestOSFileSystem_TempRenameReadDir(t *testing.T) {
	fs := OSFileSystem{}
	dir := t.TempDir()

	w, name, err := fs.CreateTemp(dir, ".tmp-*")
	require.NoError(t, err)
	_, err = w.Write([]byte("payload"))
	require.NoError(t, err)
	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())

	final := filepath.Join(dir, "out.las")
	require.NoError(t, fs.Rename(name, final))
	assert.False(t, fs.Exists(name))

	entries, err := fs.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "out.las", entries[0].Name())

	data, err := os.ReadFile(final)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestMemoryFileSystem_WriteAndOpen(t *testing.T) {
	mfs := NewMemoryFileSystem()
	mfs.WriteFile("/data/a.las", []byte("hello"))

	f, err := mfs.Open("/data/a.las")
	require.NoError(t, err)
	defer f.Close()

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	info, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size())

	_, err = mfs.Open("/data/missing.las")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMemoryFileSystem_ReadDir(t *testing.T) {
	mfs := NewMemoryFileSystem()
	mfs.WriteFile("/in/b.las", []byte("b"))
	mfs.WriteFile("/in/a.las", []byte("a"))
	mfs.WriteFile("/in/sub/c.las", []byte("c"))

	entries, err := mfs.ReadDir("/in")
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"a.las", "b.las", "sub"}, names)
	assert.True(t, entries[2].IsDir())

	_, err = mfs.ReadDir("/nope")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMemoryFileSystem_TempFileVisibleOnlyAfterClose(t *testing.T) {
	mfs := NewMemoryFileSystem()
	require.NoError(t, mfs.MkdirAll("/out", 0755))

	w, name, err := mfs.CreateTemp("/out", ".tmp-*")
	require.NoError(t, err)
	_, err = w.Write([]byte("abc"))
	require.NoError(t, err)

	data, err := mfs.ReadFile(name)
	require.NoError(t, err)
	assert.Empty(t, data)

	require.NoError(t, w.Close())
	require.NoError(t, mfs.Rename(name, "/out/ground.las"))

	data, err = mfs.ReadFile("/out/ground.las")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))
	assert.False(t, mfs.Exists(name))

	_, err = w.Write([]byte("late"))
	assert.Error(t, err)
}

func TestMemoryFileSystem_CreateTempMissingDir(t *testing.T) {
	mfs := NewMemoryFileSystem()
	_, _, err := mfs.CreateTemp("/missing", ".tmp-*")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMemoryFileSystem_Remove(t *testing.T) {
	mfs := NewMemoryFileSystem()
	mfs.WriteFile("/x/y.txt", []byte("1"))

	require.NoError(t, mfs.Remove("/x/y.txt"))
	assert.False(t, mfs.Exists("/x/y.txt"))
	assert.True(t, mfs.Exists("/x"))
	assert.Error(t, mfs.Remove("/x/y.txt"))
}
