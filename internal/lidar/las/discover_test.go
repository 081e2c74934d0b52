package las

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/lidar-classify/internal/fsutil"
)

func TestDiscover_ExplicitDirectories(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	mfs.WriteFile("/flight2/b.las", nil)
	mfs.WriteFile("/flight2/a.LAS", nil)
	mfs.WriteFile("/flight2/notes.txt", nil)
	mfs.WriteFile("/flight2/nested/c.las", nil)
	mfs.WriteFile("/flight1/z.las", nil)

	paths, err := Discover(mfs, []string{"/flight2", "/flight1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/flight2/a.LAS", "/flight2/b.las", "/flight1/z.las"}, paths)
}

func TestDiscover_MissingDirectory(t *testing.T) {
	_, err := Discover(fsutil.NewMemoryFileSystem(), []string{"/nowhere"})
	assert.ErrorContains(t, err, "/nowhere")
}

func TestDiscover_EmptyDirectory(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, mfs.MkdirAll("/empty", 0755))
	paths, err := Discover(mfs, []string{"/empty"})
	require.NoError(t, err)
	assert.Empty(t, paths)
}
