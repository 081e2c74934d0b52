package las

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// DirLister lists a directory. fsutil.FileSystem implementations satisfy it.
type DirLister interface {
	ReadDir(name string) ([]fs.DirEntry, error)
}

// Discover returns the .las files directly inside each of dirs, in the
// order the directories are given and sorted by name within a directory.
// Subdirectories are not descended into.
func Discover(fsys DirLister, dirs []string) ([]string, error) {
	var paths []string
	for _, dir := range dirs {
		entries, err := fsys.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("list input directory %s: %w", dir, err)
		}
		var found []string
		for _, e := range entries {
			if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".las") {
				continue
			}
			found = append(found, filepath.Join(dir, e.Name()))
		}
		sort.Strings(found)
		paths = append(paths, found...)
	}
	return paths, nil
}
