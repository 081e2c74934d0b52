package blob

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/lidar-classify/internal/fsutil"
	"github.com/banshee-data/lidar-classify/internal/security"
)

// FSStore writes objects as files under a root directory.
type FSStore struct {
	fsys fsutil.FileSystem
	root string
}

// NewFSStore returns a store rooted at root, creating it if needed.
func NewFSStore(fsys fsutil.FileSystem, root string) (*FSStore, error) {
	if root == "" {
		root = "."
	}
	if err := fsys.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory %s: %w", root, err)
	}
	return &FSStore{fsys: fsys, root: root}, nil
}

// Put writes to a temp file in the destination directory, syncs it and
// renames it into place, so readers never see a partial file.
func (s *FSStore) Put(ctx context.Context, key string, data []byte) error {
	dst, err := security.ResolveWithin(s.root, key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, tmpName, err := s.fsys.CreateTemp(filepath.Dir(dst), ".tmp-"+filepath.Base(dst)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", dst, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = s.fsys.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.fsys.Rename(tmpName, dst); err != nil {
		return fmt.Errorf("publish %s: %w", dst, err)
	}
	committed = true
	return nil
}

// Location returns the destination path of key.
func (s *FSStore) Location(key string) string {
	return filepath.Join(s.root, key)
}
