package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DirBundleStore writes bundles to a local directory. Used by the CLI, where
// the "download URL" is simply the file path.
type DirBundleStore struct {
	root string
}

var _ BundleStore = (*DirBundleStore)(nil)

// NewDirBundleStore creates a bundle store rooted at dir.
func NewDirBundleStore(dir string) *DirBundleStore {
	return &DirBundleStore{root: dir}
}

func (d *DirBundleStore) Put(_ context.Context, key string, data []byte) error {
	path := filepath.Join(d.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create bundle dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write bundle %s: %w", path, err)
	}
	return nil
}

func (d *DirBundleStore) DownloadURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return filepath.Join(d.root, filepath.FromSlash(key)), nil
}
