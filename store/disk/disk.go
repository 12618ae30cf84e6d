package disk

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/juju/errors"
	"github.com/warriorguo/taskpipe/store"
)

var (
	_ store.Store = &diskStore{}
)

/**
 * NewDiskStore is the default store: a flat directory tree under root,
 * one sub-directory per prefix, one file per key. It is what backs the
 * per-step cache and run records of a local pipeline.
 */
func NewDiskStore(root string) (store.Store, error) {
	if root == "" {
		return nil, errors.BadRequestf("disk store root is empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Annotatef(err, "failed to create store root %s", root)
	}
	return &diskStore{root: root}, nil
}

type diskStore struct {
	mu sync.Mutex

	root string
}

/**
 * Prefixes look like "/runs/2024..." and keys are step names which may
 * contain "[param]" suffixes. Both are flattened into safe file names.
 */
func sanitize(s string) string {
	replacer := strings.NewReplacer("/", "_", string(filepath.Separator), "_", " ", "_")
	return replacer.Replace(strings.Trim(s, "/"))
}

func (d *diskStore) path(prefix, key string) string {
	return filepath.Join(d.root, sanitize(prefix), sanitize(key))
}

func (d *diskStore) Get(ctx context.Context, prefix, key string) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, err := os.ReadFile(d.path(prefix, key))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Annotatef(err, "failed to read %s %s", prefix, key)
	}
	return b, nil
}

func (d *diskStore) Set(ctx context.Context, prefix, key string, value []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	dir := filepath.Join(d.root, sanitize(prefix))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Annotatef(err, "failed to create %s", dir)
	}
	if err := os.WriteFile(d.path(prefix, key), value, 0o644); err != nil {
		return errors.Annotatef(err, "failed to write %s %s", prefix, key)
	}
	return nil
}

func (d *diskStore) Remove(ctx context.Context, prefix, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	err := os.Remove(d.path(prefix, key))
	if err != nil && !os.IsNotExist(err) {
		return errors.Annotatef(err, "failed to remove %s %s", prefix, key)
	}
	return nil
}

func (d *diskStore) List(ctx context.Context, prefix string, iterator func(key string) bool) error {
	d.mu.Lock()

	entries, err := os.ReadDir(filepath.Join(d.root, sanitize(prefix)))
	if os.IsNotExist(err) {
		d.mu.Unlock()
		return nil
	}
	if err != nil {
		d.mu.Unlock()
		return errors.Annotatef(err, "failed to list %s", prefix)
	}

	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			keys = append(keys, entry.Name())
		}
	}
	d.mu.Unlock()

	for _, key := range keys {
		if !iterator(key) {
			break
		}
	}
	return nil
}
