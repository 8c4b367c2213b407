package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// File is a Backend keeping one JSON file per key inside a directory.
// Updates are serialized within the process only.
type File struct {
	root string

	mu sync.Mutex
}

var _ Backend = (*File)(nil)

// NewFile creates a File backend rooted at dir, creating it if needed.
func NewFile(dir string) (*File, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("queue: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("queue: mkdir root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("queue: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("queue: root is not a directory: %s", abs)
	}
	return &File{root: abs}, nil
}

// keyPath maps a key to its file, rejecting keys that are not plain names.
func (f *File) keyPath(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return "", fmt.Errorf("queue: invalid key %q", key)
	}
	return filepath.Join(f.root, key+".json"), nil
}

// Get returns the file content for key, or nil when the file does not exist.
func (f *File) Get(_ context.Context, key string) ([]byte, error) {
	p, err := f.keyPath(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("queue: read %s: %w", key, err)
	}
	return data, nil
}

// Update rewrites key with fn(old) using an atomic replace.
func (f *File) Update(ctx context.Context, key string, fn func(old []byte) ([]byte, error)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	old, err := f.Get(ctx, key)
	if err != nil {
		return err
	}
	next, err := fn(old)
	if err != nil {
		return err
	}
	p, _ := f.keyPath(key)
	return writeAtomic(p, next)
}

// Close is a no-op for the file backend.
func (f *File) Close() error { return nil }

// writeAtomic writes content via tmp file, fsync, rename.
func writeAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".archieve-tmp-*")
	if err != nil {
		return fmt.Errorf("queue: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("queue: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("queue: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("queue: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("queue: rename: %w", err)
	}
	success = true
	return nil
}
