package launchbase

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FilesystemBackend implements BlobBackend on a local directory
type FilesystemBackend struct {
	basePath string
}

func NewFilesystemBackend(basePath string) *FilesystemBackend {
	return &FilesystemBackend{basePath: basePath}
}

func (b *FilesystemBackend) getPath(key string) string {
	return filepath.Join(b.basePath, filepath.FromSlash(key))
}

func (b *FilesystemBackend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(b.getPath(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, WithContext(ErrNotFound, map[string]interface{}{"key": key})
	}
	return data, err
}

// Put writes to a temporary file and renames it, so readers never see a
// partially written document.
func (b *FilesystemBackend) Put(ctx context.Context, key string, data []byte) error {
	path := b.getPath(key)
	if err := os.MkdirAll(filepath.Dir(path), DefaultDirPermissions); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, DefaultFilePermissions); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (b *FilesystemBackend) Delete(ctx context.Context, key string) error {
	err := os.Remove(b.getPath(key))
	if errors.Is(err, fs.ErrNotExist) {
		return WithContext(ErrNotFound, map[string]interface{}{"key": key})
	}
	return err
}

func (b *FilesystemBackend) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(b.getPath(key))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (b *FilesystemBackend) List(ctx context.Context, prefix string) ([]string, error) {
	keys := []string{}
	searchPath := b.getPath(prefix)
	if _, err := os.Stat(searchPath); errors.Is(err, fs.ErrNotExist) {
		return keys, nil
	}

	err := filepath.WalkDir(searchPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) == ".tmp" {
			return nil
		}
		rel, err := filepath.Rel(b.basePath, path)
		if err != nil {
			return err
		}
		// Forward slashes for consistency with object stores
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	return keys, err
}

// Ping creates the base directory if needed and checks it is writable.
func (b *FilesystemBackend) Ping(ctx context.Context) error {
	if err := os.MkdirAll(b.basePath, DefaultDirPermissions); err != nil {
		return fmt.Errorf("cannot create base path: %w", err)
	}
	testFile := filepath.Join(b.basePath, ".health_check")
	if err := os.WriteFile(testFile, []byte("ok"), DefaultFilePermissions); err != nil {
		return fmt.Errorf("cannot write to base path: %w", err)
	}
	return os.Remove(testFile)
}

func (b *FilesystemBackend) Close() error {
	return nil
}
