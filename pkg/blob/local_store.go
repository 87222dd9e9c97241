package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LocalBlobStore implements BlobStore on the local filesystem.
type LocalBlobStore struct {
	rootPath string
}

// NewLocalBlobStore creates the root directory if needed.
func NewLocalBlobStore(rootPath string) (*LocalBlobStore, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob root %s: %w", rootPath, err)
	}
	return &LocalBlobStore{rootPath: rootPath}, nil
}

// Put writes through a temp file and rename so readers never see partial blobs.
func (s *LocalBlobStore) Put(ctx context.Context, key string, reader io.Reader) error {
	if err := ValidateKey(key); err != nil {
		return fmt.Errorf("%w: %q", err, key)
	}
	fullPath := s.path(key)

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempName := tempFile.Name()
	cleanup := func() {
		tempFile.Close()
		os.Remove(tempName)
	}

	if _, err := io.Copy(tempFile, &ctxReader{ctx: ctx, r: reader}); err != nil {
		cleanup()
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		os.Remove(tempName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tempName, fullPath); err != nil {
		os.Remove(tempName)
		return fmt.Errorf("failed to rename temp file to %s: %w", fullPath, err)
	}
	return nil
}

// Get retrieves content from the blob store.
func (s *LocalBlobStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ValidateKey(key); err != nil {
		return nil, fmt.Errorf("%w: %q", err, key)
	}
	file, err := os.Open(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to open blob %s: %w", key, err)
	}
	return file, nil
}

// List returns the keys under prefix. A missing prefix yields an empty list.
func (s *LocalBlobStore) List(ctx context.Context, prefix string) ([]string, error) {
	root := s.rootPath
	if prefix != "" {
		if err := ValidateKey(prefix); err != nil {
			return nil, fmt.Errorf("%w: %q", err, prefix)
		}
		root = s.path(prefix)
	}

	keys := []string{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		relPath, err := filepath.Rel(s.rootPath, path)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(relPath))
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list blobs with prefix %s: %w", prefix, err)
	}

	sort.Strings(keys)
	return keys, nil
}

// Delete removes a blob.
func (s *LocalBlobStore) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return fmt.Errorf("%w: %q", err, key)
	}
	if err := os.Remove(s.path(key)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return fmt.Errorf("failed to delete blob %s: %w", key, err)
	}
	return nil
}

func (s *LocalBlobStore) path(key string) string {
	return filepath.Join(s.rootPath, filepath.FromSlash(key))
}

// ctxReader stops a copy once ctx is cancelled.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
