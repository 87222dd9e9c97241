// Package blob stores exported report files. Keys are slash-separated relative
// paths such as "payroll/2024-03.csv".
package blob

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

var (
	ErrNotFound   = errors.New("blob not found")
	ErrInvalidKey = errors.New("invalid blob key")
)

type BlobStore interface {
	// Put writes content under key, replacing any previous blob.
	Put(ctx context.Context, key string, reader io.Reader) error

	// Get opens the blob stored under key.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// List returns the sorted keys under prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes a blob.
	Delete(ctx context.Context, key string) error
}

// ValidateKey rejects empty, absolute and escaping keys.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return ErrInvalidKey
	}
	clean := path.Clean(key)
	if clean != key || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return ErrInvalidKey
	}
	for _, part := range strings.Split(clean, "/") {
		if strings.HasPrefix(part, ".") {
			return ErrInvalidKey
		}
	}
	return nil
}
