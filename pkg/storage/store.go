// Package storage keeps uploaded answer images either on local disk or in
// an S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"examgrader/pkg/config"
)

// ErrNotFound is returned when a key has no stored object.
var ErrNotFound = errors.New("object not found")

// ErrInvalidKey is returned for empty keys or keys escaping the store root.
var ErrInvalidKey = errors.New("invalid object key")

// Store persists images by key. Fetch yields a local path because the OCR
// engines read from disk; cleanup must be called when the caller is done.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Fetch(ctx context.Context, key string) (localPath string, cleanup func(), err error)
}

// CleanKey normalises a slash separated key and rejects traversal.
func CleanKey(key string) (string, error) {
	k := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	k = strings.TrimPrefix(k, "/")
	if k == "" || k == "." {
		return "", ErrInvalidKey
	}
	return k, nil
}

// New opens the backend named by c.Backend; local files live under uploadBase.
func New(ctx context.Context, c config.StorageConfig, uploadBase string) (Store, error) {
	switch c.Backend {
	case "minio":
		m := c.Minio
		return NewMinioStore(ctx, m.Endpoint, m.AccessKey, m.SecretKey, m.Bucket, m.UseSSL)
	case "local", "":
		return NewLocalStore(uploadBase)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", c.Backend)
	}
}
