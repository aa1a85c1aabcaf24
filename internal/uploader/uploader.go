// Package uploader copies finished case directories to object storage.
package uploader

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"parity/internal/config"

	"github.com/pkg/errors"
)

// Uploader publishes a case directory and returns its remote location.
type Uploader interface {
	Enabled() bool
	UploadDir(ctx context.Context, dir string) (string, error)
}

// NoopUploader is used when no backend is configured.
type NoopUploader struct{}

func (NoopUploader) Enabled() bool {
	return false
}

func (NoopUploader) UploadDir(ctx context.Context, dir string) (string, error) {
	return "", nil
}

// New selects the configured backend. GCS wins when both are enabled.
func New(ctx context.Context, storage config.StorageConfig) (Uploader, error) {
	switch {
	case storage.GCS.Enabled:
		return NewGCS(ctx, storage.GCS)
	case storage.S3.Enabled:
		return NewS3(ctx, storage.S3)
	default:
		return NoopUploader{}, nil
	}
}

// putFunc stores one local file under key.
type putFunc func(ctx context.Context, localPath, key string) error

// uploadDir walks dir and stores every regular file below prefix/<case>/,
// keeping relative paths.
func uploadDir(ctx context.Context, dir, prefix string, put putFunc) (string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", errors.Errorf("upload %s: not a directory", dir)
	}
	base := objectPrefix(prefix, filepath.Base(dir))
	err = filepath.WalkDir(dir, func(p string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		key := path.Join(base, filepath.ToSlash(rel))
		return errors.Wrapf(put(ctx, p, key), "upload %s", key)
	})
	if err != nil {
		return "", err
	}
	return base + "/", nil
}

func objectPrefix(prefix, caseDir string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return caseDir
	}
	return prefix + "/" + caseDir
}

// contentType picks a type for the artifacts a case directory holds.
func contentType(name string) string {
	switch filepath.Ext(name) {
	case ".json":
		return "application/json"
	case ".md":
		return "text/markdown; charset=utf-8"
	case ".zst":
		return "application/zstd"
	default:
		return "application/octet-stream"
	}
}
