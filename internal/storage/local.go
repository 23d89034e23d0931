package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"storefront-service/internal/util"
)

// LocalBucket keeps objects under a directory that the HTTP server exposes as static files
type LocalBucket struct {
	dir       string
	publicURL string
	logger    *zap.Logger
}

func NewLocalBucket(dir, publicURL string) (*LocalBucket, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &LocalBucket{
		dir:       dir,
		publicURL: publicURL,
		logger:    util.GetLogger(),
	}, nil
}

// Dir is the root directory served under the public URL
func (b *LocalBucket) Dir() string {
	return b.dir
}

func (b *LocalBucket) Upload(ctx context.Context, key, contentType string, body io.Reader) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}

	dest := filepath.Join(b.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create object dir: %w", err)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create object: %w", err)
	}

	_, err = io.Copy(f, body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		if rerr := os.Remove(dest); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			b.logger.Warn("Failed to remove partial object", zap.String("key", key), zap.Error(rerr))
		}
		return fmt.Errorf("failed to write object: %w", err)
	}

	b.logger.Debug("Object stored", zap.String("key", key), zap.String("content_type", contentType))
	return nil
}

func (b *LocalBucket) PublicURL(key string) string {
	return b.publicURL + "/" + key
}

func (b *LocalBucket) PathFromURL(url string) (string, error) {
	return pathFromURL(b.publicURL, url)
}

func (b *LocalBucket) Remove(ctx context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}

	err = os.Remove(filepath.Join(b.dir, filepath.FromSlash(key)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove object: %w", err)
	}
	return nil
}
