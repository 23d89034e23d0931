// Package storage stores product images in a bucket and exposes them by public URL.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidPath = errors.New("invalid object path")

// Bucket is an object store addressed by slash-separated keys
type Bucket interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) error
	PublicURL(key string) string
	// PathFromURL recovers the key of an object from its public URL.
	PathFromURL(url string) (string, error)
	Remove(ctx context.Context, key string) error
}

var allowedExt = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "gif": true, "webp": true, "avif": true, "svg": true,
}

// ObjectKey builds "productId/<unix millis>-<random>.<ext>" for an uploaded file.
func ObjectKey(productID, filename string, now time.Time) (string, error) {
	if productID == "" || strings.ContainsAny(productID, "/\\") {
		return "", fmt.Errorf("%w: product id %q", ErrInvalidPath, productID)
	}

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	if !allowedExt[ext] {
		return "", fmt.Errorf("%w: unsupported image extension %q", ErrInvalidPath, ext)
	}

	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("%s/%d-%s.%s", productID, now.UnixMilli(), random, ext), nil
}

// cleanKey rejects keys that could escape the bucket root
func cleanKey(key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" || path.Clean(key) != key || strings.HasPrefix(key, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, key)
	}
	return key, nil
}

func pathFromURL(publicBase, url string) (string, error) {
	prefix := strings.TrimRight(publicBase, "/") + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", fmt.Errorf("%w: %q is not served from %s", ErrInvalidPath, url, publicBase)
	}
	return cleanKey(strings.TrimPrefix(url, prefix))
}
