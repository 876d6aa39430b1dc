package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LocalConfig holds settings for the local filesystem backend.
type LocalConfig struct {
	// UploadsDir is the root directory all keys are stored under.
	UploadsDir string

	// PublicDomain is the base URL prefix for generated URLs.
	// When empty, PublicURL returns root-relative URLs.
	PublicDomain string
}

// LocalAdapter stores objects on the local filesystem. It is the default
// backend and the fallback when a CDN backend cannot be constructed, so
// its constructor never fails: directory creation is retried lazily on
// each write instead of at construction time.
type LocalAdapter struct {
	root    string
	baseURL string
	logger  zerolog.Logger
}

var _ Adapter = (*LocalAdapter)(nil)
var _ DirRemover = (*LocalAdapter)(nil)

// NewLocalAdapter creates a local filesystem adapter.
func NewLocalAdapter(cfg LocalConfig, logger zerolog.Logger) *LocalAdapter {
	return &LocalAdapter{
		root:    cfg.UploadsDir,
		baseURL: strings.TrimSuffix(cfg.PublicDomain, "/"),
		logger:  logger.With().Str("adapter", string(ProviderLocal)).Logger(),
	}
}

// Provider returns ProviderLocal.
func (a *LocalAdapter) Provider() Provider {
	return ProviderLocal
}

// CDNEnabled always reports false for local storage.
func (a *LocalAdapter) CDNEnabled() bool {
	return false
}

// UploadFile reads a local file and stores it under key.
func (a *LocalAdapter) UploadFile(ctx context.Context, localPath, key string, opts *UploadOptions) (*UploadResult, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceFile, err)
	}
	return a.UploadBuffer(ctx, data, key, opts)
}

// UploadBuffer stores an in-memory buffer under key.
func (a *LocalAdapter) UploadBuffer(ctx context.Context, data []byte, key string, opts *UploadOptions) (*UploadResult, error) {
	k := SanitizeKey(key)
	if k == "" {
		return nil, ErrEmptyKey
	}

	dest := filepath.Join(a.root, filepath.FromSlash(k))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create directory: %v", ErrBackend, err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return nil, fmt.Errorf("%w: write %s: %v", ErrBackend, k, err)
	}

	a.logger.Debug().Str("key", k).Int("size", len(data)).Msg("stored file")

	return &UploadResult{
		Key:  k,
		URL:  a.PublicURL(k),
		Size: int64(len(data)),
		ETag: contentETag(data),
	}, nil
}

// DeleteFile removes a single file. Missing files and I/O errors both
// yield false.
func (a *LocalAdapter) DeleteFile(ctx context.Context, key string) bool {
	k := SanitizeKey(key)
	if k == "" {
		return false
	}
	if err := os.Remove(filepath.Join(a.root, filepath.FromSlash(k))); err != nil {
		a.logger.Debug().Err(err).Str("key", k).Msg("delete failed")
		return false
	}
	return true
}

// DeleteFiles removes a batch of files, returning the number removed.
func (a *LocalAdapter) DeleteFiles(ctx context.Context, keys []string) int {
	deleted := 0
	for _, key := range keys {
		if a.DeleteFile(ctx, key) {
			deleted++
		}
	}
	return deleted
}

// RemoveDir removes every file under the given key prefix.
func (a *LocalAdapter) RemoveDir(ctx context.Context, prefix string) error {
	p := SanitizeKey(prefix)
	if p == "" {
		return ErrEmptyKey
	}
	if err := os.RemoveAll(filepath.Join(a.root, filepath.FromSlash(p))); err != nil {
		return fmt.Errorf("%w: remove %s: %v", ErrBackend, p, err)
	}
	return nil
}

// PublicURL returns the URL a stored key is served from. With no configured
// public domain the URL is root-relative.
func (a *LocalAdapter) PublicURL(key string) string {
	return a.baseURL + "/" + SanitizeKey(key)
}

// SignedURL degrades to PublicURL: local storage has no authorization
// concept, so there is nothing to sign. The degradation is logged at warn
// level but is not an error.
func (a *LocalAdapter) SignedURL(ctx context.Context, key string, opts *SignedURLOptions) (string, error) {
	a.logger.Warn().
		Str("key", SanitizeKey(key)).
		Dur("expires_in", opts.Expiry()).
		Msg("signed URLs not supported by local storage, returning public URL")
	return a.PublicURL(key), nil
}

// HealthCheck verifies the adapter can create its root directory and
// write and delete a sentinel file inside it.
func (a *LocalAdapter) HealthCheck(ctx context.Context) bool {
	if err := os.MkdirAll(a.root, 0o755); err != nil {
		a.logger.Warn().Err(err).Str("root", a.root).Msg("health check failed: cannot create root")
		return false
	}
	sentinel := filepath.Join(a.root, ".healthcheck-"+uuid.NewString())
	if err := os.WriteFile(sentinel, []byte("ok"), 0o644); err != nil {
		a.logger.Warn().Err(err).Msg("health check failed: cannot write sentinel")
		return false
	}
	if err := os.Remove(sentinel); err != nil {
		a.logger.Warn().Err(err).Msg("health check failed: cannot remove sentinel")
		return false
	}
	return true
}

// PurgeCDNCache is a permanent no-op for local storage. There is no CDN in
// front of it, so there is never anything to invalidate.
func (a *LocalAdapter) PurgeCDNCache(ctx context.Context, keys []string) bool {
	return true
}

// contentETag computes a quoted content digest used as the integrity tag.
// A real hash is a deliberate upgrade over cheaper mtime+size markers.
func contentETag(data []byte) string {
	sum := sha256.Sum256(data)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}
