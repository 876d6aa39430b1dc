// Package storage provides the pluggable object-storage abstraction for
// course assets. Every backend (local filesystem, S3-compatible store with
// an edge CDN, object store with a separate CDN distribution) implements the
// Adapter interface, and higher layers obtain the active backend through the
// Factory without knowing which concrete implementation is in use.
package storage

import (
	"context"
	"time"
)

// Provider identifies a concrete storage backend.
type Provider string

const (
	// ProviderLocal is the local filesystem backend. It is the default and
	// the fallback when a CDN backend cannot be constructed.
	ProviderLocal Provider = "local"

	// ProviderEdge is an S3-compatible object store fronted by a
	// provider-managed edge CDN with a zone-level purge API.
	ProviderEdge Provider = "cdn-s3-style"

	// ProviderDistribution is an object store paired with a separate CDN
	// distribution that supports invalidation batches.
	ProviderDistribution Provider = "cdn-distribution-style"
)

// DefaultSignedURLExpiry is used when SignedURLOptions does not specify one.
const DefaultSignedURLExpiry = time.Hour

// UploadOptions carries per-upload settings. All fields are optional.
type UploadOptions struct {
	// ContentType is the MIME type stored with the object.
	// Defaults to application/octet-stream when empty.
	ContentType string

	// CacheControl is passed through to the backend verbatim.
	CacheControl string

	// Metadata is arbitrary string metadata stored with the object.
	Metadata map[string]string
}

// UploadResult describes a completed upload. It is immutable once returned.
type UploadResult struct {
	// Key is the sanitized destination key the object was stored under.
	Key string `json:"key"`

	// URL is the publicly resolvable URL for the object.
	URL string `json:"url"`

	// Size is the object size in bytes.
	Size int64 `json:"size"`

	// ETag is an opaque integrity tag. For the local backend this is a
	// content digest; remote backends return the store's own ETag.
	ETag string `json:"etag,omitempty"`
}

// SignedURLOptions carries settings for signed URL generation.
type SignedURLOptions struct {
	// ExpiresIn is how long the URL stays valid.
	// Defaults to DefaultSignedURLExpiry when zero.
	ExpiresIn time.Duration

	// ContentDisposition overrides the Content-Disposition response header.
	ContentDisposition string
}

// Expiry returns the effective expiration, applying the default.
func (o *SignedURLOptions) Expiry() time.Duration {
	if o == nil || o.ExpiresIn <= 0 {
		return DefaultSignedURLExpiry
	}
	return o.ExpiresIn
}

// Adapter is the capability contract every storage backend implements.
//
// Mutating operations distinguish expected failures from exceptional ones:
// deletion and cache purging are best-effort and report failure through
// their return values, while upload failures and misconfiguration are
// returned as errors. Callers can therefore treat deletes and purges as
// advisory without wrapping them in error handling.
type Adapter interface {
	// Provider returns the backend's provider tag.
	Provider() Provider

	// CDNEnabled reports whether the backend is fronted by a CDN.
	CDNEnabled() bool

	// UploadFile reads a local file and stores it under key.
	// Fails with ErrSourceFile if the local file is unreadable and
	// ErrBackend if the remote call fails.
	UploadFile(ctx context.Context, localPath, key string, opts *UploadOptions) (*UploadResult, error)

	// UploadBuffer stores an in-memory buffer under key.
	UploadBuffer(ctx context.Context, data []byte, key string, opts *UploadOptions) (*UploadResult, error)

	// DeleteFile removes a single object. It returns false on any failure
	// (missing object, network error) rather than an error.
	DeleteFile(ctx context.Context, key string) bool

	// DeleteFiles removes a batch of objects and returns the number
	// actually removed. Partial failure is tolerated.
	DeleteFiles(ctx context.Context, keys []string) int

	// PublicURL returns the publicly resolvable URL for key.
	// It is pure and performs no I/O.
	PublicURL(key string) string

	// SignedURL returns a time-limited URL for key. Backends without
	// native signing degrade to PublicURL and log a warning.
	SignedURL(ctx context.Context, key string, opts *SignedURLOptions) (string, error)

	// HealthCheck probes whether the backend is currently usable.
	HealthCheck(ctx context.Context) bool

	// PurgeCDNCache invalidates the CDN cache for the given keys.
	// Non-CDN backends return true without doing anything. CDN backends
	// return false on failure instead of an error; a stale cache entry
	// must not fail the surrounding business operation.
	PurgeCDNCache(ctx context.Context, keys []string) bool
}

// DirRemover is an optional capability for backends that can remove an
// entire key prefix in one call. Only the local filesystem backend
// implements it; remote backends would need a key inventory to do the same.
type DirRemover interface {
	// RemoveDir removes every object under the given key prefix.
	RemoveDir(ctx context.Context, prefix string) error
}
