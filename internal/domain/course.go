// Package domain contains the core business entities for the dispatch
// storage service.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Course is a hosted course package. The storage subsystem only needs its
// identity, the key its package was stored under, and whether its assets
// are served through a CDN.
type Course struct {
	// ID is the course identifier used in storage keys
	// (courses/{ID}/...).
	ID string `json:"id"`

	// Title is the human-readable course title.
	Title string `json:"title"`

	// StorageKey is the key of the most recently uploaded package, if any.
	StorageKey *string `json:"storage_key,omitempty"`

	// CDNEnabled reports whether this course's assets are CDN-served.
	CDNEnabled bool `json:"cdn_enabled"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewCourse creates a course with a generated identifier.
func NewCourse(title string) *Course {
	now := time.Now().UTC()
	return &Course{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AssetPrefix returns the storage key prefix all of the course's objects
// live under.
func (c *Course) AssetPrefix() string {
	return "courses/" + c.ID + "/"
}

// SetStorageKey records the key of the latest uploaded package.
func (c *Course) SetStorageKey(key string) {
	c.StorageKey = &key
	c.UpdatedAt = time.Now().UTC()
}
