// Package repository defines data access interfaces for the dispatch
// storage service. These interfaces abstract database operations, allowing
// for different implementations (PostgreSQL, SQLite, in-memory for testing)
// while keeping the service layer clean.
package repository

import (
	"context"

	"github.com/edupress/dispatch-storage/internal/domain"
)

// CourseRepository defines the interface for course record access.
// The CDN service reads courses through it to resolve purge patterns and
// to honor per-course CDN flags.
type CourseRepository interface {
	// Create creates a new course record.
	Create(ctx context.Context, course *domain.Course) error

	// GetByID retrieves a course by ID.
	GetByID(ctx context.Context, id string) (*domain.Course, error)

	// Update updates an existing course record.
	Update(ctx context.Context, course *domain.Course) error

	// Delete deletes a course record by ID.
	Delete(ctx context.Context, id string) error

	// List returns courses with pagination.
	List(ctx context.Context, opts ListOptions) ([]*domain.Course, error)
}

// ListOptions contains common pagination options.
type ListOptions struct {
	// Offset is the number of records to skip.
	Offset int

	// Limit is the maximum number of records to return.
	// Zero means no limit.
	Limit int
}
