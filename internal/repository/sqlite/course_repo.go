package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/edupress/dispatch-storage/internal/domain"
	"github.com/edupress/dispatch-storage/internal/repository"
)

// courseRepository implements repository.CourseRepository for SQLite.
type courseRepository struct {
	db *DB
}

// NewCourseRepository creates a new SQLite course repository.
func NewCourseRepository(db *DB) repository.CourseRepository {
	return &courseRepository{db: db}
}

// Create creates a new course record.
func (r *courseRepository) Create(ctx context.Context, course *domain.Course) error {
	query := `
		INSERT INTO courses (id, title, storage_key, cdn_enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		course.ID,
		course.Title,
		course.StorageKey,
		boolToInt(course.CDNEnabled),
		course.CreatedAt.Format(time.RFC3339),
		course.UpdatedAt.Format(time.RFC3339),
	)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrCourseAlreadyExists, course.ID)
		}
		return fmt.Errorf("failed to create course: %w", err)
	}

	return nil
}

// GetByID retrieves a course by ID.
func (r *courseRepository) GetByID(ctx context.Context, id string) (*domain.Course, error) {
	query := `
		SELECT id, title, storage_key, cdn_enabled, created_at, updated_at
		FROM courses
		WHERE id = ?
	`

	return r.scanCourse(r.db.QueryRowContext(ctx, query, id))
}

// Update updates an existing course record.
func (r *courseRepository) Update(ctx context.Context, course *domain.Course) error {
	query := `
		UPDATE courses
		SET title = ?, storage_key = ?, cdn_enabled = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		course.Title,
		course.StorageKey,
		boolToInt(course.CDNEnabled),
		course.UpdatedAt.Format(time.RFC3339),
		course.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update course: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrCourseNotFound
	}

	return nil
}

// Delete deletes a course record by ID.
func (r *courseRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrCourseNotFound
	}

	return nil
}

// List returns courses with pagination, newest first.
func (r *courseRepository) List(ctx context.Context, opts repository.ListOptions) ([]*domain.Course, error) {
	query := `
		SELECT id, title, storage_key, cdn_enabled, created_at, updated_at
		FROM courses
		ORDER BY created_at DESC
	`
	args := []interface{}{}
	if opts.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, opts.Limit, opts.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	defer rows.Close()

	var courses []*domain.Course
	for rows.Next() {
		course, err := r.scanCourseRow(rows)
		if err != nil {
			return nil, err
		}
		courses = append(courses, course)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate courses: %w", err)
	}

	return courses, nil
}

// rowScanner abstracts sql.Row and sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *courseRepository) scanCourse(row *sql.Row) (*domain.Course, error) {
	return scanCourseFrom(row)
}

func (r *courseRepository) scanCourseRow(rows *sql.Rows) (*domain.Course, error) {
	return scanCourseFrom(rows)
}

func scanCourseFrom(s rowScanner) (*domain.Course, error) {
	course := &domain.Course{}
	var cdnEnabled int
	var createdAt, updatedAt string

	err := s.Scan(
		&course.ID,
		&course.Title,
		&course.StorageKey,
		&cdnEnabled,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to scan course: %w", err)
	}

	course.CDNEnabled = cdnEnabled != 0
	course.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	course.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return course, nil
}

// boolToInt converts a bool to SQLite's integer representation.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueViolation checks if an error is a unique constraint violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "constraint failed: UNIQUE")
}
