package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/edupress/dispatch-storage/internal/domain"
	"github.com/edupress/dispatch-storage/internal/repository"
)

// courseRepository implements repository.CourseRepository for PostgreSQL.
type courseRepository struct {
	db *DB
}

// NewCourseRepository creates a new PostgreSQL course repository.
func NewCourseRepository(db *DB) repository.CourseRepository {
	return &courseRepository{db: db}
}

// Create creates a new course record.
func (r *courseRepository) Create(ctx context.Context, course *domain.Course) error {
	query := `
		INSERT INTO courses (id, title, storage_key, cdn_enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		course.ID,
		course.Title,
		course.StorageKey,
		course.CDNEnabled,
		course.CreatedAt,
		course.UpdatedAt,
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
		WHERE id = $1
	`

	course := &domain.Course{}
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&course.ID,
		&course.Title,
		&course.StorageKey,
		&course.CDNEnabled,
		&course.CreatedAt,
		&course.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	return course, nil
}

// Update updates an existing course record.
func (r *courseRepository) Update(ctx context.Context, course *domain.Course) error {
	query := `
		UPDATE courses
		SET title = $2, storage_key = $3, cdn_enabled = $4, updated_at = $5
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query,
		course.ID,
		course.Title,
		course.StorageKey,
		course.CDNEnabled,
		course.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update course: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCourseNotFound
	}

	return nil
}

// Delete deletes a course record by ID.
func (r *courseRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}
	if tag.RowsAffected() == 0 {
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
		query += ` LIMIT $1 OFFSET $2`
		args = append(args, opts.Limit, opts.Offset)
	}

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	defer rows.Close()

	var courses []*domain.Course
	for rows.Next() {
		course := &domain.Course{}
		err := rows.Scan(
			&course.ID,
			&course.Title,
			&course.StorageKey,
			&course.CDNEnabled,
			&course.CreatedAt,
			&course.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan course: %w", err)
		}
		courses = append(courses, course)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate courses: %w", err)
	}

	return courses, nil
}

// isUniqueViolation checks if an error is a unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
