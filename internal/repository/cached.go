package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/edupress/dispatch-storage/internal/domain"
)

// courseCacheTTL bounds staleness of cached course records. Writes
// invalidate eagerly; the TTL only covers out-of-band database changes.
const courseCacheTTL = 5 * time.Minute

// CachedCourseRepository decorates a CourseRepository with read-through
// caching of GetByID. Cache failures are logged and ignored: the cache is
// an optimization, never a source of truth.
type CachedCourseRepository struct {
	inner  CourseRepository
	cache  Cache
	keys   CacheKey
	logger zerolog.Logger
}

// NewCachedCourseRepository wraps a repository with a cache.
func NewCachedCourseRepository(inner CourseRepository, cache Cache, logger zerolog.Logger) *CachedCourseRepository {
	return &CachedCourseRepository{
		inner:  inner,
		cache:  cache,
		logger: logger.With().Str("component", "course_cache").Logger(),
	}
}

// Create creates the course and primes the cache.
func (r *CachedCourseRepository) Create(ctx context.Context, course *domain.Course) error {
	if err := r.inner.Create(ctx, course); err != nil {
		return err
	}
	r.store(ctx, course)
	return nil
}

// GetByID reads through the cache.
func (r *CachedCourseRepository) GetByID(ctx context.Context, id string) (*domain.Course, error) {
	if data, err := r.cache.Get(ctx, r.keys.Course(id)); err == nil {
		var course domain.Course
		if err := json.Unmarshal(data, &course); err == nil {
			return &course, nil
		}
		// Corrupt entry: drop it and fall through to the database.
		_ = r.cache.Delete(ctx, r.keys.Course(id))
	} else if !errors.Is(err, ErrCacheMiss) {
		r.logger.Warn().Err(err).Str("course_id", id).Msg("cache read failed")
	}

	course, err := r.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store(ctx, course)
	return course, nil
}

// Update updates the course and refreshes the cache.
func (r *CachedCourseRepository) Update(ctx context.Context, course *domain.Course) error {
	if err := r.inner.Update(ctx, course); err != nil {
		return err
	}
	r.store(ctx, course)
	return nil
}

// Delete deletes the course and evicts it from the cache.
func (r *CachedCourseRepository) Delete(ctx context.Context, id string) error {
	if err := r.inner.Delete(ctx, id); err != nil {
		return err
	}
	if err := r.cache.Delete(ctx, r.keys.Course(id)); err != nil {
		r.logger.Warn().Err(err).Str("course_id", id).Msg("cache eviction failed")
	}
	return nil
}

// List delegates to the underlying repository; listings are not cached.
func (r *CachedCourseRepository) List(ctx context.Context, opts ListOptions) ([]*domain.Course, error) {
	return r.inner.List(ctx, opts)
}

// store serializes a course into the cache, logging failures.
func (r *CachedCourseRepository) store(ctx context.Context, course *domain.Course) {
	data, err := json.Marshal(course)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, r.keys.Course(course.ID), data, courseCacheTTL); err != nil {
		r.logger.Warn().Err(err).Str("course_id", course.ID).Msg("cache write failed")
	}
}
