package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/edupress/dispatch-storage/internal/domain"
)

// countingRepo is an in-memory CourseRepository that counts database reads.
type countingRepo struct {
	mu      sync.Mutex
	courses map[string]*domain.Course
	gets    int
}

func newCountingRepo() *countingRepo {
	return &countingRepo{courses: make(map[string]*domain.Course)}
}

func (r *countingRepo) Create(ctx context.Context, course *domain.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.courses[course.ID]; ok {
		return domain.ErrCourseAlreadyExists
	}
	r.courses[course.ID] = course
	return nil
}

func (r *countingRepo) GetByID(ctx context.Context, id string) (*domain.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gets++
	course, ok := r.courses[id]
	if !ok {
		return nil, domain.ErrCourseNotFound
	}
	return course, nil
}

func (r *countingRepo) Update(ctx context.Context, course *domain.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.courses[course.ID]; !ok {
		return domain.ErrCourseNotFound
	}
	r.courses[course.ID] = course
	return nil
}

func (r *countingRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.courses[id]; !ok {
		return domain.ErrCourseNotFound
	}
	delete(r.courses, id)
	return nil
}

func (r *countingRepo) List(ctx context.Context, opts ListOptions) ([]*domain.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Course, 0, len(r.courses))
	for _, c := range r.courses {
		out = append(out, c)
	}
	return out, nil
}

// mapCache is a minimal in-memory Cache for decorator tests.
type mapCache struct {
	mu     sync.Mutex
	values map[string][]byte
	broken bool
}

func newMapCache() *mapCache {
	return &mapCache{values: make(map[string][]byte)}
}

func (c *mapCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken {
		return nil, ErrCacheUnavailable
	}
	v, ok := c.values[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return v, nil
}

func (c *mapCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken {
		return ErrCacheUnavailable
	}
	c.values[key] = value
	return nil
}

func (c *mapCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken {
		return ErrCacheUnavailable
	}
	delete(c.values, key)
	return nil
}

func (c *mapCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.values[key]
	return ok, nil
}

func TestCachedCourseRepository_ReadThrough(t *testing.T) {
	inner := newCountingRepo()
	cache := newMapCache()
	repo := NewCachedCourseRepository(inner, cache, zerolog.Nop())
	ctx := context.Background()

	course := domain.NewCourse("Course")
	require.NoError(t, repo.Create(ctx, course))

	// Create primed the cache, so reads never hit the database.
	for i := 0; i < 3; i++ {
		got, err := repo.GetByID(ctx, course.ID)
		require.NoError(t, err)
		require.Equal(t, course.ID, got.ID)
	}
	require.Equal(t, 0, inner.gets)
}

func TestCachedCourseRepository_MissPopulatesCache(t *testing.T) {
	inner := newCountingRepo()
	cache := newMapCache()
	repo := NewCachedCourseRepository(inner, cache, zerolog.Nop())
	ctx := context.Background()

	course := domain.NewCourse("Course")
	require.NoError(t, inner.Create(ctx, course))

	_, err := repo.GetByID(ctx, course.ID)
	require.NoError(t, err)
	require.Equal(t, 1, inner.gets)

	_, err = repo.GetByID(ctx, course.ID)
	require.NoError(t, err)
	require.Equal(t, 1, inner.gets)
}

func TestCachedCourseRepository_DeleteEvicts(t *testing.T) {
	inner := newCountingRepo()
	cache := newMapCache()
	repo := NewCachedCourseRepository(inner, cache, zerolog.Nop())
	ctx := context.Background()

	course := domain.NewCourse("Course")
	require.NoError(t, repo.Create(ctx, course))
	require.NoError(t, repo.Delete(ctx, course.ID))

	exists, err := cache.Exists(ctx, CacheKey{}.Course(course.ID))
	require.NoError(t, err)
	require.False(t, exists)

	_, err = repo.GetByID(ctx, course.ID)
	require.ErrorIs(t, err, domain.ErrCourseNotFound)
}

func TestCachedCourseRepository_CacheFailureFallsThrough(t *testing.T) {
	inner := newCountingRepo()
	cache := newMapCache()
	cache.broken = true
	repo := NewCachedCourseRepository(inner, cache, zerolog.Nop())
	ctx := context.Background()

	course := domain.NewCourse("Course")
	require.NoError(t, repo.Create(ctx, course))

	got, err := repo.GetByID(ctx, course.ID)
	require.NoError(t, err)
	require.Equal(t, course.ID, got.ID)
	require.Equal(t, 1, inner.gets)
}

func TestCachedCourseRepository_CorruptEntryDropped(t *testing.T) {
	inner := newCountingRepo()
	cache := newMapCache()
	repo := NewCachedCourseRepository(inner, cache, zerolog.Nop())
	ctx := context.Background()

	course := domain.NewCourse("Course")
	require.NoError(t, inner.Create(ctx, course))
	require.NoError(t, cache.Set(ctx, CacheKey{}.Course(course.ID), []byte("{not json"), 0))

	got, err := repo.GetByID(ctx, course.ID)
	require.NoError(t, err)
	require.Equal(t, course.ID, got.ID)
	require.Equal(t, 1, inner.gets)
}
