package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/edupress/dispatch-storage/internal/domain"
	"github.com/edupress/dispatch-storage/internal/repository"
)

func newTestRepo(t *testing.T) repository.CourseRepository {
	t.Helper()

	db, err := NewDB(context.Background(), DefaultConfig(filepath.Join(t.TempDir(), "test.db")), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate(context.Background()))
	return NewCourseRepository(db)
}

func TestCourseRepository_CreateAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	course := domain.NewCourse("Fire Safety")
	course.CDNEnabled = true
	require.NoError(t, repo.Create(ctx, course))

	got, err := repo.GetByID(ctx, course.ID)
	require.NoError(t, err)
	require.Equal(t, course.ID, got.ID)
	require.Equal(t, "Fire Safety", got.Title)
	require.True(t, got.CDNEnabled)
	require.Nil(t, got.StorageKey)
	require.False(t, got.CreatedAt.IsZero())
}

func TestCourseRepository_CreateDuplicate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	course := domain.NewCourse("Course")
	require.NoError(t, repo.Create(ctx, course))
	require.ErrorIs(t, repo.Create(ctx, course), domain.ErrCourseAlreadyExists)
}

func TestCourseRepository_GetMissing(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetByID(context.Background(), "does-not-exist")
	require.ErrorIs(t, err, domain.ErrCourseNotFound)
}

func TestCourseRepository_Update(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	course := domain.NewCourse("Course")
	require.NoError(t, repo.Create(ctx, course))

	course.SetStorageKey("courses/" + course.ID + "/package.zip")
	course.Title = "Renamed Course"
	require.NoError(t, repo.Update(ctx, course))

	got, err := repo.GetByID(ctx, course.ID)
	require.NoError(t, err)
	require.Equal(t, "Renamed Course", got.Title)
	require.NotNil(t, got.StorageKey)
	require.Equal(t, "courses/"+course.ID+"/package.zip", *got.StorageKey)

	missing := domain.NewCourse("Ghost")
	require.ErrorIs(t, repo.Update(ctx, missing), domain.ErrCourseNotFound)
}

func TestCourseRepository_Delete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	course := domain.NewCourse("Course")
	require.NoError(t, repo.Create(ctx, course))
	require.NoError(t, repo.Delete(ctx, course.ID))

	_, err := repo.GetByID(ctx, course.ID)
	require.ErrorIs(t, err, domain.ErrCourseNotFound)

	require.ErrorIs(t, repo.Delete(ctx, course.ID), domain.ErrCourseNotFound)
}

func TestCourseRepository_List(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, title := range []string{"A", "B", "C"} {
		require.NoError(t, repo.Create(ctx, domain.NewCourse(title)))
	}

	all, err := repo.List(ctx, repository.ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)

	page, err := repo.List(ctx, repository.ListOptions{Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
}
