package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/edupress/dispatch-storage/internal/domain"
	"github.com/edupress/dispatch-storage/internal/repository"
	"github.com/edupress/dispatch-storage/internal/storage"
)

// =============================================================================
// Mock Types
// =============================================================================

type mockAdapter struct {
	mock.Mock
}

func (m *mockAdapter) Provider() storage.Provider {
	args := m.Called()
	return args.Get(0).(storage.Provider)
}

func (m *mockAdapter) CDNEnabled() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *mockAdapter) UploadFile(ctx context.Context, localPath, key string, opts *storage.UploadOptions) (*storage.UploadResult, error) {
	args := m.Called(ctx, localPath, key, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.UploadResult), args.Error(1)
}

func (m *mockAdapter) UploadBuffer(ctx context.Context, data []byte, key string, opts *storage.UploadOptions) (*storage.UploadResult, error) {
	args := m.Called(ctx, data, key, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.UploadResult), args.Error(1)
}

func (m *mockAdapter) DeleteFile(ctx context.Context, key string) bool {
	args := m.Called(ctx, key)
	return args.Bool(0)
}

func (m *mockAdapter) DeleteFiles(ctx context.Context, keys []string) int {
	args := m.Called(ctx, keys)
	return args.Int(0)
}

func (m *mockAdapter) PublicURL(key string) string {
	args := m.Called(key)
	return args.String(0)
}

func (m *mockAdapter) SignedURL(ctx context.Context, key string, opts *storage.SignedURLOptions) (string, error) {
	args := m.Called(ctx, key, opts)
	return args.String(0), args.Error(1)
}

func (m *mockAdapter) HealthCheck(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

func (m *mockAdapter) PurgeCDNCache(ctx context.Context, keys []string) bool {
	args := m.Called(ctx, keys)
	return args.Bool(0)
}

// mockDirAdapter is a mockAdapter that also supports prefix removal.
type mockDirAdapter struct {
	mockAdapter
}

func (m *mockDirAdapter) RemoveDir(ctx context.Context, prefix string) error {
	args := m.Called(ctx, prefix)
	return args.Error(0)
}

type mockCourseRepository struct {
	mock.Mock
}

func (m *mockCourseRepository) Create(ctx context.Context, course *domain.Course) error {
	args := m.Called(ctx, course)
	return args.Error(0)
}

func (m *mockCourseRepository) GetByID(ctx context.Context, id string) (*domain.Course, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Course), args.Error(1)
}

func (m *mockCourseRepository) Update(ctx context.Context, course *domain.Course) error {
	args := m.Called(ctx, course)
	return args.Error(0)
}

func (m *mockCourseRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockCourseRepository) List(ctx context.Context, opts repository.ListOptions) ([]*domain.Course, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Course), args.Error(1)
}

// fixedAdapterSource hands every caller the same adapter, standing in for
// the factory.
type fixedAdapterSource struct {
	adapter storage.Adapter
}

func (s *fixedAdapterSource) Get(ctx context.Context) storage.Adapter {
	return s.adapter
}
