package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/edupress/dispatch-storage/internal/domain"
	"github.com/edupress/dispatch-storage/internal/repository"
	"github.com/edupress/dispatch-storage/internal/service"
	"github.com/edupress/dispatch-storage/internal/storage"
)

// =============================================================================
// Test Fakes
// =============================================================================

// fakeAdapter is a canned-response storage adapter for handler tests.
type fakeAdapter struct {
	provider   storage.Provider
	cdnEnabled bool
	healthy    bool
	purgeOK    bool
	purged     [][]string
}

func (f *fakeAdapter) Provider() storage.Provider { return f.provider }
func (f *fakeAdapter) CDNEnabled() bool           { return f.cdnEnabled }

func (f *fakeAdapter) UploadFile(ctx context.Context, localPath, key string, opts *storage.UploadOptions) (*storage.UploadResult, error) {
	return &storage.UploadResult{Key: storage.SanitizeKey(key), URL: "https://cdn.test/" + key, Size: 4}, nil
}

func (f *fakeAdapter) UploadBuffer(ctx context.Context, data []byte, key string, opts *storage.UploadOptions) (*storage.UploadResult, error) {
	return &storage.UploadResult{Key: storage.SanitizeKey(key), URL: "https://cdn.test/" + key, Size: int64(len(data))}, nil
}

func (f *fakeAdapter) DeleteFile(ctx context.Context, key string) bool    { return true }
func (f *fakeAdapter) DeleteFiles(ctx context.Context, keys []string) int { return len(keys) }
func (f *fakeAdapter) PublicURL(key string) string                        { return "https://cdn.test/" + key }

func (f *fakeAdapter) SignedURL(ctx context.Context, key string, opts *storage.SignedURLOptions) (string, error) {
	return "https://cdn.test/" + key + "?sig=x", nil
}

func (f *fakeAdapter) HealthCheck(ctx context.Context) bool { return f.healthy }

func (f *fakeAdapter) PurgeCDNCache(ctx context.Context, keys []string) bool {
	f.purged = append(f.purged, keys)
	return f.purgeOK
}

type fakeAdapterSource struct {
	adapter storage.Adapter
}

func (s *fakeAdapterSource) Get(ctx context.Context) storage.Adapter { return s.adapter }

// memCourseRepo is a map-backed course repository for handler tests.
type memCourseRepo struct {
	mu      sync.Mutex
	courses map[string]*domain.Course
}

func newMemCourseRepo() *memCourseRepo {
	return &memCourseRepo{courses: make(map[string]*domain.Course)}
}

func (r *memCourseRepo) Create(ctx context.Context, course *domain.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.courses[course.ID]; ok {
		return domain.ErrCourseAlreadyExists
	}
	r.courses[course.ID] = course
	return nil
}

func (r *memCourseRepo) GetByID(ctx context.Context, id string) (*domain.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	course, ok := r.courses[id]
	if !ok {
		return nil, domain.ErrCourseNotFound
	}
	return course, nil
}

func (r *memCourseRepo) Update(ctx context.Context, course *domain.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.courses[course.ID]; !ok {
		return domain.ErrCourseNotFound
	}
	r.courses[course.ID] = course
	return nil
}

func (r *memCourseRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.courses[id]; !ok {
		return domain.ErrCourseNotFound
	}
	delete(r.courses, id)
	return nil
}

func (r *memCourseRepo) List(ctx context.Context, opts repository.ListOptions) ([]*domain.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Course, 0, len(r.courses))
	for _, c := range r.courses {
		out = append(out, c)
	}
	return out, nil
}

func newTestServer(t *testing.T, adapter storage.Adapter) (*httptest.Server, *memCourseRepo) {
	t.Helper()

	courses := newMemCourseRepo()
	source := &fakeAdapterSource{adapter: adapter}
	logger := zerolog.Nop()

	admin := NewAdminHandler(AdminConfig{
		AssetService: service.NewAssetService(source, courses, logger),
		CDNService:   service.NewCDNService(source, courses, logger),
		Courses:      courses,
		Logger:       logger,
	})

	router := NewRouter(RouterConfig{AdminHandler: admin, Logger: logger})
	srv := httptest.NewServer(router.Handler())
	t.Cleanup(srv.Close)

	return srv, courses
}

// =============================================================================
// Test Cases
// =============================================================================

func TestAdminHandler_CourseLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, &fakeAdapter{provider: storage.ProviderLocal, healthy: true})

	body := bytes.NewBufferString(`{"title":"Intro Course","cdn_enabled":true}`)
	resp, err := http.Post(srv.URL+"/admin/courses", "application/json", body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created courseResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotEmpty(t, created.ID)
	require.Equal(t, "Intro Course", created.Title)
	require.True(t, created.CDNEnabled)

	getResp, err := http.Get(srv.URL + "/admin/courses/" + created.ID)
	require.NoError(t, err)
	defer getResp.Body.Close()
	require.Equal(t, http.StatusOK, getResp.StatusCode)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/admin/courses/"+created.ID, nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer delResp.Body.Close()
	require.Equal(t, http.StatusNoContent, delResp.StatusCode)

	missingResp, err := http.Get(srv.URL + "/admin/courses/" + created.ID)
	require.NoError(t, err)
	defer missingResp.Body.Close()
	require.Equal(t, http.StatusNotFound, missingResp.StatusCode)
}

func TestAdminHandler_CreateCourseValidation(t *testing.T) {
	srv, _ := newTestServer(t, &fakeAdapter{provider: storage.ProviderLocal})

	resp, err := http.Post(srv.URL+"/admin/courses", "application/json", strings.NewReader(`{"title":""}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdminHandler_PurgeCache(t *testing.T) {
	adapter := &fakeAdapter{provider: storage.ProviderEdge, cdnEnabled: true, healthy: true, purgeOK: true}
	srv, _ := newTestServer(t, adapter)

	resp, err := http.Post(srv.URL+"/admin/cache/purge", "application/json", strings.NewReader(`{"all":true}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result purgeCacheResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	require.True(t, result.Success)
	require.Equal(t, []string{"*"}, result.PurgedKeys)
	require.Equal(t, string(storage.ProviderEdge), result.Provider)
	require.Equal(t, [][]string{{"*"}}, adapter.purged)
}

func TestAdminHandler_PurgeCourseCache(t *testing.T) {
	adapter := &fakeAdapter{provider: storage.ProviderEdge, cdnEnabled: true, purgeOK: true}
	srv, courses := newTestServer(t, adapter)

	course := domain.NewCourse("Course")
	course.CDNEnabled = true
	require.NoError(t, courses.Create(context.Background(), course))

	resp, err := http.Post(srv.URL+"/admin/cache/purge/course/"+course.ID, "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result purgeCacheResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	require.True(t, result.Success)
	require.Equal(t, []string{"courses/" + course.ID + "/*"}, result.PurgedKeys)
}

func TestAdminHandler_PurgeCourseCache_NotFound(t *testing.T) {
	adapter := &fakeAdapter{provider: storage.ProviderEdge, cdnEnabled: true, purgeOK: true}
	srv, _ := newTestServer(t, adapter)

	resp, err := http.Post(srv.URL+"/admin/cache/purge/course/missing", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminHandler_CDNStatus(t *testing.T) {
	srv, _ := newTestServer(t, &fakeAdapter{provider: storage.ProviderDistribution, cdnEnabled: true, healthy: true})

	resp, err := http.Get(srv.URL + "/admin/cdn/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	require.Equal(t, true, status["enabled"])
	require.Equal(t, true, status["healthy"])
	require.Equal(t, string(storage.ProviderDistribution), status["provider"])
}

func TestAdminHandler_StorageInfo(t *testing.T) {
	srv, _ := newTestServer(t, &fakeAdapter{provider: storage.ProviderLocal, healthy: true})

	resp, err := http.Get(srv.URL + "/admin/storage/info")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var info map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	require.Equal(t, string(storage.ProviderLocal), info["provider"])
	require.Equal(t, false, info["cdn_enabled"])
	require.Equal(t, true, info["healthy"])
}

func TestRouter_Health(t *testing.T) {
	srv, _ := newTestServer(t, &fakeAdapter{provider: storage.ProviderLocal})

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}
