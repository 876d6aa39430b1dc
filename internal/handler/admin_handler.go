// Package handler provides HTTP handlers for the dispatch storage service.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/edupress/dispatch-storage/internal/domain"
	"github.com/edupress/dispatch-storage/internal/repository"
	"github.com/edupress/dispatch-storage/internal/service"
)

// maxUploadBytes caps multipart course uploads at 2 GiB.
const maxUploadBytes = 2 << 30

// AdminHandler handles course, asset and CDN administration requests.
type AdminHandler struct {
	assetService *service.AssetService
	cdnService   *service.CDNService
	courses      repository.CourseRepository
	logger       zerolog.Logger
}

// AdminConfig contains configuration for the admin handler.
type AdminConfig struct {
	AssetService *service.AssetService
	CDNService   *service.CDNService
	Courses      repository.CourseRepository
	Logger       zerolog.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(cfg AdminConfig) *AdminHandler {
	return &AdminHandler{
		assetService: cfg.AssetService,
		cdnService:   cfg.CDNService,
		courses:      cfg.Courses,
		logger:       cfg.Logger.With().Str("handler", "admin").Logger(),
	}
}

// =============================================================================
// Request/Response Structs
// =============================================================================

type createCourseRequest struct {
	Title      string `json:"title"`
	CDNEnabled bool   `json:"cdn_enabled"`
}

type courseResponse struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	StorageKey *string `json:"storage_key,omitempty"`
	CDNEnabled bool    `json:"cdn_enabled"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
}

type purgeCacheRequest struct {
	All      bool     `json:"all"`
	CourseID string   `json:"course_id"`
	Pattern  string   `json:"pattern"`
	Keys     []string `json:"keys"`
	URLs     []string `json:"urls"`
}

type purgeCacheResponse struct {
	Success    bool     `json:"success"`
	PurgedKeys []string `json:"purged_keys"`
	Message    string   `json:"message"`
	Provider   string   `json:"provider"`
}

type uploadResponse struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
	ETag string `json:"etag,omitempty"`
}

type uploadAssetsResponse struct {
	Uploaded   int      `json:"uploaded"`
	TotalBytes int64    `json:"total_bytes"`
	Keys       []string `json:"keys"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// =============================================================================
// Route Registration
// =============================================================================

// RegisterRoutes registers admin routes.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Post("/courses", h.handleCreateCourse)
		r.Get("/courses", h.handleListCourses)
		r.Get("/courses/{courseID}", h.handleGetCourse)
		r.Delete("/courses/{courseID}", h.handleDeleteCourse)

		r.Post("/courses/{courseID}/package", h.handleUploadPackage)
		r.Post("/courses/{courseID}/assets", h.handleUploadAssets)
		r.Delete("/courses/{courseID}/assets", h.handleDeleteAssets)

		r.Post("/cache/purge", h.handlePurgeCache)
		r.Post("/cache/purge/course/{courseID}", h.handlePurgeCourseCache)
		r.Get("/cdn/status", h.handleCDNStatus)
		r.Get("/storage/info", h.handleStorageInfo)
	})
}

// =============================================================================
// Course Handlers
// =============================================================================

func (h *AdminHandler) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	var req createCourseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Title == "" {
		writeError(w, http.StatusBadRequest, domain.ErrCourseTitleEmpty.Error())
		return
	}

	course := domain.NewCourse(req.Title)
	course.CDNEnabled = req.CDNEnabled

	if err := h.courses.Create(r.Context(), course); err != nil {
		switch {
		case errors.Is(err, domain.ErrCourseAlreadyExists):
			writeError(w, http.StatusConflict, err.Error())
		default:
			h.logger.Error().Err(err).Msg("failed to create course")
			writeError(w, http.StatusInternalServerError, "failed to create course")
		}
		return
	}

	writeJSON(w, http.StatusCreated, toCourseResponse(course))
}

func (h *AdminHandler) handleListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.courses.List(r.Context(), repository.ListOptions{Limit: 100})
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list courses")
		writeError(w, http.StatusInternalServerError, "failed to list courses")
		return
	}

	resp := make([]courseResponse, 0, len(courses))
	for _, c := range courses {
		resp = append(resp, toCourseResponse(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AdminHandler) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	course, err := h.courses.GetByID(r.Context(), chi.URLParam(r, "courseID"))
	if err != nil {
		if errors.Is(err, domain.ErrCourseNotFound) {
			writeError(w, http.StatusNotFound, "course not found")
			return
		}
		h.logger.Error().Err(err).Msg("failed to get course")
		writeError(w, http.StatusInternalServerError, "failed to get course")
		return
	}
	writeJSON(w, http.StatusOK, toCourseResponse(course))
}

func (h *AdminHandler) handleDeleteCourse(w http.ResponseWriter, r *http.Request) {
	if err := h.courses.Delete(r.Context(), chi.URLParam(r, "courseID")); err != nil {
		if errors.Is(err, domain.ErrCourseNotFound) {
			writeError(w, http.StatusNotFound, "course not found")
			return
		}
		h.logger.Error().Err(err).Msg("failed to delete course")
		writeError(w, http.StatusInternalServerError, "failed to delete course")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Asset Handlers
// =============================================================================

func (h *AdminHandler) handleUploadPackage(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")

	tmpPath, fileName, err := h.saveMultipartFile(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer os.Remove(tmpPath)

	out, err := h.assetService.UploadCoursePackage(r.Context(), service.UploadPackageInput{
		CourseID: courseID,
		FilePath: tmpPath,
		FileName: fileName,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, uploadResponse{
		Key:  out.Key,
		URL:  out.URL,
		Size: out.Size,
		ETag: out.ETag,
	})
}

func (h *AdminHandler) handleUploadAssets(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")

	tmpPath, _, err := h.saveMultipartFile(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer os.Remove(tmpPath)

	out, err := h.assetService.UploadCourseAssets(r.Context(), service.UploadAssetsInput{
		CourseID:    courseID,
		ArchivePath: tmpPath,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	keys := out.Keys
	if keys == nil {
		keys = []string{}
	}
	writeJSON(w, http.StatusCreated, uploadAssetsResponse{
		Uploaded:   out.Uploaded,
		TotalBytes: out.TotalBytes,
		Keys:       keys,
	})
}

func (h *AdminHandler) handleDeleteAssets(w http.ResponseWriter, r *http.Request) {
	out, err := h.assetService.DeleteCourseAssets(r.Context(), service.DeleteAssetsInput{
		CourseID: chi.URLParam(r, "courseID"),
		Key:      r.URL.Query().Get("key"),
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": out.Deleted, "purged": out.Purged})
}

// =============================================================================
// CDN Handlers
// =============================================================================

func (h *AdminHandler) handlePurgeCache(w http.ResponseWriter, r *http.Request) {
	var req purgeCacheRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var (
		result *service.PurgeResult
		err    error
	)
	if len(req.URLs) > 0 {
		result, err = h.cdnService.PurgeURLs(r.Context(), req.URLs)
	} else {
		result, err = h.cdnService.Purge(r.Context(), service.PurgeRequest{
			All:      req.All,
			CourseID: req.CourseID,
			Pattern:  req.Pattern,
			Keys:     req.Keys,
		})
	}
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPurgeResponse(result))
}

func (h *AdminHandler) handlePurgeCourseCache(w http.ResponseWriter, r *http.Request) {
	result, err := h.cdnService.PurgeCourseCache(r.Context(), chi.URLParam(r, "courseID"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPurgeResponse(result))
}

func (h *AdminHandler) handleCDNStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.cdnService.Status(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"enabled":    status.Enabled,
		"provider":   string(status.Provider),
		"healthy":    status.Healthy,
		"checked_at": status.CheckedAt.Format(time.RFC3339),
	})
}

func (h *AdminHandler) handleStorageInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.assetService.StorageInfo(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"provider":    string(info.Provider),
		"cdn_enabled": info.CDNEnabled,
		"healthy":     info.Healthy,
		"base_url":    info.BaseURL,
	})
}

// =============================================================================
// Helpers
// =============================================================================

// saveMultipartFile spools the "file" form part to a temp file and returns
// its path along with the client-supplied file name.
func (h *AdminHandler) saveMultipartFile(r *http.Request) (string, string, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		return "", "", errors.New("missing file upload")
	}
	defer file.Close()

	tmp, err := os.CreateTemp("", "dispatch-upload-*")
	if err != nil {
		return "", "", errors.New("failed to spool upload")
	}
	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", "", errors.New("failed to spool upload")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", "", errors.New("failed to spool upload")
	}

	return tmp.Name(), filepath.Base(header.Filename), nil
}

func (h *AdminHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrCourseIDEmpty),
		errors.Is(err, service.ErrArchiveUnreadable):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrRemoteBulkDeleteUnsupported):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrCourseNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func toCourseResponse(c *domain.Course) courseResponse {
	return courseResponse{
		ID:         c.ID,
		Title:      c.Title,
		StorageKey: c.StorageKey,
		CDNEnabled: c.CDNEnabled,
		CreatedAt:  c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  c.UpdatedAt.Format(time.RFC3339),
	}
}

func toPurgeResponse(result *service.PurgeResult) purgeCacheResponse {
	keys := result.PurgedKeys
	if keys == nil {
		keys = []string{}
	}
	return purgeCacheResponse{
		Success:    result.Success,
		PurgedKeys: keys,
		Message:    result.Message,
		Provider:   string(result.Provider),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
