package service

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/edupress/dispatch-storage/internal/domain"
	"github.com/edupress/dispatch-storage/internal/metrics"
	"github.com/edupress/dispatch-storage/internal/repository"
	"github.com/edupress/dispatch-storage/internal/storage"
)

// AdapterSource resolves the active storage adapter. *storage.Factory
// satisfies it.
type AdapterSource interface {
	Get(ctx context.Context) storage.Adapter
}

// AssetService handles course asset uploads and URL generation against
// whichever storage adapter the source resolves.
type AssetService struct {
	adapters AdapterSource
	courses  repository.CourseRepository
	logger   zerolog.Logger
}

// NewAssetService creates a new AssetService.
func NewAssetService(adapters AdapterSource, courses repository.CourseRepository, logger zerolog.Logger) *AssetService {
	return &AssetService{
		adapters: adapters,
		courses:  courses,
		logger:   logger.With().Str("service", "asset").Logger(),
	}
}

// =============================================================================
// Input/Output Structs
// =============================================================================

// UploadPackageInput contains the data needed to upload a course package.
type UploadPackageInput struct {
	CourseID string
	FilePath string
	FileName string
	Metadata map[string]string // Optional
}

// UploadPackageOutput contains the result of a package upload.
type UploadPackageOutput struct {
	Key      string
	URL      string
	Size     int64
	ETag     string
	Provider storage.Provider
}

// UploadAssetsInput contains the data needed to extract an archive's
// entries into course asset storage.
type UploadAssetsInput struct {
	CourseID    string
	ArchivePath string
}

// UploadAssetsOutput summarizes an archive extraction upload.
type UploadAssetsOutput struct {
	Uploaded   int
	TotalBytes int64
	Keys       []string
}

// DeleteAssetsInput contains the data needed to delete course assets.
// When Key is empty the course's whole asset prefix is removed, which is
// only supported for adapters that can delete directories.
type DeleteAssetsInput struct {
	CourseID string
	Key      string // Optional
}

// DeleteAssetsOutput contains the result of an asset deletion.
type DeleteAssetsOutput struct {
	Deleted bool
	Purged  bool
}

// StorageInfo describes the resolved storage adapter.
type StorageInfo struct {
	Provider   storage.Provider
	CDNEnabled bool
	Healthy    bool
	BaseURL    string
}

// =============================================================================
// Service Methods
// =============================================================================

// UploadCoursePackage uploads a course package file (typically a SCORM zip)
// under the course's asset prefix.
func (s *AssetService) UploadCoursePackage(ctx context.Context, input UploadPackageInput) (*UploadPackageOutput, error) {
	if input.CourseID == "" {
		return nil, ErrCourseIDEmpty
	}

	adapter := s.adapters.Get(ctx)

	fileName := path.Base(strings.ReplaceAll(input.FileName, "\\", "/"))
	if fileName == "" || fileName == "." || fileName == "/" {
		fileName = filepath.Base(input.FilePath)
	}
	key := "courses/" + input.CourseID + "/" + fileName

	metadata := map[string]string{
		"course-id":   input.CourseID,
		"file-name":   fileName,
		"uploaded-at": time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range input.Metadata {
		metadata[k] = v
	}

	result, err := adapter.UploadFile(ctx, input.FilePath, key, &storage.UploadOptions{
		ContentType:  contentTypeFor(fileName),
		CacheControl: cacheControlImmutable,
		Metadata:     metadata,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("course_id", input.CourseID).Str("key", key).Msg("package upload failed")
		return nil, err
	}

	metrics.UploadsTotal.WithLabelValues(string(adapter.Provider())).Inc()
	metrics.UploadBytesTotal.WithLabelValues(string(adapter.Provider())).Add(float64(result.Size))

	// Record the package location on the course. Upload already succeeded,
	// so a record failure is logged rather than surfaced.
	if course, cerr := s.courses.GetByID(ctx, input.CourseID); cerr == nil {
		course.SetStorageKey(result.Key)
		if uerr := s.courses.Update(ctx, course); uerr != nil {
			s.logger.Warn().Err(uerr).Str("course_id", input.CourseID).Msg("failed to record storage key")
		}
	} else if !errors.Is(cerr, domain.ErrCourseNotFound) {
		s.logger.Warn().Err(cerr).Str("course_id", input.CourseID).Msg("course lookup failed after upload")
	}

	s.logger.Info().
		Str("course_id", input.CourseID).
		Str("key", result.Key).
		Int64("size", result.Size).
		Str("provider", string(adapter.Provider())).
		Msg("course package uploaded")

	return &UploadPackageOutput{
		Key:      result.Key,
		URL:      result.URL,
		Size:     result.Size,
		ETag:     result.ETag,
		Provider: adapter.Provider(),
	}, nil
}

// UploadCourseAssets extracts a zip archive and uploads each file entry
// under the course's assets prefix, choosing content type and cache policy
// per entry.
func (s *AssetService) UploadCourseAssets(ctx context.Context, input UploadAssetsInput) (*UploadAssetsOutput, error) {
	if input.CourseID == "" {
		return nil, ErrCourseIDEmpty
	}

	adapter := s.adapters.Get(ctx)

	reader, err := zip.OpenReader(input.ArchivePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArchiveUnreadable, err)
	}
	defer reader.Close()

	out := &UploadAssetsOutput{}
	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() {
			continue
		}

		key := "courses/" + input.CourseID + "/assets/" + entry.Name

		rc, err := entry.Open()
		if err != nil {
			s.logger.Error().Err(err).Str("entry", entry.Name).Msg("failed to open archive entry")
			return nil, fmt.Errorf("%w: %v", ErrArchiveUnreadable, err)
		}

		buf, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrArchiveUnreadable, err)
		}

		result, err := adapter.UploadBuffer(ctx, buf, key, &storage.UploadOptions{
			ContentType:  contentTypeFor(entry.Name),
			CacheControl: cacheControlFor(entry.Name),
			Metadata:     map[string]string{"course-id": input.CourseID},
		})
		if err != nil {
			s.logger.Error().Err(err).Str("key", key).Msg("asset upload failed")
			return nil, err
		}

		metrics.UploadsTotal.WithLabelValues(string(adapter.Provider())).Inc()
		metrics.UploadBytesTotal.WithLabelValues(string(adapter.Provider())).Add(float64(result.Size))

		out.Uploaded++
		out.TotalBytes += result.Size
		out.Keys = append(out.Keys, result.Key)
	}

	s.logger.Info().
		Str("course_id", input.CourseID).
		Int("uploaded", out.Uploaded).
		Int64("total_bytes", out.TotalBytes).
		Msg("course assets uploaded")

	return out, nil
}

// CourseAssetURL returns the public URL for a course asset.
func (s *AssetService) CourseAssetURL(ctx context.Context, courseID, key string) (string, error) {
	if courseID == "" {
		return "", ErrCourseIDEmpty
	}
	adapter := s.adapters.Get(ctx)
	return adapter.PublicURL("courses/" + courseID + "/" + key), nil
}

// SignedAssetURL returns a time-limited URL for a course asset. Adapters
// without signing support fall back to the public URL.
func (s *AssetService) SignedAssetURL(ctx context.Context, courseID, key string, opts *storage.SignedURLOptions) (string, error) {
	if courseID == "" {
		return "", ErrCourseIDEmpty
	}
	adapter := s.adapters.Get(ctx)
	return adapter.SignedURL(ctx, "courses/"+courseID+"/"+key, opts)
}

// DeleteCourseAssets deletes a single course asset, or the course's whole
// asset prefix when no key is given. Prefix deletion requires an adapter
// that supports directory removal.
func (s *AssetService) DeleteCourseAssets(ctx context.Context, input DeleteAssetsInput) (*DeleteAssetsOutput, error) {
	if input.CourseID == "" {
		return nil, ErrCourseIDEmpty
	}

	adapter := s.adapters.Get(ctx)

	out := &DeleteAssetsOutput{}

	if input.Key != "" {
		key := "courses/" + input.CourseID + "/" + input.Key
		out.Deleted = adapter.DeleteFile(ctx, key)
		if out.Deleted {
			metrics.DeletesTotal.WithLabelValues(string(adapter.Provider())).Inc()
		}

		if out.Deleted && adapter.CDNEnabled() {
			if course, cerr := s.courses.GetByID(ctx, input.CourseID); cerr == nil && course.CDNEnabled {
				out.Purged = adapter.PurgeCDNCache(ctx, []string{key})
			}
		}
		return out, nil
	}

	remover, ok := adapter.(storage.DirRemover)
	if !ok {
		return nil, ErrRemoteBulkDeleteUnsupported
	}
	if err := remover.RemoveDir(ctx, "courses/"+input.CourseID); err != nil {
		return nil, err
	}
	out.Deleted = true
	metrics.DeletesTotal.WithLabelValues(string(adapter.Provider())).Inc()

	s.logger.Info().Str("course_id", input.CourseID).Msg("course assets removed")
	return out, nil
}

// StorageInfo reports which adapter is active and whether it is healthy.
func (s *AssetService) StorageInfo(ctx context.Context) (*StorageInfo, error) {
	adapter := s.adapters.Get(ctx)
	return &StorageInfo{
		Provider:   adapter.Provider(),
		CDNEnabled: adapter.CDNEnabled(),
		Healthy:    adapter.HealthCheck(ctx),
		BaseURL:    adapter.PublicURL(""),
	}, nil
}
