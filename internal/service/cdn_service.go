package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/edupress/dispatch-storage/internal/metrics"
	"github.com/edupress/dispatch-storage/internal/repository"
	"github.com/edupress/dispatch-storage/internal/storage"
)

// CDNService handles CDN cache purges and status reporting.
type CDNService struct {
	adapters AdapterSource
	courses  repository.CourseRepository
	logger   zerolog.Logger
}

// NewCDNService creates a new CDNService.
func NewCDNService(adapters AdapterSource, courses repository.CourseRepository, logger zerolog.Logger) *CDNService {
	return &CDNService{
		adapters: adapters,
		courses:  courses,
		logger:   logger.With().Str("service", "cdn").Logger(),
	}
}

// =============================================================================
// Input/Output Structs
// =============================================================================

// PurgeRequest describes what to purge from the CDN cache. Fields are
// resolved in precedence order: All, then CourseID, then Pattern, then
// Keys. Only the highest-precedence populated field is used.
type PurgeRequest struct {
	All      bool
	CourseID string
	Pattern  string
	Keys     []string
}

// PurgeResult contains the outcome of a purge operation.
type PurgeResult struct {
	Success    bool
	PurgedKeys []string
	Message    string
	Provider   storage.Provider
}

// CDNStatus reports whether the active adapter serves through a CDN and
// whether the backend is reachable.
type CDNStatus struct {
	Enabled   bool
	Provider  storage.Provider
	Healthy   bool
	CheckedAt time.Time
}

// =============================================================================
// Service Methods
// =============================================================================

// Purge resolves the request to a set of cache keys and purges them.
// Against an adapter without CDN support the purge is a successful no-op.
func (s *CDNService) Purge(ctx context.Context, req PurgeRequest) (*PurgeResult, error) {
	adapter := s.adapters.Get(ctx)

	result := &PurgeResult{Provider: adapter.Provider()}

	if !adapter.CDNEnabled() {
		result.Success = true
		result.PurgedKeys = []string{}
		result.Message = "storage provider has no CDN; nothing to purge"
		return result, nil
	}

	keys, err := s.resolvePurgeKeys(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		result.Success = true
		result.PurgedKeys = []string{}
		result.Message = "no cache keys matched the purge request"
		return result, nil
	}

	outcome := "success"
	if adapter.PurgeCDNCache(ctx, keys) {
		result.Success = true
		result.PurgedKeys = keys
		result.Message = fmt.Sprintf("purged %d cache key(s)", len(keys))
	} else {
		outcome = "failure"
		result.PurgedKeys = []string{}
		result.Message = "CDN purge request failed"
	}
	metrics.PurgesTotal.WithLabelValues(string(adapter.Provider()), outcome).Inc()

	s.logger.Info().
		Bool("success", result.Success).
		Int("purged", len(result.PurgedKeys)).
		Str("provider", string(adapter.Provider())).
		Msg("cdn purge completed")

	return result, nil
}

// PurgeCourseCache purges all cached assets of a single course.
func (s *CDNService) PurgeCourseCache(ctx context.Context, courseID string) (*PurgeResult, error) {
	if courseID == "" {
		return nil, ErrCourseIDEmpty
	}
	return s.Purge(ctx, PurgeRequest{CourseID: courseID})
}

// PurgeURLs purges specific URLs from the CDN cache. URLs are reduced to
// their path component; entries that do not parse are discarded with a
// warning. A request where every URL is invalid fails without reaching
// the backend.
func (s *CDNService) PurgeURLs(ctx context.Context, urls []string) (*PurgeResult, error) {
	adapter := s.adapters.Get(ctx)

	result := &PurgeResult{Provider: adapter.Provider()}

	if !adapter.CDNEnabled() {
		result.Success = true
		result.PurgedKeys = []string{}
		result.Message = "storage provider has no CDN; nothing to purge"
		return result, nil
	}

	var keys []string
	for _, raw := range urls {
		parsed, perr := url.Parse(raw)
		if perr != nil || parsed.Path == "" {
			s.logger.Warn().Str("url", raw).Msg("discarding unparseable purge URL")
			continue
		}
		keys = append(keys, strings.TrimPrefix(parsed.Path, "/"))
	}
	if len(keys) == 0 {
		result.Message = "no valid URLs in purge request"
		return result, nil
	}

	return s.Purge(ctx, PurgeRequest{Keys: keys})
}

// Status reports CDN availability for the active adapter.
func (s *CDNService) Status(ctx context.Context) (*CDNStatus, error) {
	adapter := s.adapters.Get(ctx)
	return &CDNStatus{
		Enabled:   adapter.CDNEnabled(),
		Provider:  adapter.Provider(),
		Healthy:   adapter.HealthCheck(ctx),
		CheckedAt: time.Now().UTC(),
	}, nil
}

// resolvePurgeKeys picks the highest-precedence populated request field
// and expands it to cache keys.
func (s *CDNService) resolvePurgeKeys(ctx context.Context, req PurgeRequest) ([]string, error) {
	switch {
	case req.All:
		return []string{"*"}, nil
	case req.CourseID != "":
		course, err := s.courses.GetByID(ctx, req.CourseID)
		if err != nil {
			return nil, err
		}
		if !course.CDNEnabled {
			return nil, nil
		}
		return []string{"courses/" + course.ID + "/*"}, nil
	case req.Pattern != "":
		return []string{req.Pattern}, nil
	default:
		return req.Keys, nil
	}
}
