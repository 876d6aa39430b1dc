package storage

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/edupress/dispatch-storage/internal/metrics"
)

// Config selects and configures the storage backend.
type Config struct {
	// Provider selects the backend: "local", "cdn-s3-style", or
	// "cdn-distribution-style". Defaults to local.
	Provider string

	Local        LocalConfig
	Edge         EdgeConfig
	Distribution DistributionConfig
}

// Factory owns the single shared Adapter instance for the process.
//
// The first Get constructs the configured backend, health-checks it, and
// caches it; every later Get returns the cached instance without
// re-validation. Construction or health-check failure falls back to the
// local adapter, which cannot fail to construct, so Get never returns an
// error. Concurrent callers arriving during construction all wait for the
// same in-flight attempt: the underlying constructor and health check run
// at most once regardless of how many goroutines race on first use.
type Factory struct {
	cfg    Config
	logger zerolog.Logger

	mu      sync.Mutex
	adapter Adapter
	group   singleflight.Group

	// buildFn is replaceable in tests to observe construction counts.
	buildFn func(ctx context.Context) Adapter
}

// NewFactory creates a Factory. No adapter is constructed until Get.
func NewFactory(cfg Config, logger zerolog.Logger) *Factory {
	f := &Factory{
		cfg:    cfg,
		logger: logger.With().Str("component", "storage_factory").Logger(),
	}
	f.buildFn = f.build
	return f
}

// Get returns the process-wide adapter, constructing it on first use.
func (f *Factory) Get(ctx context.Context) Adapter {
	f.mu.Lock()
	if f.adapter != nil {
		a := f.adapter
		f.mu.Unlock()
		return a
	}
	f.mu.Unlock()

	v, _, _ := f.group.Do("adapter", func() (interface{}, error) {
		a := f.buildFn(ctx)
		f.mu.Lock()
		f.adapter = a
		f.mu.Unlock()
		markActiveProvider(a.Provider())
		return a, nil
	})
	return v.(Adapter)
}

// Reset clears the cached instance and any in-flight construction state.
// Intended for test isolation, not production use.
func (f *Factory) Reset() {
	f.mu.Lock()
	f.adapter = nil
	f.mu.Unlock()
	f.group.Forget("adapter")
}

// build constructs the configured backend, falling back to local storage
// on any construction or health-check failure.
func (f *Factory) build(ctx context.Context) Adapter {
	provider := Provider(f.cfg.Provider)
	if provider == "" {
		provider = ProviderLocal
	}

	switch provider {
	case ProviderEdge:
		if a := f.buildCDN(ctx, provider); a != nil {
			return a
		}
	case ProviderDistribution:
		if a := f.buildCDN(ctx, provider); a != nil {
			return a
		}
	case ProviderLocal:
		// fall through to local construction below
	default:
		f.logger.Warn().Str("provider", string(provider)).Msg("unknown storage provider, using local storage")
	}

	local := NewLocalAdapter(f.cfg.Local, f.logger)
	f.logger.Info().
		Str("provider", string(ProviderLocal)).
		Str("uploads_dir", f.cfg.Local.UploadsDir).
		Msg("storage adapter ready")
	return local
}

// buildCDN attempts to construct and health-check a CDN backend. A nil
// return means the caller should fall back to local storage.
func (f *Factory) buildCDN(ctx context.Context, provider Provider) Adapter {
	var (
		adapter Adapter
		err     error
	)
	switch provider {
	case ProviderEdge:
		adapter, err = NewEdgeAdapter(f.cfg.Edge, f.logger)
	case ProviderDistribution:
		adapter, err = NewDistributionAdapter(f.cfg.Distribution, f.logger)
	}
	if err != nil {
		f.logger.Warn().Err(err).
			Str("provider", string(provider)).
			Msg("cdn adapter construction failed, falling back to local storage")
		return nil
	}
	if !adapter.HealthCheck(ctx) {
		f.logger.Warn().
			Str("provider", string(provider)).
			Msg("cdn adapter failed health check, falling back to local storage")
		return nil
	}

	f.logger.Info().Str("provider", string(provider)).Msg("storage adapter ready")
	return adapter
}

// markActiveProvider flips the provider gauge to the backend in use.
func markActiveProvider(active Provider) {
	for _, p := range []Provider{ProviderLocal, ProviderEdge, ProviderDistribution} {
		v := 0.0
		if p == active {
			v = 1
		}
		metrics.ActiveProvider.WithLabelValues(string(p)).Set(v)
	}
}
