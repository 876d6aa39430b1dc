package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

func TestFactorySingleton(t *testing.T) {
	f := NewFactory(Config{Local: LocalConfig{UploadsDir: t.TempDir()}}, zerolog.Nop())

	var builds atomic.Int32
	orig := f.buildFn
	f.buildFn = func(ctx context.Context) Adapter {
		builds.Add(1)
		return orig(ctx)
	}

	const callers = 16
	adapters := make([]Adapter, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			adapters[i] = f.Get(context.Background())
		}(i)
	}
	wg.Wait()

	if n := builds.Load(); n != 1 {
		t.Errorf("construction ran %d times, want exactly 1", n)
	}
	for i := 1; i < callers; i++ {
		if adapters[i] != adapters[0] {
			t.Fatalf("caller %d got a different adapter instance", i)
		}
	}
}

func TestFactoryReset(t *testing.T) {
	f := NewFactory(Config{Local: LocalConfig{UploadsDir: t.TempDir()}}, zerolog.Nop())

	var builds atomic.Int32
	orig := f.buildFn
	f.buildFn = func(ctx context.Context) Adapter {
		builds.Add(1)
		return orig(ctx)
	}

	first := f.Get(context.Background())
	f.Reset()
	second := f.Get(context.Background())

	if builds.Load() != 2 {
		t.Errorf("construction ran %d times after reset, want 2", builds.Load())
	}
	if first == second {
		t.Error("expected a fresh instance after reset")
	}
}

func TestFactoryFallbackOnMissingCDNConfig(t *testing.T) {
	tests := []struct {
		name     string
		provider string
	}{
		{"edge with missing config", string(ProviderEdge)},
		{"distribution with missing config", string(ProviderDistribution)},
		{"unknown provider", "tape-robot"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFactory(Config{
				Provider: tt.provider,
				Local:    LocalConfig{UploadsDir: t.TempDir()},
			}, zerolog.Nop())

			a := f.Get(context.Background())
			if a.Provider() != ProviderLocal {
				t.Errorf("provider = %s, want %s", a.Provider(), ProviderLocal)
			}
			if a.CDNEnabled() {
				t.Error("fallback adapter must not report CDN enabled")
			}
		})
	}
}

func TestFactoryDefaultsToLocal(t *testing.T) {
	f := NewFactory(Config{Local: LocalConfig{UploadsDir: t.TempDir()}}, zerolog.Nop())
	if got := f.Get(context.Background()).Provider(); got != ProviderLocal {
		t.Errorf("provider = %s, want %s", got, ProviderLocal)
	}
}

func TestEdgeConfigValidate(t *testing.T) {
	err := EdgeConfig{Endpoint: "https://ams.storage.example.com", Region: "ams"}.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	cfgErr, ok := err.(*ConfigError)
	if !ok {
		t.Fatalf("expected *ConfigError, got %T", err)
	}
	if cfgErr.Provider != ProviderEdge {
		t.Errorf("provider = %s, want %s", cfgErr.Provider, ProviderEdge)
	}
	want := []string{"bucket", "access_key_id", "secret_access_key", "cdn_domain"}
	if len(cfgErr.Missing) != len(want) {
		t.Fatalf("missing = %v, want %v", cfgErr.Missing, want)
	}
	for i, field := range want {
		if cfgErr.Missing[i] != field {
			t.Errorf("missing[%d] = %s, want %s", i, cfgErr.Missing[i], field)
		}
	}
}

func TestDistributionConfigValidateAllowsMissingDistributionID(t *testing.T) {
	cfg := DistributionConfig{
		Region:          "us-east-1",
		Bucket:          "courses",
		AccessKeyID:     "AK",
		SecretAccessKey: "SK",
		Domain:          "https://d111.cdn.example.net",
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("distribution_id must be optional, got %v", err)
	}
}
