package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FACE_SEARCH_URL", "http://search.local:9000")
	t.Setenv("EMBEDDING_URL", "http://embed.local:8000")
	t.Setenv("THUMB_CACHE_DIR", "/var/cache/thumbs")

	cfg := Load()

	if cfg.Search.URL != "http://search.local:9000" {
		t.Errorf("unexpected search URL: %s", cfg.Search.URL)
	}
	if cfg.Embedding.URL != "http://embed.local:8000" {
		t.Errorf("unexpected embedding URL: %s", cfg.Embedding.URL)
	}
	if cfg.Cache.Dir != "/var/cache/thumbs" {
		t.Errorf("unexpected cache dir: %s", cfg.Cache.Dir)
	}
}

func TestEmbeddedTuning(t *testing.T) {
	cfg := Load()

	if cfg.Tuning.Thumbs.MaxConcurrent != 3 {
		t.Errorf("expected max_concurrent 3, got %d", cfg.Tuning.Thumbs.MaxConcurrent)
	}
	if cfg.Tuning.Thumbs.MemoryLimit != 100 {
		t.Errorf("expected memory_limit 100, got %d", cfg.Tuning.Thumbs.MemoryLimit)
	}
	if cfg.Tuning.Thumbs.MemoryEvict != 50 {
		t.Errorf("expected memory_evict 50, got %d", cfg.Tuning.Thumbs.MemoryEvict)
	}
	if cfg.Tuning.Search.Collection != "face_embeddings" {
		t.Errorf("unexpected collection: %s", cfg.Tuning.Search.Collection)
	}
	if cfg.Tuning.Search.Radius != 0.70 {
		t.Errorf("unexpected radius: %f", cfg.Tuning.Search.Radius)
	}
	if cfg.Tuning.Capture.IntervalMS != 500 {
		t.Errorf("unexpected capture interval: %d", cfg.Tuning.Capture.IntervalMS)
	}
	if cfg.Tuning.Preview.CacheSize != 10 {
		t.Errorf("unexpected preview cache size: %d", cfg.Tuning.Preview.CacheSize)
	}
}

func TestEnvInt(t *testing.T) {
	t.Setenv("TEST_ENV_INT", "42")
	if got := envInt("TEST_ENV_INT", 7); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}

	t.Setenv("TEST_ENV_INT", "not-a-number")
	if got := envInt("TEST_ENV_INT", 7); got != 7 {
		t.Errorf("expected fallback 7, got %d", got)
	}

	t.Setenv("TEST_ENV_INT", "-5")
	if got := envInt("TEST_ENV_INT", 7); got != 7 {
		t.Errorf("expected fallback 7 for negative, got %d", got)
	}
}

func TestLoadTuningEnvOverrides(t *testing.T) {
	t.Setenv("THUMB_MAX_CONCURRENT", "8")
	t.Setenv("THUMB_MEMORY_LIMIT", "250")

	cfg := Load()

	if cfg.Tuning.Thumbs.MaxConcurrent != 8 {
		t.Errorf("expected max_concurrent override 8, got %d", cfg.Tuning.Thumbs.MaxConcurrent)
	}
	if cfg.Tuning.Thumbs.MemoryLimit != 250 {
		t.Errorf("expected memory_limit override 250, got %d", cfg.Tuning.Thumbs.MemoryLimit)
	}

	// the eviction batch keeps its embedded default
	if cfg.Tuning.Thumbs.MemoryEvict != 50 {
		t.Errorf("expected memory_evict 50, got %d", cfg.Tuning.Thumbs.MemoryEvict)
	}
}
