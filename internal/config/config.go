package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Search    SearchConfig
	Embedding EmbeddingConfig
	Cache     CacheConfig
	Tuning    TuningConfig
}

type SearchConfig struct {
	URL string // base URL of the face search API (e.g., http://localhost:9000)
}

type EmbeddingConfig struct {
	URL string // base URL of the detection/embedding server
}

type CacheConfig struct {
	Dir string // persistent thumbnail cache directory
}

// TuningConfig carries the pipeline knobs shipped as embedded defaults.
// Environment variables never override these; they are build-time policy.
type TuningConfig struct {
	Thumbs struct {
		MaxConcurrent      int `yaml:"max_concurrent"`
		MaxAttempts        int `yaml:"max_attempts"`
		BaseTimeoutSeconds int `yaml:"base_timeout_seconds"`
		TimeoutStepSeconds int `yaml:"timeout_step_seconds"`
		RetryDelaySeconds  int `yaml:"retry_delay_seconds"`
		MemoryLimit        int `yaml:"memory_limit"`
		MemoryEvict        int `yaml:"memory_evict"`
	} `yaml:"thumbs"`
	Search struct {
		Radius     float64 `yaml:"radius"`
		RadiusMin  float64 `yaml:"radius_min"`
		RadiusMax  float64 `yaml:"radius_max"`
		TopK       int     `yaml:"top_k"`
		Collection string  `yaml:"collection"`
	} `yaml:"search"`
	Capture struct {
		IntervalMS    int `yaml:"interval_ms"`
		DetectMaxSize int `yaml:"detect_max_size"`
		FaceCropSize  int `yaml:"face_crop_size"`
	} `yaml:"capture"`
	Preview struct {
		CacheSize        int `yaml:"cache_size"`
		CloseWaitSeconds int `yaml:"close_wait_seconds"`
	} `yaml:"preview"`
}

// envStr reads an environment variable, falling back to a default.
func envStr(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

func Load() *Config {
	var tuning TuningConfig
	if err := yaml.Unmarshal(defaultsYAML, &tuning); err != nil {
		// Embedded file, so this can only be a build defect.
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	// operational knobs overridable without rebuilding
	tuning.Thumbs.MaxConcurrent = envInt("THUMB_MAX_CONCURRENT", tuning.Thumbs.MaxConcurrent)
	tuning.Thumbs.MemoryLimit = envInt("THUMB_MEMORY_LIMIT", tuning.Thumbs.MemoryLimit)

	return &Config{
		Search: SearchConfig{
			URL: os.Getenv("FACE_SEARCH_URL"),
		},
		Embedding: EmbeddingConfig{
			URL: os.Getenv("EMBEDDING_URL"),
		},
		Cache: CacheConfig{
			Dir: envStr("THUMB_CACHE_DIR", filepath.Join(os.TempDir(), "face-search-cache")),
		},
		Tuning: tuning,
	}
}
