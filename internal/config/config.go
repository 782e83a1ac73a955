package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the service
type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	GinMode     string `envconfig:"GIN_MODE" default:"debug"`
	RedisURL    string `envconfig:"REDIS_URL"`
	AdminAPIKey string `envconfig:"ADMIN_API_KEY"`

	TMDB struct {
		// 支持多个 API Key 轮询，逗号分隔
		APIKeys      []string      `envconfig:"TMDB_API_KEY"`
		BaseURL      string        `envconfig:"TMDB_BASE_URL" default:"https://api.themoviedb.org/3"`
		ImageBase    string        `envconfig:"TMDB_IMAGE_BASE" default:"https://image.tmdb.org/t/p"`
		Timeout      time.Duration `envconfig:"TMDB_TIMEOUT" default:"10s"`
		RateInterval time.Duration `envconfig:"TMDB_RATE_INTERVAL" default:"25ms"`
		RateBurst    int           `envconfig:"TMDB_RATE_BURST" default:"10"`
	}

	Search struct {
		Debounce time.Duration `envconfig:"SEARCH_DEBOUNCE" default:"500ms"`
		MaxPage  int           `envconfig:"SEARCH_MAX_PAGE" default:"100"`
	}

	Session struct {
		IdleTTL time.Duration `envconfig:"SESSION_IDLE_TTL" default:"30m"`
		Sweep   string        `envconfig:"SESSION_SWEEP" default:"@every 1m"`
		// 0 表示不限制
		Max int `envconfig:"SESSION_MAX" default:"1000"`
	}

	GenreCacheTTL time.Duration `envconfig:"GENRE_CACHE_TTL" default:"24h"`
}

// Load reads configuration from the environment, after loading an optional .env file.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := new(Config)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("load config error: %w", err)
	}

	keys := cfg.TMDB.APIKeys[:0]
	for _, k := range cfg.TMDB.APIKeys {
		if trimmed := strings.TrimSpace(k); trimmed != "" {
			keys = append(keys, trimmed)
		}
	}
	cfg.TMDB.APIKeys = keys
	cfg.TMDB.BaseURL = strings.TrimRight(cfg.TMDB.BaseURL, "/")
	cfg.TMDB.ImageBase = strings.TrimRight(cfg.TMDB.ImageBase, "/")

	if cfg.Search.MaxPage < 1 {
		return nil, fmt.Errorf("load config error: SEARCH_MAX_PAGE must be >= 1, got %d", cfg.Search.MaxPage)
	}

	if cfg.Session.Max < 0 {
		return nil, fmt.Errorf("load config error: SESSION_MAX must be >= 0, got %d", cfg.Session.Max)
	}

	return cfg, nil
}

// HasTMDB reports whether at least one provider token is configured.
func (c *Config) HasTMDB() bool {
	return len(c.TMDB.APIKeys) > 0
}
