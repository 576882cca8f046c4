package config

import (
	"fmt"
	"os"
	"strings"
)

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config is the root configuration for the cache service.
type Config struct {
	Environment Environment `yaml:"environment" json:"environment"`

	Server   Server   `yaml:"server" json:"server"`
	Cache    Cache    `yaml:"cache" json:"cache"`
	TTL      TTL      `yaml:"ttl" json:"ttl"`
	Chunking Chunking `yaml:"chunking" json:"chunking"`
	Monitor  Monitor  `yaml:"monitor" json:"monitor"`
	Logging  Logging  `yaml:"logging" json:"logging"`
	CORS     CORS     `yaml:"cors" json:"cors"`

	// LoadedFrom records which sources contributed to this configuration,
	// in load order. Populated by the loader, never from files.
	LoadedFrom []string `yaml:"-" json:"-"`
}

// Server holds the HTTP server settings.
type Server struct {
	Host            string   `yaml:"host" json:"host"`
	Port            int      `yaml:"port" json:"port"`
	ReadTimeout     Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout     Duration `yaml:"idle_timeout" json:"idle_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// Cache holds the core cache engine settings.
type Cache struct {
	DefaultTTL    Duration `yaml:"default_ttl" json:"default_ttl"`
	SweepInterval Duration `yaml:"sweep_interval" json:"sweep_interval"`
}

// TTL holds the per-entity cache lifetimes.
type TTL struct {
	Product  Duration `yaml:"product" json:"product"`
	Category Duration `yaml:"category" json:"category"`
	User     Duration `yaml:"user" json:"user"`
	Property Duration `yaml:"property" json:"property"`
	Tenant   Duration `yaml:"tenant" json:"tenant"`
}

// Chunking holds the chunked product-cache settings.
type Chunking struct {
	ChunkSize          int      `yaml:"chunk_size" json:"chunk_size"`
	MaxResidentChunks  int      `yaml:"max_resident_chunks" json:"max_resident_chunks"`
	ChunkTTL           Duration `yaml:"chunk_ttl" json:"chunk_ttl"`
	PopularTTL         Duration `yaml:"popular_ttl" json:"popular_ttl"`
	IndexTTL           Duration `yaml:"index_ttl" json:"index_ttl"`
	PopularLimit       int      `yaml:"popular_limit" json:"popular_limit"`
	MaxChunksPerSearch int      `yaml:"max_chunks_per_search" json:"max_chunks_per_search"`
	MaxSearchResults   int      `yaml:"max_search_results" json:"max_search_results"`
}

// Monitor holds the performance control-loop settings.
type Monitor struct {
	Interval                Duration `yaml:"interval" json:"interval"`
	ErrorBackoff            Duration `yaml:"error_backoff" json:"error_backoff"`
	MaxItems                int64    `yaml:"max_items" json:"max_items"`
	MinHitRatio             float64  `yaml:"min_hit_ratio" json:"min_hit_ratio"`
	MaxMemoryMB             int64    `yaml:"max_memory_mb" json:"max_memory_mb"`
	ExpiredBacklog          int64    `yaml:"expired_backlog" json:"expired_backlog"`
	EvictionAccessThreshold int64    `yaml:"eviction_access_threshold" json:"eviction_access_threshold"`
	EvictionBatch           int      `yaml:"eviction_batch" json:"eviction_batch"`
}

// Logging holds the logger settings.
type Logging struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// CORS holds the cross-origin settings for the admin API.
type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" json:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" json:"allowed_headers"`
	MaxAge         int      `yaml:"max_age" json:"max_age"`
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in (0, 65535], got %d", c.Server.Port)
	}
	if c.Cache.DefaultTTL <= 0 {
		return fmt.Errorf("cache.default_ttl must be positive, got %s", c.Cache.DefaultTTL)
	}
	if c.Cache.SweepInterval <= 0 {
		return fmt.Errorf("cache.sweep_interval must be positive, got %s", c.Cache.SweepInterval)
	}
	for name, d := range map[string]Duration{
		"ttl.product":  c.TTL.Product,
		"ttl.category": c.TTL.Category,
		"ttl.user":     c.TTL.User,
		"ttl.property": c.TTL.Property,
		"ttl.tenant":   c.TTL.Tenant,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if c.Chunking.ChunkSize <= 0 {
		return fmt.Errorf("chunking.chunk_size must be positive, got %d", c.Chunking.ChunkSize)
	}
	if c.Chunking.MaxResidentChunks <= 0 {
		return fmt.Errorf("chunking.max_resident_chunks must be positive, got %d", c.Chunking.MaxResidentChunks)
	}
	if c.Chunking.MaxChunksPerSearch <= 0 {
		return fmt.Errorf("chunking.max_chunks_per_search must be positive, got %d", c.Chunking.MaxChunksPerSearch)
	}
	if c.Monitor.Interval <= 0 {
		return fmt.Errorf("monitor.interval must be positive, got %s", c.Monitor.Interval)
	}
	if c.Monitor.MinHitRatio < 0 || c.Monitor.MinHitRatio > 1 {
		return fmt.Errorf("monitor.min_hit_ratio must be in [0, 1], got %g", c.Monitor.MinHitRatio)
	}
	if c.Monitor.MaxItems <= 0 {
		return fmt.Errorf("monitor.max_items must be positive, got %d", c.Monitor.MaxItems)
	}
	if c.Monitor.EvictionBatch <= 0 {
		return fmt.Errorf("monitor.eviction_batch must be positive, got %d", c.Monitor.EvictionBatch)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

// applyEnvironmentDefaults adjusts settings that track the environment when
// the files did not set them explicitly.
func (c *Config) applyEnvironmentDefaults() {
	if c.Environment == Development && c.Logging.Format == "json" {
		c.Logging.Format = "console"
	}
	if c.Environment == Production && c.Logging.Level == "debug" {
		c.Logging.Level = "info"
	}
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

func getEnvironment() Environment {
	switch strings.ToLower(os.Getenv("ENVIRONMENT")) {
	case "production", "prod":
		return Production
	case "staging", "stage":
		return Staging
	default:
		return Development
	}
}
