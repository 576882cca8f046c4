package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader loads configuration from layered sources. Later layers override
// earlier ones; environment variables win over everything.
type Loader struct {
	basePath    string
	environment Environment
	sources     []string
	fileLoaders map[string]FileLoader
}

// FileLoader parses one configuration file format.
type FileLoader interface {
	Load(reader io.Reader, target interface{}) error
	Extension() string
}

// NewLoader creates a loader rooted at basePath ("config" when empty).
func NewLoader(basePath string, env Environment) *Loader {
	if basePath == "" {
		basePath = "config"
	}
	loader := &Loader{
		basePath:    basePath,
		environment: env,
		sources:     make([]string, 0),
		fileLoaders: make(map[string]FileLoader),
	}
	loader.RegisterLoader(&YAMLLoader{})
	loader.RegisterLoader(&JSONLoader{})
	return loader
}

// RegisterLoader registers a loader for one file extension.
func (l *Loader) RegisterLoader(loader FileLoader) {
	l.fileLoaders[loader.Extension()] = loader
}

// Load builds the configuration in layers, lowest priority first:
//  1. In-code defaults
//  2. base.yaml / base.json
//  3. Environment-specific file (development.yaml, production.yaml, ...)
//  4. local.yaml overrides (development only)
//  5. Environment variables
func (l *Loader) Load() (*Config, error) {
	cfg := l.defaultConfig()
	l.sources = append(l.sources, "defaults")

	if err := l.loadFile("base", cfg); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load base config: %w", err)
	}

	envFile := strings.ToLower(string(l.environment))
	if err := l.loadFile(envFile, cfg); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load %s config: %w", envFile, err)
	}

	if l.environment == Development {
		if err := l.loadFile("local", cfg); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load local config: %v\n", err)
		}
	}

	l.loadEnvironmentVariables(cfg)
	l.sources = append(l.sources, "environment")

	cfg.LoadedFrom = l.sources
	cfg.applyEnvironmentDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (l *Loader) loadFile(name string, cfg *Config) error {
	for ext, loader := range l.fileLoaders {
		path := filepath.Join(l.basePath, fmt.Sprintf("%s.%s", name, ext))

		file, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		defer file.Close()

		if err := loader.Load(file, cfg); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}

		l.sources = append(l.sources, path)
		return nil
	}
	return os.ErrNotExist
}

// loadEnvironmentVariables overlays environment variables on cfg.
func (l *Loader) loadEnvironmentVariables(cfg *Config) {
	if val := os.Getenv("SERVER_HOST"); val != "" {
		cfg.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil && port > 0 {
			cfg.Server.Port = port
		}
	}

	setDuration(&cfg.Cache.DefaultTTL, "CACHE_DEFAULT_TTL")
	setDuration(&cfg.Cache.SweepInterval, "CACHE_SWEEP_INTERVAL")

	setDuration(&cfg.TTL.Product, "TTL_PRODUCT")
	setDuration(&cfg.TTL.Category, "TTL_CATEGORY")
	setDuration(&cfg.TTL.User, "TTL_USER")
	setDuration(&cfg.TTL.Property, "TTL_PROPERTY")
	setDuration(&cfg.TTL.Tenant, "TTL_TENANT")

	setInt(&cfg.Chunking.ChunkSize, "CHUNK_SIZE")
	setInt(&cfg.Chunking.MaxResidentChunks, "CHUNK_MAX_RESIDENT")
	setDuration(&cfg.Chunking.ChunkTTL, "CHUNK_TTL")

	setDuration(&cfg.Monitor.Interval, "MONITOR_INTERVAL")
	setInt64(&cfg.Monitor.MaxItems, "MONITOR_MAX_ITEMS")
	setInt64(&cfg.Monitor.MaxMemoryMB, "MONITOR_MAX_MEMORY_MB")
	if val := os.Getenv("MONITOR_MIN_HIT_RATIO"); val != "" {
		if ratio, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Monitor.MinHitRatio = ratio
		}
	}

	if val := os.Getenv("LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		cfg.Logging.Format = val
	}
}

// defaultConfig returns the in-code defaults. The service runs with these
// even when no configuration files exist.
func (l *Loader) defaultConfig() *Config {
	return &Config{
		Environment: l.environment,
		Server: Server{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			IdleTimeout:     Duration(60 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Cache: Cache{
			DefaultTTL:    Duration(1 * time.Hour),
			SweepInterval: Duration(5 * time.Minute),
		},
		TTL: TTL{
			Product:  Duration(60 * time.Minute),
			Category: Duration(120 * time.Minute),
			User:     Duration(30 * time.Minute),
			Property: Duration(240 * time.Minute),
			Tenant:   Duration(1440 * time.Minute),
		},
		Chunking: Chunking{
			ChunkSize:          1000,
			MaxResidentChunks:  50,
			ChunkTTL:           Duration(30 * time.Minute),
			PopularTTL:         Duration(2 * time.Hour),
			IndexTTL:           Duration(1 * time.Hour),
			PopularLimit:       20,
			MaxChunksPerSearch: 10,
			MaxSearchResults:   50,
		},
		Monitor: Monitor{
			Interval:                Duration(30 * time.Second),
			ErrorBackoff:            Duration(1 * time.Minute),
			MaxItems:                100000,
			MinHitRatio:             0.7,
			MaxMemoryMB:             512,
			ExpiredBacklog:          1000,
			EvictionAccessThreshold: 5,
			EvictionBatch:           10,
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
		CORS: CORS{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		},
	}
}

// YAMLLoader loads configuration from YAML files.
type YAMLLoader struct{}

func (y *YAMLLoader) Load(reader io.Reader, target interface{}) error {
	return yaml.NewDecoder(reader).Decode(target)
}

func (y *YAMLLoader) Extension() string { return "yaml" }

// JSONLoader loads configuration from JSON files.
type JSONLoader struct{}

func (j *JSONLoader) Load(reader io.Reader, target interface{}) error {
	return json.NewDecoder(reader).Decode(target)
}

func (j *JSONLoader) Extension() string { return "json" }

func setDuration(dst *Duration, env string) {
	if val := os.Getenv(env); val != "" {
		if d, err := time.ParseDuration(val); err == nil && d > 0 {
			*dst = Duration(d)
		}
	}
}

func setInt(dst *int, env string) {
	if val := os.Getenv(env); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			*dst = n
		}
	}
}

func setInt64(dst *int64, env string) {
	if val := os.Getenv(env); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil && n > 0 {
			*dst = n
		}
	}
}

// Load loads configuration from the default location, honoring CONFIG_DIR
// and ENVIRONMENT.
func Load() (*Config, error) {
	basePath := os.Getenv("CONFIG_DIR")
	loader := NewLoader(basePath, getEnvironment())
	return loader.Load()
}

// MustLoad loads configuration and panics on error. For use in main only.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
