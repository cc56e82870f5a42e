package types

import (
	"errors"
	"time"
)

// Config holds backend selection and parameters for Shelf.Attach.
type Config struct {
	Backend   string      `json:"backend" yaml:"backend" mapstructure:"backend"`
	DataDir   string      `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
	KindsFile string      `json:"kinds_file" yaml:"kinds_file" mapstructure:"kinds_file"`
	Cache     CacheConfig `json:"cache" yaml:"cache" mapstructure:"cache"`
}

// CacheConfig controls the process-wide loaded-collection cache.
type CacheConfig struct {
	Enabled bool          `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Size    int           `json:"size" yaml:"size" mapstructure:"size"`
	TTL     time.Duration `json:"ttl" yaml:"ttl" mapstructure:"ttl"`
}

// Supported backend names.
const (
	BackendJSONL  = "jsonl"
	BackendSQLite = "sqlite"
)

// Cache defaults applied when caching is enabled without explicit values.
const (
	DefaultCacheSize = 64
	DefaultCacheTTL  = 5 * time.Minute
)

// Config validation errors.
var (
	ErrBackendEmpty     = errors.New("backend must not be empty")
	ErrBackendUnknown   = errors.New("unknown backend")
	ErrCacheSizeInvalid = errors.New("cache size must be positive")
	ErrCacheTTLInvalid  = errors.New("cache ttl must not be negative")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendJSONL:  true,
	BackendSQLite: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.Cache.Enabled {
		if c.Cache.Size < 0 {
			return ErrCacheSizeInvalid
		}
		if c.Cache.TTL < 0 {
			return ErrCacheTTLInvalid
		}
	}
	return nil
}

// WithDefaults fills unset cache parameters.
func (c Config) WithDefaults() Config {
	if c.Cache.Size == 0 {
		c.Cache.Size = DefaultCacheSize
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = DefaultCacheTTL
	}
	return c
}
