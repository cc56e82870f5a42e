package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/shelf/internal/paths"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "SHELF"

	cfgKeyBackend      = "backend"
	cfgKeyDataDir      = "data_dir"
	cfgKeyKindsFile    = "kinds_file"
	cfgKeyCacheEnabled = "cache.enabled"
	cfgKeyCacheSize    = "cache.size"
	cfgKeyCacheTTL     = "cache.ttl"
	cfgKeyLogLevel     = "log_level"
	cfgKeyListen       = "listen"

	defaultBackend = types.BackendJSONL
	defaultListen  = "127.0.0.1:8080"
)

// defaultConfigYAML is written to config.yaml on first run.
const defaultConfigYAML = `# Shelf configuration

# Storage backend: jsonl or sqlite
backend: jsonl

# Data directory (optional; overridable by --data-dir)
# data_dir:

# Record kinds file (optional; relative paths resolve against this directory)
# kinds_file: kinds.yaml

cache:
  enabled: false
  size: 64
  ttl: 5m

log_level: info
listen: 127.0.0.1:8080
`

// settings is everything a command needs from configuration.
type settings struct {
	configDir string
	config    types.Config
	logLevel  string
	listen    string
}

// loadConfig reads config.yaml from configDir, creating the directory and
// a default file on first run. Environment variables prefixed SHELF_
// override file values.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("writing default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, defaultBackend)
	v.SetDefault(cfgKeyDataDir, "")
	v.SetDefault(cfgKeyKindsFile, "")
	v.SetDefault(cfgKeyCacheEnabled, false)
	v.SetDefault(cfgKeyCacheSize, types.DefaultCacheSize)
	v.SetDefault(cfgKeyCacheTTL, types.DefaultCacheTTL)
	v.SetDefault(cfgKeyLogLevel, "info")
	v.SetDefault(cfgKeyListen, defaultListen)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return v, nil
}

func ensureDefaultConfigFile(configDir string) error {
	path := paths.ConfigFile(configDir)
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

// resolveSettings applies flags over configuration.
func resolveSettings(opts *rootOptions) (*settings, error) {
	configDir, err := paths.ResolveConfigDir(opts.configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return nil, err
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	cfg.DataDir, err = paths.ResolveDataDir(opts.dataDir, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("resolving data dir: %w", err)
	}
	if cfg.KindsFile != "" && !filepath.IsAbs(cfg.KindsFile) {
		cfg.KindsFile = filepath.Join(configDir, cfg.KindsFile)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	level := v.GetString(cfgKeyLogLevel)
	if opts.logLevel != "" {
		level = opts.logLevel
	}

	return &settings{
		configDir: configDir,
		config:    cfg,
		logLevel:  level,
		listen:    v.GetString(cfgKeyListen),
	}, nil
}
