// Package config provides configuration management for nudge
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Cache     CacheConfig     `mapstructure:"cache"`
	Matching  MatchingConfig  `mapstructure:"matching"`
	History   HistoryConfig   `mapstructure:"history"`
	Aliases   AliasesConfig   `mapstructure:"aliases"`
	Knowledge KnowledgeConfig `mapstructure:"knowledge"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// CacheConfig controls where and how the cache is persisted
type CacheConfig struct {
	Backend         string        `mapstructure:"backend"`
	Path            string        `mapstructure:"path"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// MatchingConfig holds fuzzy matching settings
type MatchingConfig struct {
	Threshold         float64 `mapstructure:"threshold"`
	FallbackThreshold float64 `mapstructure:"fallback_threshold"`
	ParallelThreshold int     `mapstructure:"parallel_threshold"`
	Workers           int     `mapstructure:"workers"`
}

// HistoryConfig holds history settings
type HistoryConfig struct {
	Exclude       []string `mapstructure:"exclude"`
	MaxEvents     int      `mapstructure:"max_events"`
	AliasMinCount int      `mapstructure:"alias_min_count"`
}

// AliasFile is an extra shell file to scan for aliases
type AliasFile struct {
	Path  string `mapstructure:"path"`
	Shell string `mapstructure:"shell"`
}

// AliasesConfig lists additional alias sources
type AliasesConfig struct {
	Files []AliasFile `mapstructure:"files"`
}

// KnowledgeConfig points at a user knowledge base merged over the built-in one
type KnowledgeConfig struct {
	File string `mapstructure:"file"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// DefaultExclude lists commands never counted in the frequency table:
// editors, pagers and directory navigation.
var DefaultExclude = []string{
	"vi", "vim", "nvim", "nano", "emacs", "micro", "hx", "helix", "code",
	"less", "more", "man",
	"cd", "pushd", "popd", "z", "zi", "j",
	"clear", "exit", "history",
}

// Load reads configuration from path (or the default location) and the
// NUDGE_* environment. A missing file is created from the template; if that
// fails the defaults are used as-is.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		path = DefaultConfigPath()
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix("NUDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist):
			if explicit {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			if err := createDefaultConfig(path); err == nil {
				_ = v.ReadInConfig()
			}
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	normalize(&cfg)
	return &cfg, nil
}

// Default returns the configuration used when no file is read at all.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	normalize(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("cache.backend", "json")
	v.SetDefault("cache.path", "")
	v.SetDefault("cache.refresh_interval", 24*time.Hour)

	v.SetDefault("matching.threshold", 0.6)
	v.SetDefault("matching.fallback_threshold", 0.4)
	v.SetDefault("matching.parallel_threshold", 256)
	v.SetDefault("matching.workers", 0)

	v.SetDefault("history.exclude", DefaultExclude)
	v.SetDefault("history.max_events", 1000)
	v.SetDefault("history.alias_min_count", 2)

	v.SetDefault("knowledge.file", "")

	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size", 5)
	v.SetDefault("logging.max_backups", 3)
}

// normalize clamps out-of-range values and expands paths.
func normalize(cfg *Config) {
	home, _ := os.UserHomeDir()

	cfg.Cache.Backend = strings.ToLower(strings.TrimSpace(cfg.Cache.Backend))
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "json"
	}
	if cfg.Cache.RefreshInterval <= 0 {
		cfg.Cache.RefreshInterval = 24 * time.Hour
	}
	cfg.Cache.Path = expandPath(cfg.Cache.Path, home)

	if cfg.Matching.Threshold <= 0 || cfg.Matching.Threshold > 1 {
		cfg.Matching.Threshold = 0.6
	}
	if cfg.Matching.FallbackThreshold <= 0 || cfg.Matching.FallbackThreshold > cfg.Matching.Threshold {
		cfg.Matching.FallbackThreshold = min(0.4, cfg.Matching.Threshold)
	}
	if cfg.Matching.Workers <= 0 {
		cfg.Matching.Workers = runtime.NumCPU()
	}
	if cfg.Matching.ParallelThreshold <= 0 {
		cfg.Matching.ParallelThreshold = 256
	}

	if cfg.History.MaxEvents <= 0 {
		cfg.History.MaxEvents = 1000
	}
	if cfg.History.AliasMinCount <= 0 {
		cfg.History.AliasMinCount = 2
	}

	for i := range cfg.Aliases.Files {
		cfg.Aliases.Files[i].Path = expandPath(cfg.Aliases.Files[i].Path, home)
	}
	cfg.Knowledge.File = expandPath(cfg.Knowledge.File, home)
	cfg.Logging.File = expandPath(cfg.Logging.File, home)
}

func createDefaultConfig(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(defaultConfig), 0o644)
}

const defaultConfig = `# nudge configuration

cache:
  # json (single file, atomic rename) or bbolt
  backend: "json"
  # empty means the user cache directory
  path: ""
  refresh_interval: "24h"

matching:
  threshold: 0.6
  fallback_threshold: 0.4
  parallel_threshold: 256
  workers: 0

history:
  max_events: 1000
  alias_min_count: 2
  # commands never counted as frequent
  # exclude: ["vim", "cd"]

aliases:
  # extra files to scan
  # files:
  #   - path: "~/.config/shell/aliases.sh"
  #     shell: "bash"
  files: []

knowledge:
  # YAML file merged over the built-in tool table
  file: ""

logging:
  level: "warn"
  file: ""
  max_size: 5
  max_backups: 3
`

// expandPath expands ~ and environment variables in a path
func expandPath(path, homeDir string) string {
	if path == "" {
		return ""
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		path = filepath.Join(homeDir, path[1:])
	}
	return os.ExpandEnv(path)
}

// DefaultConfigPath returns the default configuration file path
func DefaultConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "nudge", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".nudge.yaml"
	}
	return filepath.Join(home, ".config", "nudge", "config.yaml")
}
