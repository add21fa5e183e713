// ABOUTME: Configuration loading and parsing for nexus
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
	BackendMemory = "memory"
)

// Save-failure policies.
const (
	PolicyKeep     = "keep"
	PolicyRollback = "rollback"
)

// DefaultQuotaBytes mirrors the browser storage quota the data format was
// designed for.
const DefaultQuotaBytes = 5 << 20

// Config represents the complete nexus configuration
type Config struct {
	Storage StorageConfig `yaml:"storage" toml:"storage"`
	Store   StoreConfig   `yaml:"store" toml:"store"`
	Notes   NotesConfig   `yaml:"notes" toml:"notes"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
}

// StorageConfig selects and locates the durable backend
type StorageConfig struct {
	Backend string `yaml:"backend" toml:"backend"`
	// Driver picks the SQLite driver: "sqlite" (pure Go) or "sqlite3" (cgo)
	Driver     string `yaml:"driver" toml:"driver"`
	Path       string `yaml:"path" toml:"path"`
	QuotaBytes int64  `yaml:"quota_bytes" toml:"quota_bytes"`
}

// StoreConfig holds record store behaviour
type StoreConfig struct {
	SaveFailurePolicy string `yaml:"save_failure_policy" toml:"save_failure_policy"`
}

// NotesConfig holds note editing configuration
type NotesConfig struct {
	AutoSaveDelay time.Duration `yaml:"-" toml:"-"`

	// Raw string value for unmarshaling
	AutoSaveDelayRaw string `yaml:"autosave_delay" toml:"autosave_delay"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Defaults returns the configuration used when no file exists.
func Defaults() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend:    BackendSQLite,
			Driver:     "sqlite",
			Path:       filepath.Join(DataDir(), "nexus.db"),
			QuotaBytes: DefaultQuotaBytes,
		},
		Store: StoreConfig{SaveFailurePolicy: PolicyKeep},
		Notes: NotesConfig{
			AutoSaveDelay:    time.Second,
			AutoSaveDelayRaw: "1s",
		},
		Logging: LoggingConfig{Level: "warn", Format: "text"},
	}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are parsed as TOML, everything else as YAML. Values
// missing from the file keep their defaults. Environment variables in the
// format ${VAR_NAME} are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw content
	expanded := expandEnvVars(string(data))

	cfg := Defaults()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.Storage.Path = expandHome(cfg.Storage.Path)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads path, or DefaultPath when path is empty. A missing file
// yields Defaults.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Defaults(), nil
	}
	return cfg, err
}

// DefaultPath is $NEXUS_CONFIG, else config.yaml under the XDG config directory.
func DefaultPath() string {
	if p := os.Getenv("NEXUS_CONFIG"); p != "" {
		return p
	}
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "nexus", "config.yaml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "nexus", "config.yaml")
}

// DataDir is where nexus keeps its database by default.
func DataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "nexus")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "nexus")
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendSQLite:
		if c.Storage.Driver != "sqlite" && c.Storage.Driver != "sqlite3" {
			return fmt.Errorf("storage.driver must be sqlite or sqlite3, got %q", c.Storage.Driver)
		}
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the sqlite backend")
		}
	case BackendBolt:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the bolt backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("storage.backend must be sqlite, bolt or memory, got %q", c.Storage.Backend)
	}

	if c.Storage.QuotaBytes < 0 {
		return fmt.Errorf("storage.quota_bytes must not be negative")
	}

	if c.Store.SaveFailurePolicy != PolicyKeep && c.Store.SaveFailurePolicy != PolicyRollback {
		return fmt.Errorf("store.save_failure_policy must be keep or rollback, got %q", c.Store.SaveFailurePolicy)
	}

	if c.Notes.AutoSaveDelay <= 0 {
		return fmt.Errorf("notes.autosave_delay must be positive")
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	if cfg.Notes.AutoSaveDelayRaw != "" {
		d, err := time.ParseDuration(cfg.Notes.AutoSaveDelayRaw)
		if err != nil {
			return fmt.Errorf("parsing autosave_delay %q: %w", cfg.Notes.AutoSaveDelayRaw, err)
		}
		cfg.Notes.AutoSaveDelay = d
	}
	return nil
}
