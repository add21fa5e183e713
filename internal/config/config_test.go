// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML and TOML loading, env var expansion, defaults and validation

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
storage:
  backend: "bolt"
  path: "/tmp/nexus.bolt"
  quota_bytes: 1024

store:
  save_failure_policy: "rollback"

notes:
  autosave_delay: "250ms"

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendBolt, cfg.Storage.Backend)
	assert.Equal(t, "/tmp/nexus.bolt", cfg.Storage.Path)
	assert.Equal(t, int64(1024), cfg.Storage.QuotaBytes)
	assert.Equal(t, PolicyRollback, cfg.Store.SaveFailurePolicy)
	assert.Equal(t, 250*time.Millisecond, cfg.Notes.AutoSaveDelay)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_TOML(t *testing.T) {
	path := writeConfig(t, "config.toml", `
[storage]
backend = "sqlite"
driver = "sqlite3"
path = "/tmp/nexus.db"

[notes]
autosave_delay = "2s"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, "sqlite3", cfg.Storage.Driver)
	assert.Equal(t, "/tmp/nexus.db", cfg.Storage.Path)
	assert.Equal(t, 2*time.Second, cfg.Notes.AutoSaveDelay)
	assert.Equal(t, int64(DefaultQuotaBytes), cfg.Storage.QuotaBytes, "unset values keep defaults")
	assert.Equal(t, PolicyKeep, cfg.Store.SaveFailurePolicy)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "config.yaml", "logging:\n  level: warn\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	defaults := Defaults()
	assert.Equal(t, defaults.Storage, cfg.Storage)
	assert.Equal(t, time.Second, cfg.Notes.AutoSaveDelay)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("NEXUS_TEST_DIR", dir)
	path := writeConfig(t, "config.yaml", `
storage:
  path: "${NEXUS_TEST_DIR}/data.db"
logging:
  level: "${NEXUS_TEST_UNSET_LEVEL}info"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "data.db"), cfg.Storage.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_ExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := writeConfig(t, "config.yaml", "storage:\n  path: \"~/nexus.db\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "nexus.db"), cfg.Storage.Path)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"bad yaml", "c.yaml", "storage: [", "parsing config file"},
		{"bad toml", "c.toml", "[storage\n", "parsing config file"},
		{"unknown backend", "c.yaml", "storage:\n  backend: redis\n", "storage.backend"},
		{"unknown driver", "c.yaml", "storage:\n  driver: pg\n", "storage.driver"},
		{"missing path", "c.yaml", "storage:\n  path: \"\"\n", "storage.path"},
		{"bolt missing path", "c.yaml", "storage:\n  backend: bolt\n  path: \"\"\n", "storage.path"},
		{"negative quota", "c.yaml", "storage:\n  quota_bytes: -1\n", "quota_bytes"},
		{"bad policy", "c.yaml", "store:\n  save_failure_policy: maybe\n", "save_failure_policy"},
		{"bad duration", "c.yaml", "notes:\n  autosave_delay: soon\n", "autosave_delay"},
		{"zero duration", "c.yaml", "notes:\n  autosave_delay: 0s\n", "autosave_delay"},
		{"bad log format", "c.yaml", "logging:\n  format: xml\n", "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.file, tt.content))
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), "error %q should mention %q", err, tt.wantErr)
		})
	}
}

func TestLoad_MemoryBackendNeedsNoPath(t *testing.T) {
	cfg, err := Load(writeConfig(t, "c.yaml", "storage:\n  backend: memory\n  path: \"\"\n"))
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadOrDefault_UsesEnvPath(t *testing.T) {
	path := writeConfig(t, "custom.yaml", "logging:\n  level: error\n")
	t.Setenv("NEXUS_CONFIG", path)

	cfg, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Logging.Level)
}

func TestDefaultPathAndDataDir(t *testing.T) {
	t.Setenv("NEXUS_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
	t.Setenv("XDG_DATA_HOME", "/xdg/data")

	assert.Equal(t, filepath.Join("/xdg/config", "nexus", "config.yaml"), DefaultPath())
	assert.Equal(t, filepath.Join("/xdg/data", "nexus"), DataDir())
	assert.Equal(t, filepath.Join("/xdg/data", "nexus", "nexus.db"), Defaults().Storage.Path)

	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "/home/someone")
	assert.Equal(t, filepath.Join("/home/someone", ".config", "nexus", "config.yaml"), DefaultPath())
}

func TestDefaultsValidate(t *testing.T) {
	require.NoError(t, Defaults().Validate())
}
