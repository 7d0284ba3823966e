package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chtemp(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chtemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "manifest.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)
	assert.Equal(t, 2048, cfg.Anthropic.MaxTokens)
	assert.Equal(t, 10, cfg.Anthropic.NameChunkSize)
	assert.Equal(t, 20, cfg.Anthropic.CityChunkSize)
	assert.Equal(t, 12, cfg.Anthropic.BatchThreshold)
	assert.Equal(t, 6, cfg.Anthropic.Concurrency)
	assert.InDelta(t, 2.0, cfg.Anthropic.RequestsPerSec, 0.001)
	assert.Equal(t, []string{"Shipper", "Consignee", "Notify Party 1", "Notify Party 2"}, cfg.Run.PartyColumns)
	assert.Empty(t, cfg.Run.AddressColumns)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 100, cfg.Review.SampleSize)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	chtemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/manifest
anthropic:
  name_chunk_size: 25
clean:
  enabled: true
  rules_file: rules.yaml
log:
  level: debug
  format: console
server:
  port: 9090
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/manifest", cfg.Store.DatabaseURL)
	assert.Equal(t, 25, cfg.Anthropic.NameChunkSize)
	assert.True(t, cfg.Clean.Enabled)
	assert.Equal(t, "rules.yaml", cfg.Clean.RulesFile)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Defaults still apply for unset values
	assert.Equal(t, 20, cfg.Anthropic.CityChunkSize)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	chtemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("MANIFEST_STORE_DRIVER", "postgres")
	t.Setenv("MANIFEST_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chtemp(t)

	t.Setenv("MANIFEST_SERVER_PORT", "3000")
	t.Setenv("MANIFEST_ANTHROPIC_KEY", "sk-ant-test")
	t.Setenv("MANIFEST_REVIEW_TOKEN", "ntn_test")
	t.Setenv("MANIFEST_REVIEW_DATABASE_ID", "db-test")
	t.Setenv("MANIFEST_CLEAN_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	// Credential keys have no file default; env must still reach them.
	assert.Equal(t, "sk-ant-test", cfg.Anthropic.Key)
	assert.Equal(t, "ntn_test", cfg.Review.Token)
	assert.Equal(t, "db-test", cfg.Review.DatabaseID)
	assert.True(t, cfg.Clean.Enabled)
}

// validDefaults returns a Config with the defaults validation depends on.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Anthropic.NameChunkSize = 10
	cfg.Anthropic.CityChunkSize = 20
	cfg.Anthropic.Concurrency = 6
	cfg.Server.Port = 8080
	cfg.Review.SampleSize = 100
	return cfg
}

func TestValidateRun(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = "sk-ant-key"
	assert.NoError(t, cfg.Validate("run"))

	cfg.Anthropic.Key = ""
	err := cfg.Validate("run")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")
}

func TestValidateRun_PostgresNeedsURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = "sk-ant-key"
	cfg.Store.Driver = "postgres"

	err := cfg.Validate("run")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.DatabaseURL = "postgres://localhost/manifest"
	assert.NoError(t, cfg.Validate("run"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = "sk-ant-key"
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateConcurrencyBounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = "sk-ant-key"

	cfg.Anthropic.Concurrency = 0
	err := cfg.Validate("run")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "concurrency must be between 1 and 32")

	cfg.Anthropic.Concurrency = 33
	err = cfg.Validate("run")
	assert.Error(t, err)

	cfg.Anthropic.Concurrency = 32
	assert.NoError(t, cfg.Validate("run"))
}

func TestValidateReview(t *testing.T) {
	cfg := validDefaults()

	err := cfg.Validate("review")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "review.token is required")
	assert.Contains(t, err.Error(), "review.database_id is required")

	cfg.Review.Token = "ntn_token"
	cfg.Review.DatabaseID = "db-id"
	assert.NoError(t, cfg.Validate("review"))
}

func TestValidateOffline(t *testing.T) {
	cfg := &Config{}
	assert.NoError(t, cfg.Validate("offline"))
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
