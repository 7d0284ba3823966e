package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborline/manifest-cli/internal/config"
)

func TestPoolConfig_FromStoreConfig(t *testing.T) {
	pc := poolConfig(config.StoreConfig{MaxConns: 8, MinConns: 3})
	assert.Equal(t, 8, pc.MaxConns)
	assert.Equal(t, 3, pc.MinConns)

	pc = poolConfig(config.StoreConfig{})
	assert.Equal(t, 0, pc.MaxConns)
	assert.Equal(t, 0, pc.MinConns)
}

func TestLoadRules_Disabled(t *testing.T) {
	rules, err := loadRules(config.CleanConfig{})
	require.NoError(t, err)
	assert.Contains(t, rules.UnwantedTokens, "M/S")
}

func TestLoadRules_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("unwanted_tokens: [\"P/A\"]\n"), 0o644))

	rules, err := loadRules(config.CleanConfig{Enabled: true, RulesFile: path})
	require.NoError(t, err)
	assert.Contains(t, rules.UnwantedTokens, "P/A")
	assert.Contains(t, rules.UnwantedTokens, "M/S")
}

func TestLoadRules_MissingFile(t *testing.T) {
	_, err := loadRules(config.CleanConfig{Enabled: true, RulesFile: "/nonexistent/rules.yaml"})
	assert.Error(t, err)
}
