package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RESOLVERD_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 200, cfg.Resolver.CacheSize)
	assert.Equal(t, []string{"/"}, cfg.Resolver.ExecutionPaths)
	assert.Equal(t, []string{"html"}, cfg.Resolver.DefaultExtensions)
	assert.Equal(t, []string{"/apps", "/libs"}, cfg.Resolver.SearchPaths)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9090
resolver:
  cache_size: 50
  execution_paths:
    - /apps/
    - /libs/system/render
  default_extensions:
    - html
    - json
`
	require.NoError(t, os.WriteFile(configFile, []byte(content), 0o644))
	t.Setenv("RESOLVERD_CONFIG", configFile)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 50, cfg.Resolver.CacheSize)
	assert.Equal(t, []string{"/apps/", "/libs/system/render"}, cfg.Resolver.ExecutionPaths)
	assert.Equal(t, []string{"html", "json"}, cfg.Resolver.DefaultExtensions)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("server:\n  port: 9090\n"), 0o644))
	t.Setenv("RESOLVERD_CONFIG", configFile)
	t.Setenv("RESOLVERD_SERVER_PORT", "7070")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestValidateRejectsRelativeExecutionPath(t *testing.T) {
	t.Setenv("RESOLVERD_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("RESOLVERD_RESOLVER_EXECUTION_PATHS", "apps/page")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be absolute")
}

func TestValidateRejectsBadPort(t *testing.T) {
	t.Setenv("RESOLVERD_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("RESOLVERD_SERVER_PORT", "70000")

	_, err := Load()
	require.Error(t, err)
}
