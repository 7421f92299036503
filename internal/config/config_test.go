package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "research.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("CONFIG_PATH", path)
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Research.MaxSearchDepth)
	assert.True(t, cfg.Research.AllowRepeatQueries)
	assert.False(t, cfg.Research.InitialSearch)
	assert.Equal(t, "deepseek/deepseek-r1", cfg.Models.Planning)
	assert.Equal(t, "google/gemini-2.0-flash-001", cfg.Models.Writing)
	assert.Equal(t, "sonar", cfg.Models.Search)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.Providers.OpenRouter.BaseURL)
	assert.Equal(t, 120*time.Second, cfg.OpenRouterTimeout())
	assert.Equal(t, 30*time.Minute, cfg.CacheTTL())
	assert.Equal(t, 9090, cfg.Metrics.Port)
}

func TestLoadFromFile(t *testing.T) {
	writeConfig(t, `
research:
  max_search_depth: 4
  allow_repeat_queries: false
models:
  writing: some/other-model
redis:
  cache_ttl_minutes: 5
`)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Research.MaxSearchDepth)
	assert.False(t, cfg.Research.AllowRepeatQueries)
	assert.Equal(t, "some/other-model", cfg.Models.Writing)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL())
	// Untouched sections keep defaults.
	assert.Equal(t, "deepseek/deepseek-r1", cfg.Models.Analysis)
}

func TestLoadEnvOverrides(t *testing.T) {
	writeConfig(t, `postgres: {host: from-file}`)
	t.Setenv("POSTGRES_HOST", "from-env")
	t.Setenv("REDIS_URL", "redis://cache:6379/0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Postgres.Host)
	assert.Equal(t, "redis://cache:6379/0", cfg.Redis.URL)
}

func TestLoadInvalidYAML(t *testing.T) {
	writeConfig(t, "research: [not: a map")

	_, err := Load()
	assert.Error(t, err)
}

func TestStoreReplace(t *testing.T) {
	first := &Config{Research: ResearchConfig{MaxSearchDepth: 2}}
	s := NewStore(first)
	assert.Equal(t, 2, s.Get().Research.MaxSearchDepth)

	s.Replace(&Config{Research: ResearchConfig{MaxSearchDepth: 5}})
	assert.Equal(t, 5, s.Get().Research.MaxSearchDepth)
}
