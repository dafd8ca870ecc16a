package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/modscope/backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	assert.Empty(t, cfg.APIKey)
	assert.Equal(t, 8080, cfg.ListenPort)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, 168, cfg.CacheTTLHours)
	assert.Equal(t, int64(5<<30), cfg.MaxDownloadBytes)
	assert.Equal(t, int64(100<<20), cfg.MaxExtractedFileBytes)
	assert.Equal(t, int64(1<<30), cfg.MaxExtractedTotalBytes)
	assert.Equal(t, time.Second, cfg.InitialBackoff)
	assert.Equal(t, 30*time.Second, cfg.MaxBackoff)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Empty(t, cfg.CORSOrigins)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()

	content := `
api_key: secret
listen_port: 9090
data_dir: /var/lib/modscope
cache_ttl_hours: 24
max_download_bytes: 1048576
initial_backoff: 500ms
max_backoff: 10s
max_retries: 5
cors_origins:
  - https://example.com
  - https://other.example.com
`
	err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.APIKey)
	assert.Equal(t, 9090, cfg.ListenPort)
	assert.Equal(t, "/var/lib/modscope", cfg.DataDir)
	assert.Equal(t, 24, cfg.CacheTTLHours)
	assert.Equal(t, int64(1048576), cfg.MaxDownloadBytes)
	assert.Equal(t, 500*time.Millisecond, cfg.InitialBackoff)
	assert.Equal(t, 10*time.Second, cfg.MaxBackoff)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, []string{"https://example.com", "https://other.example.com"}, cfg.CORSOrigins)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()

	content := `
api_key: from-file
listen_port: 9090
`
	err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644)
	require.NoError(t, err)

	t.Setenv("MODSCOPE_API_KEY", "from-env")
	t.Setenv("MODSCOPE_LISTEN_PORT", "7070")
	t.Setenv("MODSCOPE_CACHE_TTL_HOURS", "48")
	t.Setenv("MODSCOPE_MAX_DOWNLOAD_BYTES", "2048")
	t.Setenv("MODSCOPE_INITIAL_BACKOFF", "250ms")
	t.Setenv("MODSCOPE_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.APIKey)
	assert.Equal(t, 7070, cfg.ListenPort)
	assert.Equal(t, 48, cfg.CacheTTLHours)
	assert.Equal(t, int64(2048), cfg.MaxDownloadBytes)
	assert.Equal(t, 250*time.Millisecond, cfg.InitialBackoff)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestLoad_BadEnvValue(t *testing.T) {
	t.Setenv("MODSCOPE_LISTEN_PORT", "not-a-number")

	_, err := config.Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MODSCOPE_LISTEN_PORT")
}

func TestLoad_BadDuration(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("initial_backoff: soon\n"), 0644)
	require.NoError(t, err)

	_, err = config.Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "initial_backoff")
}

func TestLoad_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("listen_port: [nope\n"), 0644)
	require.NoError(t, err)

	_, err = config.Load(dir)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key")

	cfg.APIKey = "secret"
	assert.NoError(t, cfg.Validate())

	cfg.ListenPort = 0
	assert.Error(t, cfg.Validate())
}

func TestCacheTTL(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 168*time.Hour, cfg.CacheTTL())
}
