package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithPreviewOnly(t *testing.T) {
	t.Setenv("PREVIEW_ONLY", "true")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.Fetch.MinBodyBytes)
	assert.Equal(t, 1, cfg.Fetch.Workers)
	assert.True(t, cfg.Output.PreviewOnly)
	assert.Equal(t, "product_aisles", cfg.DB.Table)
}

func TestLoadBindsLegacyEnv(t *testing.T) {
	t.Setenv("PREVIEW_ONLY", "true")
	t.Setenv("PGHOST", "db.internal")
	t.Setenv("PGUSER", "crawler")
	t.Setenv("BRIGHT_DATA_HOST", "brd.superproxy.io")
	t.Setenv("BRIGHT_DATA_PORT", "22225")
	t.Setenv("RENDER_API_KEY", "key-123")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.DB.Host)
	assert.Equal(t, "crawler", cfg.DB.User)
	assert.Equal(t, "brd.superproxy.io", cfg.Proxy.Host)
	assert.Equal(t, "key-123", cfg.Renderer.APIKey)
}

func TestValidateRequiresDBUnlessPreview(t *testing.T) {
	cfg := Config{}
	cfg.Fetch.MinBodyBytes = 500
	cfg.Fetch.MaxAttempts = 2
	cfg.Fetch.Workers = 1
	assert.Error(t, cfg.Validate())

	cfg.Output.PreviewOnly = true
	assert.NoError(t, cfg.Validate())

	cfg.Output.PreviewOnly = false
	cfg.DB.Host = "db.internal"
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "output:\n  preview_only: true\nfetch:\n  workers: 3\n  global_rps: 1.5\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Fetch.Workers)
	assert.InDelta(t, 1.5, cfg.Fetch.GlobalRPS, 0.001)
}

func TestValidatePublishRequiresTopic(t *testing.T) {
	cfg := Config{}
	cfg.Fetch.MinBodyBytes = 500
	cfg.Fetch.MaxAttempts = 2
	cfg.Fetch.Workers = 1
	cfg.Output.PreviewOnly = true
	cfg.Publish.Enabled = true
	assert.Error(t, cfg.Validate())
	cfg.Publish.ProjectID = "proj"
	cfg.Publish.Topic = "aisle-outcomes"
	assert.NoError(t, cfg.Validate())
}
