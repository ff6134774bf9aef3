package etiquette

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigWritesDefaultsWhenMissing(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Tag.MinLength)
	assert.Equal(t, 32, cfg.Tag.MaxLength)
	assert.Equal(t, 400, cfg.ThumbnailWidth)

	_, err = os.Stat(filepath.Join(dir, configFilename))
	require.NoError(t, err)
}

func TestLoadConfigMergesPartialFile(t *testing.T) {
	dir := t.TempDir()
	partial := `{"tag": {"max_length": 10}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFilename), []byte(partial), 0o644))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Tag.MaxLength)
	assert.Equal(t, 1, cfg.Tag.MinLength)
}

func TestLoadConfigRoundTripsUnchanged(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadConfig(dir)
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, configFilename))
	require.NoError(t, err)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Tag.MinLength)

	rawAgain, err := os.ReadFile(filepath.Join(dir, configFilename))
	require.NoError(t, err)
	assert.Equal(t, raw, rawAgain)
}

func TestFeatureEnabledDefaultsTrue(t *testing.T) {
	cfg := &Config{}
	assert.True(t, cfg.FeatureEnabled("anything"))
	require.NoError(t, cfg.requireFeature("anything"))
}

func TestFeatureEnabledHonorsExplicitFalse(t *testing.T) {
	cfg := &Config{EnableFeature: map[string]bool{"thumbnails": false}}
	assert.False(t, cfg.FeatureEnabled("thumbnails"))

	err := cfg.requireFeature("thumbnails")
	require.Error(t, err)
	assert.True(t, isCatalogCode(err, "FeatureDisabled"))
}
