package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.ini"))
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
}

func TestLoadConfigOverridesLayerOnDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "traumencoder.ini")
	contents := `
[engine]
output_suffix = _mezz.mov
ffmpeg_path = /opt/ffmpeg/ffmpeg

[clique]
minimum_items = 5
contiguous_only = false

[ui]
engine_poll_interval = 500
details_style = short
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "_mezz.mov", cfg.Engine.OutputSuffix)
	assert.Equal(t, "/opt/ffmpeg/ffmpeg", cfg.Engine.FFmpegPath)
	assert.Equal(t, 5, cfg.Clique.MinimumItems)
	assert.False(t, cfg.Clique.ContiguousOnly)
	assert.Equal(t, 500*time.Millisecond, cfg.UI.EnginePollInterval)
	assert.Equal(t, "short", cfg.UI.DetailsStyle)
}

func TestLoadConfigPartialFileKeepsRemainingDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "traumencoder.ini")
	require.NoError(t, os.WriteFile(path, []byte("[clique]\nminimum_items = 3\n"), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Clique.MinimumItems)
	assert.True(t, cfg.Clique.ContiguousOnly, "untouched default survives")
	assert.Equal(t, "_prores.mov", cfg.Engine.OutputSuffix)
}
