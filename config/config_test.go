package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "menusound.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, exists, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, Default().Assets, cfg.Assets)
	assert.Equal(t, "music.menu", cfg.Screens["title"])
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
assets:
  base_url: "http://localhost:8080/assets/"
  fetch_timeout: 3s
  manifest_retries: 5
sounds:
  definitions: ["minecraft/sounds.json", "pack/sounds.json"]
  seed: 42
screens:
  options: music.game
log:
  format: JSON
`)

	cfg, exists, err := Load(path)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, "http://localhost:8080/assets", cfg.Assets.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Assets.FetchTimeout)
	assert.Equal(t, 5, cfg.Assets.ManifestRetries)
	assert.Equal(t, []string{"minecraft/sounds.json", "pack/sounds.json"}, cfg.Sounds.Definitions)
	assert.Equal(t, uint64(42), cfg.Sounds.Seed)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "music.game", cfg.Screens["options"])
	// defaults survive a partial document
	assert.Equal(t, "minecraft", cfg.Assets.Namespace)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "assets:\n  dir: from-file\n")
	t.Setenv("MENUSOUND_ASSETS_DIR", "from-env")
	t.Setenv("MENUSOUND_SOUNDS_SEED", "7")

	cfg, _, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Assets.Dir)
	assert.Equal(t, uint64(7), cfg.Sounds.Seed)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"no_source", "assets:\n  dir: \"\"\n  base_url: \"\"\n"},
		{"bad_format", "log:\n  format: xml\n"},
		{"zero_retries", "assets:\n  manifest_retries: 0\n"},
		{"no_definitions", "sounds:\n  definitions: []\n"},
		{"bad_yaml", "assets: [\n"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, _, err := Load(writeConfig(t, c.body))
			require.Error(t, err)
		})
	}
}
