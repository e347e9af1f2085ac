package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c, err := Load("", filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":2222", c.SSH.Addr)
	assert.Equal(t, 20, c.View.TilesX)
	assert.Equal(t, 15, c.View.TilesY)
	assert.Equal(t, 2, c.View.Scale)
	assert.Equal(t, 96.0, c.Move.Speed)
	assert.Equal(t, 30, c.Save.AutosaveSeconds)
	assert.Equal(t, int64(64<<20), c.CacheBytes())

	e := c.Engine()
	assert.Equal(t, 30*time.Second, e.AutosaveEvery)
	assert.Equal(t, 5*time.Minute, e.CheckpointEvery)
	assert.Equal(t, 1.5, e.RunMultiplier)
}

func TestFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "overworld.yaml")
	require.NoError(t, os.WriteFile(file, []byte("view:\n  tiles_x: 24\n  scale: 3\nassets:\n  root: /srv/firered\n"), 0o644))

	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("OVERWORLD_SAVE_PATH=/var/lib/overworld.db\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("OVERWORLD_SAVE_PATH") })

	t.Setenv("OVERWORLD_VIEW_SCALE", "4")

	c, err := Load(file, envFile)
	require.NoError(t, err)
	assert.Equal(t, 24, c.View.TilesX, "file overrides default")
	assert.Equal(t, 15, c.View.TilesY)
	assert.Equal(t, 4, c.View.Scale, "environment overrides file")
	assert.Equal(t, "/srv/firered", c.Assets.Root)
	assert.Equal(t, "/var/lib/overworld.db", c.Save.Path, ".env feeds the environment")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"zero view", map[string]string{"OVERWORLD_VIEW_TILES_X": "0"}},
		{"zero scale", map[string]string{"OVERWORLD_VIEW_SCALE": "0"}},
		{"negative speed", map[string]string{"OVERWORLD_MOVE_SPEED": "-1"}},
		{"zero autosave", map[string]string{"OVERWORLD_SAVE_AUTOSAVE_SECONDS": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("", filepath.Join(t.TempDir(), "missing.env"))
			assert.Error(t, err)
		})
	}
}

func TestMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}
