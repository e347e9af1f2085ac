package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"overworld/internal/config"
)

func TestNew(t *testing.T) {
	t.Run("bad level", func(t *testing.T) {
		_, _, err := New(config.Log{Level: "loud"})
		assert.Error(t, err)
	})

	t.Run("file sink", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "overworld.log")
		log, closer, err := New(config.Log{Level: "debug", File: file, MaxSizeMB: 1})
		require.NoError(t, err)
		assert.Equal(t, logrus.DebugLevel, log.GetLevel())

		log.WithField("map", "town").Info("hello")
		require.NoError(t, closer.Close())

		data, err := os.ReadFile(file)
		require.NoError(t, err)
		assert.Contains(t, string(data), "map=town")
	})
}
