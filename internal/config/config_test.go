package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMustLoadPath_Sample(t *testing.T) {
	cfg := MustLoadPath(filepath.Join("..", "..", "config", "local.yaml"))

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "sqlite3", cfg.DB.Driver)
	assert.Equal(t, 5, cfg.Capture.Interval)
	assert.Equal(t, 3*time.Second, cfg.Capture.FetchTimeout)
	assert.Equal(t, "09:00", cfg.Schedule.Start)
	assert.Equal(t, 10*time.Second, cfg.HTTPServer.ShutdownTimeout)
}

func TestMustLoadPath_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("secret: s\n"), 0o644))

	cfg := MustLoadPath(path)

	assert.Equal(t, "snap.jpeg", cfg.Capture.SnapshotPath)
	assert.Equal(t, 60, cfg.Capture.Framerate)
	assert.Equal(t, "17:00", cfg.Schedule.End)
	assert.Equal(t, time.Second, cfg.Metrics.RefreshInterval)
	assert.Equal(t, "postgres", cfg.DB.Driver)
}

func TestMustLoadPath_Missing(t *testing.T) {
	assert.Panics(t, func() { MustLoadPath("") })
	assert.Panics(t, func() { MustLoadPath(filepath.Join(t.TempDir(), "nope.yaml")) })
}

func TestPathOrEnv(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/etc/timelapse.yaml")

	assert.Equal(t, "local.yaml", PathOrEnv("local.yaml"))
	assert.Equal(t, "/etc/timelapse.yaml", PathOrEnv(""))
}
