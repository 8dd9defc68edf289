package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 480, cfg.Img.Rows)
	require.Equal(t, 640, cfg.Img.Cols)
	require.Equal(t, 3, cfg.StackedImage.Rows)
	require.Equal(t, 4, cfg.StackedImage.Cols)
	require.Equal(t, DefaultImageURLs, cfg.ImageURLs)
	require.Equal(t, 15*time.Second, cfg.Timeout())
	require.Equal(t, time.Minute, cfg.Interval())
	require.Equal(t, 12*time.Hour, cfg.Rollover())
	require.Equal(t, "avconv", cfg.Video.Encoder)
	require.Equal(t, "none", cfg.Archive.Provider)
	require.Equal(t, "none", cfg.Events.Provider)

	// The default grid must fit the default source list.
	require.LessOrEqual(t, len(cfg.ImageURLs), cfg.StackedImage.Rows*cfg.StackedImage.Cols)
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
img:
  rows: 240
  cols: 320
stacked_image:
  rows: 2
  cols: 2
image_urls:
  - http://example.com/a.jpg
  - http://example.com/b.jpg
http:
  timeout_seconds: 5
video:
  interval_seconds: 30
  encoder: ffmpeg
  keep_frames: false
window:
  start_hour: 18
  end_hour: 6
archive:
  provider: local
  base_dir: /tmp/archive
events:
  provider: memory
server:
  enabled: true
  port: 9090
logging:
  development: true
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 240, cfg.Img.Rows)
	require.Equal(t, 320, cfg.Img.Cols)
	require.Equal(t, []string{"http://example.com/a.jpg", "http://example.com/b.jpg"}, cfg.ImageURLs)
	require.Equal(t, 5*time.Second, cfg.Timeout())
	require.Equal(t, 30*time.Second, cfg.Interval())
	require.Equal(t, "ffmpeg", cfg.Video.Encoder)
	require.False(t, cfg.Video.KeepFrames)
	require.Equal(t, 18, cfg.Window.StartHour)
	require.Equal(t, "local", cfg.Archive.Provider)
	require.Equal(t, "/tmp/archive", cfg.Archive.BaseDir)
	require.True(t, cfg.Server.Enabled)
	require.True(t, cfg.Logging.Development)
}

func TestValidateRejectsBadGrid(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Img.Rows = 0
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsTooManySources(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)

	cfg.StackedImage.Rows = 1
	cfg.StackedImage.Cols = 2
	err = cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "grid cells")
}

func TestValidateRejectsUnknownProviders(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Archive.Provider = "s3"
	require.Error(t, cfg.Validate())

	cfg.Archive.Provider = "none"
	cfg.Events.Provider = "kafka"
	require.Error(t, cfg.Validate())
}

func TestValidateRequiresProviderSettings(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Archive.Provider = "gcs"
	require.Error(t, cfg.Validate())

	cfg.Archive.Bucket = "night-videos"
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFileFails(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
