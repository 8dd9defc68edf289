// Package config loads and validates overview configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultImageURLs are the site cameras and weather plots stacked into the
// overview when no image_urls are configured. Order determines grid position.
var DefaultImageURLs = []string{
	"http://fact-project.org/cam/skycam.php",
	"http://www.gtc.iac.es/multimedia/netcam/camaraAllSky.jpg",
	"http://www.magic.iac.es/site/weather/AllSkyCurrentImage.JPG",
	"http://www.magic.iac.es/site/weather/can.jpg",
	"http://www.fact-project.org/cam/cam.php",
	"http://www.fact-project.org/cam/lidcam.php",
	"http://iris.not.iac.es/axis-cgi/jpg/image.cgi",
	"http://www.tng.iac.es/webcam/get.html?resolution=640x480&compression=30&clock=1&date=1",
	"http://www.magic.iac.es/site/weather/lastHUM6t.jpg",
	"http://www.magic.iac.es/site/weather/lastWPK6t.jpg",
}

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Img          ImgConfig     `mapstructure:"img"`
	StackedImage StackedConfig `mapstructure:"stacked_image"`
	ImageURLs    []string      `mapstructure:"image_urls"`
	Status       StatusConfig  `mapstructure:"status"`
	HTTP         HTTPConfig    `mapstructure:"http"`
	Output       OutputConfig  `mapstructure:"output"`
	Video        VideoConfig   `mapstructure:"video"`
	Window       WindowConfig  `mapstructure:"window"`
	Archive      ArchiveConfig `mapstructure:"archive"`
	Events       EventsConfig  `mapstructure:"events"`
	Server       ServerConfig  `mapstructure:"server"`
	Logging      LoggingConfig `mapstructure:"logging"`
}

// ImgConfig is the pixel size of one grid cell: rows is height, cols is width.
type ImgConfig struct {
	Rows int `mapstructure:"rows"`
	Cols int `mapstructure:"cols"`
}

// StackedConfig is the grid layout in cells.
type StackedConfig struct {
	Rows int `mapstructure:"rows"`
	Cols int `mapstructure:"cols"`
}

// StatusConfig points at the telescope status source.
type StatusConfig struct {
	URL string `mapstructure:"url"`
}

// HTTPConfig configures the shared HTTP client used for all sources.
type HTTPConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
}

// OutputConfig controls where single captures land when no path is given.
type OutputConfig struct {
	Dir         string `mapstructure:"dir"`
	JPEGQuality int    `mapstructure:"jpeg_quality"`
}

// VideoConfig governs the nightly capture loop and the external encoder.
type VideoConfig struct {
	WorkingDir      string `mapstructure:"working_dir"`
	OutputDir       string `mapstructure:"output_dir"`
	IntervalSeconds int    `mapstructure:"interval_seconds"`
	Encoder         string `mapstructure:"encoder"`
	FrameRate       int    `mapstructure:"frame_rate"`
	Size            string `mapstructure:"size"`
	CRF             int    `mapstructure:"crf"`
	CRFMax          int    `mapstructure:"crf_max"`
	KeepFrames      bool   `mapstructure:"keep_frames"`
}

// WindowConfig describes the fixed-hours capture window in UTC.
type WindowConfig struct {
	StartHour          int `mapstructure:"start_hour"`
	EndHour            int `mapstructure:"end_hour"`
	FinalizeBeforeHour int `mapstructure:"finalize_before_hour"`
	RolloverHours      int `mapstructure:"rollover_hours"`
}

// ArchiveConfig selects where finished night videos are archived.
type ArchiveConfig struct {
	Provider string `mapstructure:"provider"`
	BaseDir  string `mapstructure:"base_dir"`
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
}

// EventsConfig selects how finished nights are announced.
type EventsConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// ServerConfig controls the monitor HTTP server run alongside the loop.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LPO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("img.rows", 480)
	v.SetDefault("img.cols", 640)
	v.SetDefault("stacked_image.rows", 3)
	v.SetDefault("stacked_image.cols", 4)
	v.SetDefault("image_urls", DefaultImageURLs)
	v.SetDefault("status.url", "http://fact-project.org/smartfact/data/status.data")
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("http.user_agent", "la-palma-overview/1.0 (+https://github.com/fact-project/la-palma-overview)")
	v.SetDefault("output.dir", ".")
	v.SetDefault("output.jpeg_quality", 90)
	v.SetDefault("video.working_dir", ".")
	v.SetDefault("video.output_dir", "")
	v.SetDefault("video.interval_seconds", 60)
	v.SetDefault("video.encoder", "avconv")
	v.SetDefault("video.frame_rate", 12)
	v.SetDefault("video.size", "1920x1080")
	v.SetDefault("video.crf", 23)
	v.SetDefault("video.crf_max", 25)
	v.SetDefault("video.keep_frames", true)
	v.SetDefault("window.start_hour", 17)
	v.SetDefault("window.end_hour", 7)
	v.SetDefault("window.finalize_before_hour", 12)
	v.SetDefault("window.rollover_hours", 12)
	v.SetDefault("archive.provider", "none")
	v.SetDefault("archive.prefix", "videos")
	v.SetDefault("events.provider", "none")
	v.SetDefault("events.topic", "la-palma-nights")
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
// Violations here are configuration errors and abort before any capture.
func (c Config) Validate() error {
	if c.Img.Rows <= 0 || c.Img.Cols <= 0 {
		return fmt.Errorf("img.rows and img.cols must be > 0")
	}
	if c.StackedImage.Rows <= 0 || c.StackedImage.Cols <= 0 {
		return fmt.Errorf("stacked_image.rows and stacked_image.cols must be > 0")
	}
	if cells := c.StackedImage.Rows * c.StackedImage.Cols; len(c.ImageURLs) > cells {
		return fmt.Errorf("%d image_urls exceed the %d grid cells", len(c.ImageURLs), cells)
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Output.JPEGQuality < 1 || c.Output.JPEGQuality > 100 {
		return fmt.Errorf("output.jpeg_quality must be in [1,100]")
	}
	if c.Video.IntervalSeconds <= 0 {
		return fmt.Errorf("video.interval_seconds must be > 0")
	}
	if c.Video.Encoder == "" {
		return fmt.Errorf("video.encoder must be set")
	}
	if c.Video.FrameRate <= 0 {
		return fmt.Errorf("video.frame_rate must be > 0")
	}
	for _, h := range []int{c.Window.StartHour, c.Window.EndHour, c.Window.FinalizeBeforeHour} {
		if h < 0 || h > 23 {
			return fmt.Errorf("window hours must be in [0,23]")
		}
	}
	if c.Window.RolloverHours < 0 || c.Window.RolloverHours > 23 {
		return fmt.Errorf("window.rollover_hours must be in [0,23]")
	}
	switch c.Archive.Provider {
	case "none", "memory":
	case "local":
		if c.Archive.BaseDir == "" {
			return fmt.Errorf("archive.base_dir must be set for the local archive")
		}
	case "gcs":
		if c.Archive.Bucket == "" {
			return fmt.Errorf("archive.bucket must be set for the gcs archive")
		}
	default:
		return fmt.Errorf("unknown archive provider: %s", c.Archive.Provider)
	}
	switch c.Events.Provider {
	case "none", "memory":
	case "pubsub":
		if c.Events.ProjectID == "" || c.Events.Topic == "" {
			return fmt.Errorf("events.project_id and events.topic must be set for pubsub")
		}
	default:
		return fmt.Errorf("unknown events provider: %s", c.Events.Provider)
	}
	if c.Server.Enabled && c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0 when the server is enabled")
	}
	return nil
}

// Timeout converts the HTTP timeout into a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// Interval converts the capture cadence into a duration.
func (c Config) Interval() time.Duration {
	return time.Duration(c.Video.IntervalSeconds) * time.Second
}

// Rollover converts the night rollover offset into a duration.
func (c Config) Rollover() time.Duration {
	return time.Duration(c.Window.RolloverHours) * time.Hour
}
