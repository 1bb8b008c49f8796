// Package config holds the render configuration and its loading layers:
// built-in defaults, an optional YAML profile, then environment overrides.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

// RenderConfig holds every knob of the frame-synthesis pipeline. Codec
// parameters are opaque to the core and passed through to the encoder.
type RenderConfig struct {
	Width  int `yaml:"width" env:"VIDEO_WIDTH, default=1920"`
	Height int `yaml:"height" env:"VIDEO_HEIGHT, default=1080"`
	FPS    int `yaml:"fps" env:"VIDEO_FPS, default=24"`

	VideoCodec   string `yaml:"video_codec" env:"VIDEO_CODEC, default=libx264"`
	AudioCodec   string `yaml:"audio_codec" env:"AUDIO_CODEC, default=aac"`
	Bitrate      string `yaml:"bitrate" env:"VIDEO_BITRATE, default=5000k"`
	AudioBitrate string `yaml:"audio_bitrate" env:"AUDIO_BITRATE, default=192k"`
	Quality      int    `yaml:"quality" env:"VIDEO_QUALITY, default=23"`

	FadeDuration      float64 `yaml:"fade_duration" env:"FADE_DURATION, default=0.5"`
	CrossfadeDuration float64 `yaml:"crossfade_duration" env:"CROSSFADE_DURATION, default=0.5"`

	KenBurnsEnabled    bool    `yaml:"ken_burns_enabled" env:"KEN_BURNS_ENABLED, default=true"`
	KenBurnsZoomFactor float64 `yaml:"ken_burns_zoom_factor" env:"KEN_BURNS_ZOOM_FACTOR, default=1.1"`

	PanEnabled  bool `yaml:"pan_enabled" env:"PAN_ENABLED, default=true"`
	PanDistance int  `yaml:"pan_distance" env:"PAN_DISTANCE, default=50"`

	WeatherEffectsEnabled bool    `yaml:"weather_effects_enabled" env:"WEATHER_EFFECTS_ENABLED, default=true"`
	WeatherIntensity      float64 `yaml:"weather_intensity" env:"WEATHER_INTENSITY, default=0.3"`

	BackgroundMusicVolume float64 `yaml:"background_music_volume" env:"BACKGROUND_MUSIC_VOLUME, default=0.3"`

	// OutputDir is the root under which per-title directories are created.
	OutputDir string `yaml:"output_dir" env:"OUTPUT_DIR, default=output"`

	// Optional S3 upload of the finished file.
	S3Bucket string `yaml:"s3_bucket" env:"S3_BUCKET"`
	S3Region string `yaml:"s3_region" env:"S3_REGION"`

	LogFormat string `yaml:"log_format" env:"LOG_FORMAT, default=text"`
	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL, default=info"`
}

// Default returns the built-in configuration: 1080p @ 24 fps with all
// effects enabled at their stock strengths.
func Default() *RenderConfig {
	return &RenderConfig{
		Width:                 1920,
		Height:                1080,
		FPS:                   24,
		VideoCodec:            "libx264",
		AudioCodec:            "aac",
		Bitrate:               "5000k",
		AudioBitrate:          "192k",
		Quality:               23,
		FadeDuration:          0.5,
		CrossfadeDuration:     0.5,
		KenBurnsEnabled:       true,
		KenBurnsZoomFactor:    1.1,
		PanEnabled:            true,
		PanDistance:           50,
		WeatherEffectsEnabled: true,
		WeatherIntensity:      0.3,
		BackgroundMusicVolume: 0.3,
		OutputDir:             "output",
		LogFormat:             "text",
		LogLevel:              "info",
	}
}

// Load builds the effective configuration: defaults, then the optional YAML
// profile at profilePath, then environment variables on top.
func Load(ctx context.Context, profilePath string) (*RenderConfig, error) {
	cfg := Default()

	if profilePath != "" {
		if err := cfg.applyProfile(profilePath); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process(ctx, cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, cfg.Validate()
}

// ReadProfile reads a YAML render profile on its own, without env layering.
func ReadProfile(path string) (*RenderConfig, error) {
	cfg := Default()
	if err := cfg.applyProfile(path); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *RenderConfig) applyProfile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read render profile: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse render profile %s: %w", path, err)
	}
	return nil
}

// Validate checks ranges the pipeline depends on.
func (c *RenderConfig) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("config: invalid resolution %dx%d", c.Width, c.Height)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("config: invalid fps %d", c.FPS)
	}
	if c.WeatherIntensity < 0 || c.WeatherIntensity > 1 {
		return fmt.Errorf("config: weather intensity %.2f out of [0,1]", c.WeatherIntensity)
	}
	if c.BackgroundMusicVolume < 0 || c.BackgroundMusicVolume > 1 {
		return fmt.Errorf("config: music volume %.2f out of [0,1]", c.BackgroundMusicVolume)
	}
	if c.KenBurnsZoomFactor < 1 {
		return fmt.Errorf("config: ken-burns zoom factor %.2f must be >= 1", c.KenBurnsZoomFactor)
	}
	return nil
}

// S3Enabled reports whether a finished render should also be uploaded.
func (c *RenderConfig) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// NewLogger builds the process logger. Format "json" is meant for servers,
// the default text handler for interactive runs.
func (c *RenderConfig) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
