// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sethvargo/go-envconfig"

	"github.com/maauso/clipmerge-api/internal/composition"
)

// MaxRenderEdge is the largest accepted render width or height.
const MaxRenderEdge = 1920

// Job store backends.
const (
	JobStoreMemory = "memory"
	JobStoreSQLite = "sqlite"
)

// Static errors for configuration validation.
var (
	// ErrInvalidRenderSize is returned when RENDER_WIDTH or RENDER_HEIGHT is out of range.
	ErrInvalidRenderSize = errors.New("config: RENDER_WIDTH and RENDER_HEIGHT must be between 1 and 1920")
	// ErrInvalidFrameDuration is returned when FRAME_VALUE or FRAME_SCALE is not positive.
	ErrInvalidFrameDuration = errors.New("config: FRAME_VALUE and FRAME_SCALE must be positive")
	// ErrInvalidFade is returned when FADE_SECONDS is negative.
	ErrInvalidFade = errors.New("config: FADE_SECONDS must not be negative")
	// ErrUnknownLayout is returned when LAYOUT names no layout strategy.
	ErrUnknownLayout = errors.New("config: LAYOUT must be reference or fit")
	// ErrUnknownJobStore is returned when JOB_STORE names no job store.
	ErrUnknownJobStore = errors.New("config: JOB_STORE must be memory or sqlite")
	// ErrJobDBPathRequired is returned when the sqlite job store has no JOB_DB_PATH.
	ErrJobDBPathRequired = errors.New("config: JOB_DB_PATH is required for the sqlite job store")
	// ErrInvalidConcurrency is returned when MAX_CONCURRENT_MERGES is not positive.
	ErrInvalidConcurrency = errors.New("config: MAX_CONCURRENT_MERGES must be positive")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port           int      `env:"PORT, default=8080" json:"port"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS, default=*" json:"allowed_origins"`

	// Storage settings
	TempDir string `env:"TEMP_DIR, default=/tmp/clipmerge" json:"temp_dir"`

	// Media tools
	FFmpegPath   string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`
	FFprobePath  string `env:"FFPROBE_PATH, default=ffprobe" json:"ffprobe_path"`
	FFmpegPreset string `env:"FFMPEG_PRESET, default=medium" json:"ffmpeg_preset"`

	// Merge defaults
	RenderWidth         int     `env:"RENDER_WIDTH, default=1080" json:"render_width"`
	RenderHeight        int     `env:"RENDER_HEIGHT, default=1920" json:"render_height"`
	FrameValue          int     `env:"FRAME_VALUE, default=1" json:"frame_value"`
	FrameScale          int     `env:"FRAME_SCALE, default=30" json:"frame_scale"`
	FadeSeconds         float64 `env:"FADE_SECONDS, default=0" json:"fade_seconds"`
	Layout              string  `env:"LAYOUT, default=reference" json:"layout"` // "reference" or "fit"
	MaxConcurrentMerges int     `env:"MAX_CONCURRENT_MERGES, default=2" json:"max_concurrent_merges"`

	// Job persistence
	JobStore  string `env:"JOB_STORE, default=memory" json:"job_store"` // "memory" or "sqlite"
	JobDBPath string `env:"JOB_DB_PATH, default=/tmp/clipmerge/jobs.db" json:"job_db_path"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Load reads configuration from environment variables using go-envconfig
// and validates it.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the merge settings are usable.
func (c *Config) Validate() error {
	if c.RenderWidth < 1 || c.RenderWidth > MaxRenderEdge ||
		c.RenderHeight < 1 || c.RenderHeight > MaxRenderEdge {
		return ErrInvalidRenderSize
	}
	if c.FrameValue <= 0 || c.FrameScale <= 0 {
		return ErrInvalidFrameDuration
	}
	if c.FadeSeconds < 0 {
		return ErrInvalidFade
	}
	if _, ok := composition.LayoutByName(c.Layout); !ok {
		return ErrUnknownLayout
	}
	if c.MaxConcurrentMerges <= 0 {
		return ErrInvalidConcurrency
	}
	switch c.JobStore {
	case JobStoreMemory:
	case JobStoreSQLite:
		if c.JobDBPath == "" {
			return ErrJobDBPathRequired
		}
	default:
		return ErrUnknownJobStore
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, TempDir: %s, FFmpegPath: %s, FFprobePath: %s, Render: %dx%d, Frame: %d/%d, FadeSeconds: %g, Layout: %s, MaxConcurrentMerges: %d, JobStore: %s, S3Bucket: %s, S3Region: %s, S3Endpoint: %s, AWSAccessKeyID: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.TempDir,
		c.FFmpegPath,
		c.FFprobePath,
		c.RenderWidth,
		c.RenderHeight,
		c.FrameValue,
		c.FrameScale,
		c.FadeSeconds,
		c.Layout,
		c.MaxConcurrentMerges,
		c.JobStore,
		c.S3Bucket,
		c.S3Region,
		c.S3Endpoint,
		mask(c.AWSAccessKeyID),
		c.LogFormat,
		c.LogLevel,
	)
}

// mask hides all but the last four characters of a secret.
func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
