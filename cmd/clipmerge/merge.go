package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/maauso/clipmerge-api/internal/bootstrap"
	"github.com/maauso/clipmerge-api/internal/composition"
	"github.com/maauso/clipmerge-api/internal/config"
	"github.com/maauso/clipmerge-api/internal/engine"
	"github.com/maauso/clipmerge-api/internal/job/id"
	"github.com/maauso/clipmerge-api/internal/media"
	"github.com/maauso/clipmerge-api/internal/merge"
	"github.com/maauso/clipmerge-api/internal/ui"
)

var (
	errNoClips          = errors.New("at least one clip is required")
	errInvalidFrameRate = errors.New("invalid frame rate")
	errAudioOffset      = errors.New("--audio-offset must be >= 0 and needs --audio")
)

// loadConfig reads the environment configuration and applies the global flags.
func loadConfig(c *cli.Context) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	// Logs stay quiet unless asked for so they do not fight the spinner.
	cfg.LogLevel = "warn"
	if c.Bool("verbose") {
		cfg.LogLevel = "debug"
	}
	return cfg, cfg.NewLogger(), nil
}

func mergeAction(c *cli.Context) error {
	paths := c.Args().Slice()
	if len(paths) == 0 {
		return cli.Exit(errNoClips, 2)
	}

	cfg, logger, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := applyMergeFlags(c, cfg); err != nil {
		return cli.Exit(err, 2)
	}
	offset, err := audioOffset(c)
	if err != nil {
		return cli.Exit(err, 2)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	loader := bootstrap.NewLoader(cfg, logger)
	req, err := loadRequest(ctx, loader, paths, c.String("audio"), cfg)
	if err != nil {
		return err
	}
	req.AudioOffset = offset
	if err := os.MkdirAll(c.String("out"), 0750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	req.Output = engine.Output{
		Path:     filepath.Join(c.String("out"), id.OutputName(time.Now())),
		FileType: engine.FileTypeMP4,
	}
	req.Indicator = ui.NewSpinnerIndicator(fmt.Sprintf("Merging %d clips...", len(req.Clips)))

	layout, _ := composition.LayoutByName(cfg.Layout)
	coord := merge.NewCoordinator(bootstrap.NewEngine(cfg, logger),
		merge.WithLayout(layout),
		merge.WithLogger(logger),
	)
	defer coord.Close()

	out, err := coord.Merge(ctx, req)
	if err != nil {
		return err
	}
	outcome := <-out
	if !outcome.Succeeded() {
		return outcome.Err
	}

	fmt.Fprintf(c.App.Writer, "%s (%s)\n", outcome.Result.Path, outcome.Result.Duration.Round(time.Millisecond))
	return nil
}

// applyMergeFlags overrides the configured merge settings with the flags
// that were set.
func applyMergeFlags(c *cli.Context, cfg *config.Config) error {
	if c.IsSet("width") {
		cfg.RenderWidth = c.Int("width")
	}
	if c.IsSet("height") {
		cfg.RenderHeight = c.Int("height")
	}
	if c.IsSet("fade") {
		cfg.FadeSeconds = c.Float64("fade")
	}
	if c.IsSet("layout") {
		cfg.Layout = c.String("layout")
	}
	if c.IsSet("fps") {
		fd, err := parseFrameRate(c.String("fps"))
		if err != nil {
			return err
		}
		cfg.FrameValue, cfg.FrameScale = fd.Value, fd.Scale
	}
	return cfg.Validate()
}

// parseFrameRate parses "30" or "30000/1001" into a frame duration.
func parseFrameRate(s string) (engine.FrameDuration, error) {
	num, den, fraction := strings.Cut(strings.TrimSpace(s), "/")
	if !fraction {
		den = "1"
	}
	scale, err := strconv.Atoi(num)
	if err != nil || scale <= 0 {
		return engine.FrameDuration{}, fmt.Errorf("%w: %q", errInvalidFrameRate, s)
	}
	value, err := strconv.Atoi(den)
	if err != nil || value <= 0 {
		return engine.FrameDuration{}, fmt.Errorf("%w: %q", errInvalidFrameRate, s)
	}
	return engine.FrameDuration{Value: value, Scale: scale}, nil
}

// audioOffset reads --audio-offset, which only applies to an explicit --audio.
func audioOffset(c *cli.Context) (time.Duration, error) {
	if !c.IsSet("audio-offset") {
		return 0, nil
	}
	secs := c.Float64("audio-offset")
	if secs < 0 || c.String("audio") == "" {
		return 0, errAudioOffset
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// loadRequest loads the clips and optional audio into a merge request.
func loadRequest(ctx context.Context, loader media.Loader, paths []string, audioPath string, cfg *config.Config) (merge.Request, error) {
	clips := make([]*composition.Clip, 0, len(paths))
	for _, path := range paths {
		clip, err := loader.Load(ctx, path)
		if err != nil {
			return merge.Request{}, &merge.Error{
				Kind: merge.LoadingVideoAssetsFailed,
				Err:  fmt.Errorf("load %s: %w", path, err),
			}
		}
		clips = append(clips, clip)
	}

	var audio *composition.Clip
	if audioPath != "" {
		var err error
		audio, err = loader.Load(ctx, audioPath)
		if err != nil {
			return merge.Request{}, &merge.Error{
				Kind: merge.LoadingAudioAssetsFailed,
				Err:  fmt.Errorf("load %s: %w", audioPath, err),
			}
		}
	}

	return merge.Request{
		Clips:        clips,
		Audio:        audio,
		FadeDuration: time.Duration(cfg.FadeSeconds * float64(time.Second)),
		RenderSize: composition.Size{
			Width:  float64(cfg.RenderWidth),
			Height: float64(cfg.RenderHeight),
		},
		FrameDuration: engine.FrameDuration{Value: cfg.FrameValue, Scale: cfg.FrameScale},
	}, nil
}
