// Package media loads clip metadata from media files and runs the ffmpeg
// family of command line tools.
package media

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/maauso/clipmerge-api/internal/composition"
)

// Loader turns a media file into a clip description.
type Loader interface {
	// Load reads the metadata of the file at path. The returned clip has a nil
	// Video or Audio stream when the file carries no such media.
	Load(ctx context.Context, path string) (*composition.Clip, error)
}

// FFprobeLoader implements Loader using the ffprobe CLI.
type FFprobeLoader struct {
	// ffprobePath is the path to the ffprobe binary. Defaults to "ffprobe".
	ffprobePath string
	logger      *slog.Logger
}

var _ Loader = (*FFprobeLoader)(nil)

// NewFFprobeLoader creates a new FFprobeLoader.
// If ffprobePath is empty, it defaults to "ffprobe" (found via PATH).
func NewFFprobeLoader(ffprobePath string, logger *slog.Logger) *FFprobeLoader {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FFprobeLoader{ffprobePath: ffprobePath, logger: logger}
}

// Load implements Loader.
func (l *FFprobeLoader) Load(ctx context.Context, path string) (*composition.Clip, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_streams",
		"-show_format",
		path,
	}

	var stdout bytes.Buffer
	if err := Run(ctx, l.ffprobePath, args, &stdout); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFFprobeExecution, err)
	}

	clip, err := parseProbe(path, stdout.Bytes())
	if err != nil {
		return nil, err
	}

	attrs := []any{
		slog.String("path", path),
		slog.Duration("duration", clip.Duration),
		slog.Bool("has_audio", clip.HasAudio()),
	}
	if clip.HasVideo() {
		orientation, portrait := composition.Classify(clip.Video.PreferredTransform)
		attrs = append(attrs,
			slog.Float64("width", clip.Video.NaturalSize.Width),
			slog.Float64("height", clip.Video.NaturalSize.Height),
			slog.String("orientation", orientation.String()),
			slog.Bool("portrait", portrait),
		)
	}
	l.logger.Debug("clip loaded", attrs...)

	return clip, nil
}
