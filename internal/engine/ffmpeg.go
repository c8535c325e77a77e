package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// DefaultPreset is the libx264 preset used when none is configured.
const DefaultPreset = "medium"

// FFmpegEngine implements Engine by rendering the composition with the ffmpeg CLI.
type FFmpegEngine struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
	preset     string
	logger     *slog.Logger
	validator  *validator.Validate
}

var _ Engine = (*FFmpegEngine)(nil)

// FFmpegEngineOption configures an FFmpegEngine.
type FFmpegEngineOption func(*FFmpegEngine)

// WithPreset sets the libx264 encoding preset.
func WithPreset(preset string) FFmpegEngineOption {
	return func(e *FFmpegEngine) {
		if preset != "" {
			e.preset = preset
		}
	}
}

// WithLogger sets the logger used by the engine and its sessions.
func WithLogger(logger *slog.Logger) FFmpegEngineOption {
	return func(e *FFmpegEngine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewFFmpegEngine creates a new FFmpegEngine.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found via PATH).
func NewFFmpegEngine(ffmpegPath string, opts ...FFmpegEngineOption) *FFmpegEngine {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	e := &FFmpegEngine{
		ffmpegPath: ffmpegPath,
		preset:     DefaultPreset,
		logger:     slog.Default(),
		validator:  validator.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewSession implements Engine. It fails when the request is invalid, when
// the graph cannot be expressed, or when the ffmpeg binary cannot be found.
func (e *FFmpegEngine) NewSession(ctx context.Context, req Request) (Session, error) {
	if err := e.validator.StructCtx(ctx, req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if len(req.Timeline.Tracks) == 0 {
		return nil, fmt.Errorf("%w: timeline has no tracks", ErrInvalidRequest)
	}

	bin, err := exec.LookPath(e.ffmpegPath)
	if err != nil {
		return nil, fmt.Errorf("locate ffmpeg: %w", err)
	}

	args, err := buildArgs(req, e.preset)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	e.logger.Debug("export session created",
		slog.String("session_id", id),
		slog.Int("tracks", len(req.Timeline.Tracks)),
		slog.String("frame_duration", req.FrameDuration.String()),
		slog.String("output", req.Output.Path),
	)

	return newFFmpegSession(id, bin, args, req.Output.Path, req.Timeline.Duration, e.logger), nil
}
