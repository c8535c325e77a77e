package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
)

// Static errors for media operations.
var (
	// ErrFFprobeExecution is returned when ffprobe command fails.
	ErrFFprobeExecution = errors.New("ffprobe execution failed")
	// ErrInvalidProbeOutput is returned when ffprobe output cannot be decoded.
	ErrInvalidProbeOutput = errors.New("invalid ffprobe output")
	// ErrNoMediaStreams is returned when a file has neither video nor audio.
	ErrNoMediaStreams = errors.New("no audio or video streams found")
	// ErrUnknownDuration is returned when no duration can be derived from a file.
	ErrUnknownDuration = errors.New("media duration unknown")
	// ErrEmptyPath is returned when an empty path is given.
	ErrEmptyPath = errors.New("empty media path")
)

// Run executes bin with args and returns an error containing stderr output if
// the command fails. stdout may be nil.
func Run(ctx context.Context, bin string, args []string, stdout io.Writer) error {
	// #nosec G204 - bin is set by the application, not user input
	cmd := exec.CommandContext(ctx, bin, args...)

	var stderr bytes.Buffer
	cmd.Stdout = stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		tool := filepath.Base(bin)
		// Check if context was cancelled
		if ctx.Err() != nil {
			return fmt.Errorf("%s cancelled: %w", tool, ctx.Err())
		}
		return &FFmpegError{
			Tool:   tool,
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}

	return nil
}

// FFmpegError represents an error from running ffmpeg or ffprobe, including
// the stderr output.
type FFmpegError struct {
	Tool   string
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	tool := e.Tool
	if tool == "" {
		tool = "ffmpeg"
	}
	return fmt.Sprintf("%s error: %v\nargs: %v\nstderr: %s", tool, e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}
