// Package engine defines the export engine contract used by the merge
// coordinator and provides an ffmpeg-backed implementation.
//
// An export runs asynchronously inside a Session. Callers create a session
// from a Request, start it, wait on Done and then check Status: only
// StatusCompleted means the output file is usable.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/maauso/clipmerge-api/internal/composition"
)

// Status represents the state of an export session.
type Status string

// Export session statuses.
const (
	StatusWaiting   Status = "WAITING"   // Session created, not started
	StatusExporting Status = "EXPORTING" // Export running
	StatusCompleted Status = "COMPLETED" // Output written successfully
	StatusFailed    Status = "FAILED"    // Export failed
	StatusCancelled Status = "CANCELLED" // Export cancelled before completion
	StatusUnknown   Status = "UNKNOWN"   // Engine lost track of the export
)

// IsTerminal returns true if the status represents a final state.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusUnknown:
		return true
	default:
		return false
	}
}

// Succeeded returns true only for StatusCompleted.
func (s Status) Succeeded() bool {
	return s == StatusCompleted
}

// Static errors for export sessions.
var (
	// ErrInvalidRequest is returned when a request fails validation.
	ErrInvalidRequest = errors.New("engine: invalid export request")
	// ErrAlreadyStarted is returned when Start is called twice on a session.
	ErrAlreadyStarted = errors.New("engine: session already started")
	// ErrUnsupportedRamp is returned for volume ramps the engine cannot render.
	ErrUnsupportedRamp = errors.New("engine: unsupported volume ramp")
	// ErrExportCancelled is reported by sessions that were cancelled.
	ErrExportCancelled = errors.New("engine: export cancelled")
)

// FrameDuration is the duration of one output frame, Value/Scale seconds.
// (1, 30) is 30 frames per second.
type FrameDuration struct {
	Value int `validate:"gt=0"`
	Scale int `validate:"gt=0"`
}

// Duration returns the frame duration.
func (f FrameDuration) Duration() time.Duration {
	if f.Scale == 0 {
		return 0
	}
	return time.Duration(int64(f.Value) * int64(time.Second) / int64(f.Scale))
}

// Rate returns the frame rate as an ffmpeg rational, "Scale/Value".
func (f FrameDuration) Rate() string {
	return fmt.Sprintf("%d/%d", f.Scale, f.Value)
}

// String returns "Value/Scale".
func (f FrameDuration) String() string {
	return fmt.Sprintf("%d/%d", f.Value, f.Scale)
}

// FileType is the output container.
type FileType string

// Supported containers.
const (
	FileTypeMP4 FileType = "mp4"
)

// Output describes where and how the export is written.
type Output struct {
	// Path of the file to write. Existing files are overwritten.
	Path     string   `validate:"required"`
	FileType FileType `validate:"omitempty,oneof=mp4"`
	// OptimizeForNetwork moves the index to the front of the file for
	// progressive playback.
	OptimizeForNetwork bool
}

// Request is everything an engine needs to render one merge. It is built once
// per merge and handed to the engine as a whole.
type Request struct {
	Timeline      *composition.Timeline `validate:"required"`
	AudioMix      *composition.AudioMix `validate:"required"`
	RenderSize    composition.Size
	FrameDuration FrameDuration
	Output        Output
}

// Result is the handle to a finished export.
type Result struct {
	SessionID  string
	Path       string
	Duration   time.Duration
	FinishedAt time.Time
}

// Engine creates export sessions.
type Engine interface {
	// NewSession validates req and prepares an export. The export does not
	// run until Session.Start is called.
	NewSession(ctx context.Context, req Request) (Session, error)
}

// Session is one asynchronous export.
type Session interface {
	// ID identifies the session in logs.
	ID() string
	// Start launches the export and returns once it is running.
	Start(ctx context.Context) error
	// Done is closed once the session reaches a terminal status.
	Done() <-chan struct{}
	// Status returns the current status.
	Status() Status
	// Err returns the failure cause once the session failed or was cancelled.
	Err() error
	// Progress returns the completed fraction in [0, 1].
	Progress() float64
	// Result returns the export result. Only meaningful after StatusCompleted.
	Result() Result
	// Cancel stops a running export. It is a no-op on finished sessions.
	Cancel()
}
