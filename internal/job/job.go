// Package job provides the Job aggregate for managing merge jobs.
// It includes the Job entity with its state machine, repository
// implementations and the MergeService that drives a job through a merge.
package job

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/maauso/clipmerge-api/internal/job/id"
)

// Status represents the current state of a Job.
type Status string

const (
	// StatusInQueue indicates the job is waiting for a free coordinator.
	StatusInQueue Status = "IN_QUEUE"
	// StatusRunning indicates the job is being merged.
	StatusRunning Status = "RUNNING"
	// StatusCompleted indicates the job produced an output video.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed indicates the merge failed.
	StatusFailed Status = "FAILED"
	// StatusCancelled indicates the job was manually cancelled.
	StatusCancelled Status = "CANCELLED"
)

// ErrInvalidTransition is returned when a status change is not allowed.
var ErrInvalidTransition = errors.New("invalid state transition")

// Terminal statuses have no outgoing transitions.
var validTransitions = map[Status][]Status{
	StatusInQueue: {StatusRunning, StatusFailed, StatusCancelled},
	StatusRunning: {StatusCompleted, StatusFailed, StatusCancelled},
}

func canTransition(from, to Status) bool {
	return slices.Contains(validTransitions[from], to)
}

// IsTerminal reports whether s is COMPLETED, FAILED or CANCELLED.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Job is one request to merge a list of clips into a single video. Its
// exported fields are plain data; methods that change status or progress
// lock the job and may be called concurrently.
type Job struct {
	mu sync.RWMutex

	// ID is the unique identifier for this job.
	ID string
	// Status is the current job state.
	Status Status
	// Progress is the percentage of completion (0-100).
	Progress int
	// Error contains the error message if the job failed.
	Error string
	// ErrorKind is the merge failure kind name, e.g. "ExportSessionFailed".
	ErrorKind string
	// ClipPaths are the input clips in timeline order.
	ClipPaths []string
	// AudioPath is the optional replacement audio track.
	AudioPath string
	// OutputPath is the path to the merged video.
	OutputPath string
	// Width is the render width.
	Width int
	// Height is the render height.
	Height int
	// FrameValue and FrameScale form the frame duration Value/Scale seconds.
	FrameValue int
	FrameScale int
	// FadeSeconds fades the replacement audio in and out.
	FadeSeconds float64
	// AudioOffsetSeconds is where the replacement audio starts on the output.
	AudioOffsetSeconds float64
	// PushToS3 indicates whether to upload the result to S3.
	PushToS3 bool
	// VideoURL is the S3 URL if PushToS3 was true.
	VideoURL string
	// CreatedAt is when the job was created.
	CreatedAt time.Time
	// UpdatedAt is when the job was last updated.
	UpdatedAt time.Time
	// StartedAt is when the merge started.
	StartedAt time.Time
	// CompletedAt is when the job reached a terminal state.
	CompletedAt time.Time
}

// New returns a queued job with a generated "merge-" ID.
func New() *Job {
	return NewWithID(id.Generate())
}

// NewWithID returns a queued job with the given ID.
func NewWithID(jobID string) *Job {
	now := time.Now()
	return &Job{
		ID:        jobID,
		Status:    StatusInQueue,
		ClipPaths: []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo moves the job to status, stamping StartedAt or CompletedAt.
// It returns ErrInvalidTransition when the move is not allowed.
func (j *Job) TransitionTo(status Status) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.transitionLocked(status)
}

func (j *Job) transitionLocked(status Status) error {
	if !canTransition(j.Status, status) {
		return ErrInvalidTransition
	}

	now := time.Now()
	j.Status = status
	j.UpdatedAt = now
	if status == StatusRunning {
		j.StartedAt = now
		return nil
	}
	j.CompletedAt = now
	if status == StatusCompleted {
		j.Progress = 100
	}
	return nil
}

// Start marks a queued job as running.
func (j *Job) Start() error { return j.TransitionTo(StatusRunning) }

// Complete marks the job as done and pins progress at 100.
func (j *Job) Complete() error { return j.TransitionTo(StatusCompleted) }

// Cancel marks a queued or running job as cancelled.
func (j *Job) Cancel() error { return j.TransitionTo(StatusCancelled) }

// Fail transitions the job to FAILED, recording the failure kind and message.
// The error fields are left untouched when the transition is not allowed.
func (j *Job) Fail(kind, errMsg string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.transitionLocked(StatusFailed); err != nil {
		return err
	}
	j.ErrorKind = kind
	j.Error = errMsg
	return nil
}

// GetStatus returns the status under the job's lock.
func (j *Job) GetStatus() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// GetProgress returns the progress under the job's lock.
func (j *Job) GetProgress() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Progress
}

// UpdateProgress sets the progress percentage, clamped to 0-100.
// Progress never moves backwards.
func (j *Job) UpdateProgress(progress int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	progress = max(0, min(progress, 100))
	if progress <= j.Progress {
		return
	}
	j.Progress = progress
	j.UpdatedAt = time.Now()
}

// SetOutput records where the merged video lives. videoURL is empty unless
// the video was uploaded.
func (j *Job) SetOutput(videoPath, videoURL string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.OutputPath = videoPath
	j.VideoURL = videoURL
	j.UpdatedAt = time.Now()
}

// ClearOutput forgets the output after its file was deleted.
func (j *Job) ClearOutput() { j.SetOutput("", "") }

// IsTerminal reports whether the job can no longer change status.
func (j *Job) IsTerminal() bool {
	return j.GetStatus().IsTerminal()
}

// Clone returns a deep copy that shares no state with j.
func (j *Job) Clone() *Job {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return &Job{
		ID:                 j.ID,
		Status:             j.Status,
		Progress:           j.Progress,
		Error:              j.Error,
		ErrorKind:          j.ErrorKind,
		ClipPaths:          slices.Clone(j.ClipPaths),
		AudioPath:          j.AudioPath,
		OutputPath:         j.OutputPath,
		Width:              j.Width,
		Height:             j.Height,
		FrameValue:         j.FrameValue,
		FrameScale:         j.FrameScale,
		FadeSeconds:        j.FadeSeconds,
		AudioOffsetSeconds: j.AudioOffsetSeconds,
		PushToS3:           j.PushToS3,
		VideoURL:           j.VideoURL,
		CreatedAt:          j.CreatedAt,
		UpdatedAt:          j.UpdatedAt,
		StartedAt:          j.StartedAt,
		CompletedAt:        j.CompletedAt,
	}
}
