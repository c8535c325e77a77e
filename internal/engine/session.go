package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/maauso/clipmerge-api/internal/media"
)

// ffmpegSession runs one ffmpeg export in the background.
type ffmpegSession struct {
	id       string
	bin      string
	args     []string
	output   string
	duration time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	status   Status
	err      error
	progress float64
	result   Result
	started  bool
	cancel   context.CancelFunc
	done     chan struct{}
}

var _ Session = (*ffmpegSession)(nil)

func newFFmpegSession(id, bin string, args []string, output string, duration time.Duration, logger *slog.Logger) *ffmpegSession {
	return &ffmpegSession{
		id:       id,
		bin:      bin,
		args:     args,
		output:   output,
		duration: duration,
		logger:   logger.With(slog.String("session_id", id)),
		status:   StatusWaiting,
		done:     make(chan struct{}),
	}
}

// ID implements Session.
func (s *ffmpegSession) ID() string { return s.id }

// Done implements Session.
func (s *ffmpegSession) Done() <-chan struct{} { return s.done }

// Status implements Session.
func (s *ffmpegSession) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Err implements Session.
func (s *ffmpegSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Progress implements Session.
func (s *ffmpegSession) Progress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// Result implements Session.
func (s *ffmpegSession) Result() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Start implements Session. The export stops when ctx is cancelled or when
// Cancel is called.
func (s *ffmpegSession) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	if s.status.IsTerminal() {
		s.mu.Unlock()
		return ErrExportCancelled
	}
	s.started = true
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.output), 0o750); err != nil {
		err = fmt.Errorf("create output directory: %w", err)
		s.finish(StatusFailed, err)
		return err
	}

	s.mu.Lock()
	s.status = StatusExporting
	s.mu.Unlock()

	s.logger.Info("export started",
		slog.String("output", s.output),
		slog.Duration("duration", s.duration),
	)

	pr, pw := io.Pipe()
	go readProgress(pr, s.duration, s.setProgress)
	go func() {
		err := media.Run(runCtx, s.bin, s.args, pw)
		_ = pw.Close()

		switch {
		case err == nil:
			s.finish(StatusCompleted, nil)
		case runCtx.Err() != nil:
			s.finish(StatusCancelled, fmt.Errorf("%w: %w", ErrExportCancelled, err))
		default:
			s.finish(StatusFailed, err)
		}
	}()

	return nil
}

// Cancel implements Session.
func (s *ffmpegSession) Cancel() {
	s.mu.Lock()
	if s.status.IsTerminal() {
		s.mu.Unlock()
		return
	}
	if !s.started {
		s.mu.Unlock()
		s.finish(StatusCancelled, ErrExportCancelled)
		return
	}
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
}

func (s *ffmpegSession) setProgress(p float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.status.IsTerminal() {
		s.progress = p
	}
}

// finish moves the session to its terminal status exactly once.
func (s *ffmpegSession) finish(status Status, err error) {
	s.mu.Lock()
	if s.status.IsTerminal() {
		s.mu.Unlock()
		return
	}
	s.status = status
	s.err = err
	if status == StatusCompleted {
		s.progress = 1
		s.result = Result{
			SessionID:  s.id,
			Path:       s.output,
			Duration:   s.duration,
			FinishedAt: time.Now(),
		}
	}
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	close(s.done)

	if err != nil {
		s.logger.Error("export finished",
			slog.String("status", string(status)),
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.Info("export finished", slog.String("status", string(status)))
}
