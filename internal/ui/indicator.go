package ui

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/charmbracelet/huh/spinner"
)

// Indicator shows that work is in progress.
type Indicator interface {
	Start()
	Stop()
}

// Handle gives a caller controlled access to an optional indicator. Start and
// Stop are posted to the dispatcher and each reaches the indicator at most
// once. A Handle without an indicator does nothing.
type Handle struct {
	indicator  Indicator
	dispatcher *Dispatcher
	startOnce  sync.Once
	stopOnce   sync.Once
}

// NewHandle binds indicator to dispatcher. Either may be nil; without a
// dispatcher the calls run on the caller's goroutine.
func NewHandle(indicator Indicator, dispatcher *Dispatcher) *Handle {
	return &Handle{indicator: indicator, dispatcher: dispatcher}
}

// Start starts the indicator.
func (h *Handle) Start() {
	if h == nil || h.indicator == nil {
		return
	}
	h.startOnce.Do(func() { h.run(h.indicator.Start) })
}

// Stop stops the indicator, whether or not it was started.
func (h *Handle) Stop() {
	if h == nil || h.indicator == nil {
		return
	}
	h.stopOnce.Do(func() { h.run(h.indicator.Stop) })
}

func (h *Handle) run(fn func()) {
	if h.dispatcher == nil || !h.dispatcher.Post(fn) {
		fn()
	}
}

// SpinnerIndicator renders a terminal spinner while started.
type SpinnerIndicator struct {
	title string

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

var _ Indicator = (*SpinnerIndicator)(nil)

// NewSpinnerIndicator creates a spinner showing title.
func NewSpinnerIndicator(title string) *SpinnerIndicator {
	return &SpinnerIndicator{title: title}
}

// Start shows the spinner. Calling Start on a running spinner does nothing.
func (s *SpinnerIndicator) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go func() {
		defer close(done)
		// Run returns once ctx is cancelled.
		_ = spinner.New().Title(s.title).Context(ctx).Run()
	}()
}

// Stop hides the spinner and waits until the terminal is restored.
func (s *SpinnerIndicator) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// LogIndicator reports busy spans through a logger. It suits processes
// without a terminal.
type LogIndicator struct {
	logger *slog.Logger
	attrs  []any

	mu      sync.Mutex
	started time.Time
}

var _ Indicator = (*LogIndicator)(nil)

// NewLogIndicator creates a LogIndicator. attrs are added to every record.
func NewLogIndicator(logger *slog.Logger, attrs ...any) *LogIndicator {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogIndicator{logger: logger, attrs: attrs}
}

// Start implements Indicator.
func (l *LogIndicator) Start() {
	l.mu.Lock()
	l.started = time.Now()
	l.mu.Unlock()
	l.logger.Info("busy", l.attrs...)
}

// Stop implements Indicator.
func (l *LogIndicator) Stop() {
	l.mu.Lock()
	started := l.started
	l.started = time.Time{}
	l.mu.Unlock()

	attrs := l.attrs
	if !started.IsZero() {
		attrs = append(append([]any{}, l.attrs...), slog.Duration("elapsed", time.Since(started)))
	}
	l.logger.Info("idle", attrs...)
}
