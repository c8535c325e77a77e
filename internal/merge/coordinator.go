// Package merge coordinates a merge from clip validation to the finished
// export. A Coordinator plans the composition synchronously, hands it to an
// export engine and reports exactly one Outcome per merge.
package merge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maauso/clipmerge-api/internal/composition"
	"github.com/maauso/clipmerge-api/internal/engine"
	"github.com/maauso/clipmerge-api/internal/ui"
)

// Request describes one merge.
type Request struct {
	// Clips are placed on the timeline in order. Nil entries invalidate the merge.
	Clips []*composition.Clip
	// Audio replaces the clips' own audio when set. It is expected to last
	// at least as long as the merged video.
	Audio *composition.Clip
	// AudioOffset is where Audio starts on the output timeline.
	AudioOffset time.Duration
	// FadeDuration fades Audio in and out. Zero disables fading.
	FadeDuration time.Duration

	RenderSize    composition.Size
	FrameDuration engine.FrameDuration
	Output        engine.Output

	// Indicator is shown while the merge is busy. Optional.
	Indicator ui.Indicator
	// OnComplete receives the export result on success only.
	OnComplete func(engine.Result)
	// OnResult is called once per merge, with nil on success.
	OnResult func(*Error)
}

// Outcome is the terminal value of a merge.
type Outcome struct {
	Result engine.Result
	Err    *Error
}

// Succeeded reports whether the merge produced an output.
func (o Outcome) Succeeded() bool {
	return o.Err == nil
}

// Coordinator runs merges one at a time.
type Coordinator struct {
	engine         engine.Engine
	layout         composition.LayoutStrategy
	dispatcher     *ui.Dispatcher
	ownsDispatcher bool
	logger         *slog.Logger

	busy    atomic.Bool
	mu      sync.Mutex
	state   State
	session engine.Session
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLayout sets the strategy that fits clips onto the render canvas.
func WithLayout(layout composition.LayoutStrategy) Option {
	return func(c *Coordinator) {
		if layout != nil {
			c.layout = layout
		}
	}
}

// WithDispatcher sets the dispatcher that runs indicator calls. Coordinators
// sharing a terminal should share one dispatcher.
func WithDispatcher(d *ui.Dispatcher) Option {
	return func(c *Coordinator) {
		c.dispatcher = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCoordinator creates a Coordinator exporting through eng.
func NewCoordinator(eng engine.Engine, opts ...Option) *Coordinator {
	c := &Coordinator{
		engine: eng,
		layout: composition.ReferenceLayout{},
		logger: slog.Default(),
		state:  StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.dispatcher == nil {
		c.dispatcher = ui.NewDispatcher(0)
		c.ownsDispatcher = true
	}
	return c
}

// Close releases the coordinator's own dispatcher. Pending indicator calls
// run first.
func (c *Coordinator) Close() {
	if c.ownsDispatcher {
		c.dispatcher.Close()
	}
}

// State returns the current pipeline state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Progress returns the export progress in [0, 1].
func (c *Coordinator) Progress() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.session != nil:
		return c.session.Progress()
	case c.state == StateCompleted:
		return 1
	default:
		return 0
	}
}

// Busy reports whether a merge is in flight.
func (c *Coordinator) Busy() bool {
	return c.busy.Load()
}

// Merge runs a merge. Validation, timeline and audio planning happen on the
// calling goroutine; failures there are reported before Merge returns. The
// export itself runs in the background and ends when the engine finishes or
// ctx is cancelled.
//
// The returned channel receives exactly one Outcome and is then closed. The
// request callbacks see the same outcome. Merge returns ErrBusy, and nothing
// else happens, while another merge is in flight.
func (c *Coordinator) Merge(ctx context.Context, req Request) (<-chan Outcome, error) {
	if !c.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}

	r := &run{
		c:         c,
		req:       req,
		indicator: ui.NewHandle(req.Indicator, c.dispatcher),
		out:       make(chan Outcome, 1),
	}

	c.transition(StateValidating)
	clips, err := composition.ValidateClips(req.Clips)
	if err != nil {
		r.fail(VideoAssetsNotValid, err)
		return r.out, nil
	}

	c.transition(StateBuildingTimeline)
	tl, err := composition.BuildTimeline(clips, req.RenderSize, c.layout)
	if err != nil {
		r.fail(LoadingVideoAssetsFailed, err)
		return r.out, nil
	}

	c.transition(StateBuildingAudio)
	mix, err := composition.BuildAudioMix(tl, composition.AudioOptions{
		Audio:  req.Audio,
		Offset: req.AudioOffset,
		Fade:   req.FadeDuration,
	})
	if err != nil {
		r.fail(LoadingAudioAssetsFailed, err)
		return r.out, nil
	}
	if req.Audio != nil && req.Audio.Duration > 0 && req.Audio.Duration < tl.Duration {
		c.logger.Warn("audio shorter than video",
			slog.String("audio", req.Audio.Source),
			slog.Duration("audio_duration", req.Audio.Duration),
			slog.Duration("video_duration", tl.Duration),
		)
	}

	c.transition(StateExporting)
	r.indicator.Start()

	if c.engine == nil {
		r.fail(GenerationExportSessionFailed, errors.New("no export engine configured"))
		return r.out, nil
	}
	session, err := c.engine.NewSession(ctx, engine.Request{
		Timeline:      tl,
		AudioMix:      mix,
		RenderSize:    req.RenderSize,
		FrameDuration: req.FrameDuration,
		Output:        req.Output,
	})
	if err != nil {
		r.fail(GenerationExportSessionFailed, err)
		return r.out, nil
	}
	if err := session.Start(ctx); err != nil {
		r.fail(GenerationExportSessionFailed, fmt.Errorf("start session %s: %w", session.ID(), err))
		return r.out, nil
	}

	c.mu.Lock()
	c.session = session
	c.mu.Unlock()

	c.logger.Info("export started",
		slog.String("session_id", session.ID()),
		slog.Int("clips", len(clips)),
		slog.Duration("duration", tl.Duration),
		slog.String("audio", mix.Mode.String()),
		slog.String("output", req.Output.Path),
	)

	go r.observe(ctx, session)
	return r.out, nil
}

// transition moves the coordinator to target. Merges are serialized by the
// busy flag, so an invalid transition is a programming error and only logged.
func (c *Coordinator) transition(target State) {
	c.mu.Lock()
	from := c.state
	ok := from.CanTransitionTo(target)
	if ok {
		c.state = target
	}
	c.mu.Unlock()

	if !ok {
		c.logger.Error("merge state transition rejected",
			slog.String("from", string(from)),
			slog.String("to", string(target)),
			slog.String("error", ErrInvalidTransition.Error()),
		)
		return
	}
	c.logger.Debug("merge state changed",
		slog.String("from", string(from)),
		slog.String("to", string(target)),
	)
}

// run is the per-merge bookkeeping.
type run struct {
	c         *Coordinator
	req       Request
	indicator *ui.Handle
	out       chan Outcome
}

// observe waits for the session's terminal status or for cancellation.
func (r *run) observe(ctx context.Context, session engine.Session) {
	select {
	case <-session.Done():
	case <-ctx.Done():
		// A session that completed as the context ended keeps its output.
		if session.Status().Succeeded() {
			r.succeed(session.Result())
			return
		}
		session.Cancel()
		r.fail(ExportSessionFailed, fmt.Errorf("session %s cancelled: %w", session.ID(), context.Cause(ctx)))
		return
	}

	status := session.Status()
	if status.Succeeded() {
		r.succeed(session.Result())
		return
	}

	cause := fmt.Errorf("session %s ended with status %s", session.ID(), status)
	if err := session.Err(); err != nil {
		cause = fmt.Errorf("%w: %w", cause, err)
	}
	r.fail(ExportSessionFailed, cause)
}

func (r *run) succeed(result engine.Result) {
	r.finish(StateCompleted)
	r.c.logger.Info("merge completed",
		slog.String("session_id", result.SessionID),
		slog.String("output", result.Path),
	)

	if r.req.OnComplete != nil {
		r.req.OnComplete(result)
	}
	if r.req.OnResult != nil {
		r.req.OnResult(nil)
	}
	r.deliver(Outcome{Result: result})
}

func (r *run) fail(kind Kind, cause error) {
	mergeErr := &Error{Kind: kind, Err: cause}
	r.finish(StateFailed)
	r.c.logger.Error("merge failed",
		slog.String("kind", kind.String()),
		slog.String("error", mergeErr.Error()),
	)

	if r.req.OnResult != nil {
		r.req.OnResult(mergeErr)
	}
	r.deliver(Outcome{Err: mergeErr})
}

// finish records the terminal state, stops the indicator and frees the
// coordinator for the next merge.
func (r *run) finish(state State) {
	r.c.transition(state)
	r.indicator.Stop()

	r.c.mu.Lock()
	r.c.session = nil
	r.c.mu.Unlock()

	r.c.busy.Store(false)
}

func (r *run) deliver(o Outcome) {
	r.out <- o
	close(r.out)
}
