package composition

import (
	"fmt"
	"time"
)

// Track places one clip's video on the output timeline.
type Track struct {
	// Index is the track's position in the timeline, starting at 0.
	Index int
	// Clip is the placed asset.
	Clip Clip
	// Offset is the track start, the cumulative duration of earlier clips.
	Offset time.Duration
	// Duration equals the clip duration.
	Duration time.Duration
}

// End returns the time at which the track's media ends.
func (t Track) End() time.Duration {
	return t.Offset + t.Duration
}

// OpacityKeyframe sets a track's opacity from Time onwards.
type OpacityKeyframe struct {
	Time    time.Duration
	Opacity float64
}

// LayerInstruction carries the per-track transform and opacity changes. It
// applies over the whole output window.
type LayerInstruction struct {
	TrackIndex int
	// Transform is valid from time 0.
	Transform Transform
	// Opacity holds at most one keyframe, a hard cut to transparent at the
	// track's end.
	Opacity []OpacityKeyframe
}

// VisibleUntil returns the time at which the layer becomes transparent, or
// fallback when it never does.
func (l LayerInstruction) VisibleUntil(fallback time.Duration) time.Duration {
	for _, k := range l.Opacity {
		if k.Opacity == 0 {
			return k.Time
		}
	}
	return fallback
}

// Timeline is the planned video composition.
type Timeline struct {
	Tracks       []Track
	Instructions []LayerInstruction
	// Duration is the exact sum of all clip durations; the timeline covers
	// [0, Duration).
	Duration   time.Duration
	RenderSize Size
}

// BuildTimeline places every clip on its own track, back to back in input
// order, and derives one layer instruction per track. A nil layout uses
// ReferenceLayout.
//
// Any clip without video aborts the build; no partial timeline is returned.
func BuildTimeline(clips []Clip, render Size, layout LayoutStrategy) (*Timeline, error) {
	if len(clips) == 0 {
		return nil, ErrNoClips
	}
	if render.Width <= 0 || render.Height <= 0 {
		return nil, fmt.Errorf("%w: %vx%v", ErrInvalidRenderSize, render.Width, render.Height)
	}
	if layout == nil {
		layout = ReferenceLayout{}
	}

	tracks := make([]Track, 0, len(clips))
	var offset time.Duration
	for i, c := range clips {
		if !c.HasVideo() {
			return nil, fmt.Errorf("%w: clip %d (%s)", ErrNoVideoStream, i, c.Source)
		}
		if c.Duration <= 0 {
			return nil, fmt.Errorf("%w: clip %d (%s) has %s", ErrInvalidDuration, i, c.Source, c.Duration)
		}
		tracks = append(tracks, Track{
			Index:    i,
			Clip:     c,
			Offset:   offset,
			Duration: c.Duration,
		})
		offset += c.Duration
	}

	instructions := make([]LayerInstruction, len(tracks))
	last := len(tracks) - 1
	for i, tr := range tracks {
		inst := LayerInstruction{
			TrackIndex: tr.Index,
			Transform:  layout.Transform(*tr.Clip.Video, render),
		}
		if i != last {
			inst.Opacity = []OpacityKeyframe{{Time: tr.End(), Opacity: 0}}
		}
		instructions[i] = inst
	}

	return &Timeline{
		Tracks:       tracks,
		Instructions: instructions,
		Duration:     offset,
		RenderSize:   render,
	}, nil
}
