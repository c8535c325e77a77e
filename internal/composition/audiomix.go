package composition

import (
	"fmt"
	"time"
)

// AudioMode selects how the output audio track is produced.
type AudioMode int

const (
	// AudioSynthesized builds the audio track from each clip's own audio.
	AudioSynthesized AudioMode = iota
	// AudioExplicit inserts one external audio asset.
	AudioExplicit
)

// String returns the mode name.
func (m AudioMode) String() string {
	switch m {
	case AudioSynthesized:
		return "synthesized"
	case AudioExplicit:
		return "explicit"
	default:
		return "unknown"
	}
}

// AudioSegment places audio from Source on the output audio track.
type AudioSegment struct {
	Source string
	// Offset is where the segment starts on the output timeline.
	Offset time.Duration
	// Duration is the length taken from the start of Source.
	Duration time.Duration
}

// VolumeRamp is a linear gain change from From to To over
// [Start, Start+Duration].
type VolumeRamp struct {
	Start    time.Duration
	Duration time.Duration
	From     float64
	To       float64
}

// AudioMix is the planned audio track of a merge.
type AudioMix struct {
	Mode     AudioMode
	Segments []AudioSegment
	Ramps    []VolumeRamp
}

// HasMixSpec reports whether the mix carries volume automation. Without it
// the audio plays at constant volume.
func (m *AudioMix) HasMixSpec() bool {
	return m != nil && len(m.Ramps) > 0
}

// AudioOptions configures BuildAudioMix.
type AudioOptions struct {
	// Audio is the explicit audio asset. Nil synthesizes audio from the clips.
	Audio *Clip
	// Offset is the explicit audio start on the output timeline.
	Offset time.Duration
	// Fade is the fade-in and fade-out window for explicit audio. Zero
	// disables fading.
	Fade time.Duration
}

// BuildAudioMix plans the audio track for tl.
//
// With an explicit asset, one segment spans the whole timeline from
// opts.Offset. The asset is expected to last at least tl.Duration; that is not
// checked here. Without one, each clip contributes its own audio at its video
// track's offset, and a single clip lacking audio fails the whole mix.
func BuildAudioMix(tl *Timeline, opts AudioOptions) (*AudioMix, error) {
	if tl == nil {
		return nil, ErrNilTimeline
	}
	if opts.Audio != nil {
		return explicitMix(tl, opts)
	}
	return synthesizedMix(tl)
}

func explicitMix(tl *Timeline, opts AudioOptions) (*AudioMix, error) {
	a := opts.Audio
	if !a.HasAudio() {
		return nil, fmt.Errorf("%w: %s", ErrNoAudioStream, a.Source)
	}

	d := tl.Duration
	mix := &AudioMix{
		Mode: AudioExplicit,
		Segments: []AudioSegment{{
			Source:   a.Source,
			Offset:   opts.Offset,
			Duration: d,
		}},
	}

	fade := opts.Fade
	if fade > d {
		fade = d
	}
	if fade > 0 {
		mix.Ramps = []VolumeRamp{
			{Start: 0, Duration: fade, From: 0, To: 1},
			{Start: d - fade, Duration: fade, From: 1, To: 0},
		}
	}
	return mix, nil
}

func synthesizedMix(tl *Timeline) (*AudioMix, error) {
	segments := make([]AudioSegment, 0, len(tl.Tracks))
	for _, tr := range tl.Tracks {
		if !tr.Clip.HasAudio() {
			return nil, fmt.Errorf("%w: clip %d (%s)", ErrNoAudioStream, tr.Index, tr.Clip.Source)
		}
		segments = append(segments, AudioSegment{
			Source:   tr.Clip.Source,
			Offset:   tr.Offset,
			Duration: tr.Duration,
		})
	}
	return &AudioMix{Mode: AudioSynthesized, Segments: segments}, nil
}
