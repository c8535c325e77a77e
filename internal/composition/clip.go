package composition

import (
	"errors"
	"fmt"
	"time"
)

// Static errors for composition planning.
var (
	// ErrNoClips is returned when the clip list is empty.
	ErrNoClips = errors.New("composition: no clips provided")
	// ErrNilClip is returned when the clip list contains a missing entry.
	ErrNilClip = errors.New("composition: clip list contains a missing entry")
	// ErrNoVideoStream is returned when a clip carries no video media.
	ErrNoVideoStream = errors.New("composition: clip has no video stream")
	// ErrNoAudioStream is returned when an asset carries no audio media.
	ErrNoAudioStream = errors.New("composition: asset has no audio stream")
	// ErrInvalidDuration is returned when a clip duration is not positive.
	ErrInvalidDuration = errors.New("composition: clip duration must be positive")
	// ErrInvalidRenderSize is returned when the render size is not positive.
	ErrInvalidRenderSize = errors.New("composition: render size must be positive")
	// ErrNilTimeline is returned when the audio mix is built without a timeline.
	ErrNilTimeline = errors.New("composition: nil timeline")
)

// Clip is a loaded video asset. It is read-only once loaded and only borrowed
// for the duration of one merge.
type Clip struct {
	// Source locates the asset, typically a file path.
	Source string
	// Duration of the asset.
	Duration time.Duration
	// Video is nil when the asset has no video media.
	Video *VideoStream
	// Audio is nil when the asset has no audio media.
	Audio *AudioStream
}

// VideoStream describes the video media of a clip.
type VideoStream struct {
	// NaturalSize is the encoded frame size before the preferred transform.
	NaturalSize Size
	// PreferredTransform is the display transform stored in the container.
	PreferredTransform Transform
}

// AudioStream describes the audio media of a clip.
type AudioStream struct {
	SampleRate int
	Channels   int
}

// HasVideo reports whether the clip carries video media.
func (c Clip) HasVideo() bool {
	return c.Video != nil
}

// HasAudio reports whether the clip carries audio media.
func (c Clip) HasAudio() bool {
	return c.Audio != nil
}

// IsValid reports whether clips is non-empty and has no missing entries.
func IsValid(clips []*Clip) bool {
	if len(clips) == 0 {
		return false
	}
	for _, c := range clips {
		if c == nil {
			return false
		}
	}
	return true
}

// ValidateClips checks clips and, in the same pass, copies them into a list
// of values. Later stages only ever see the returned copy, so a caller
// mutating its own slice after the check cannot reintroduce a missing entry.
func ValidateClips(clips []*Clip) ([]Clip, error) {
	if len(clips) == 0 {
		return nil, ErrNoClips
	}
	out := make([]Clip, len(clips))
	for i, c := range clips {
		if c == nil {
			return nil, fmt.Errorf("%w: index %d", ErrNilClip, i)
		}
		out[i] = *c
	}
	return out, nil
}
