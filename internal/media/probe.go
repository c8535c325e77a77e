package media

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/maauso/clipmerge-api/internal/composition"
)

// probeOutput is the subset of `ffprobe -print_format json` we read.
type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

type probeStream struct {
	CodecType    string            `json:"codec_type"`
	Width        int               `json:"width"`
	Height       int               `json:"height"`
	SampleRate   string            `json:"sample_rate"`
	Channels     int               `json:"channels"`
	Duration     string            `json:"duration"`
	Tags         map[string]string `json:"tags"`
	SideDataList []struct {
		SideDataType string  `json:"side_data_type"`
		Rotation     float64 `json:"rotation"`
	} `json:"side_data_list"`
}

// parseProbe builds a clip from ffprobe JSON output. Only the first video and
// the first audio stream are considered.
func parseProbe(source string, data []byte) (*composition.Clip, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProbeOutput, err)
	}

	clip := &composition.Clip{Source: source}
	var streamDuration string
	for _, s := range out.Streams {
		switch s.CodecType {
		case "video":
			if clip.Video != nil || s.Width <= 0 || s.Height <= 0 {
				continue
			}
			natural := composition.Size{Width: float64(s.Width), Height: float64(s.Height)}
			clip.Video = &composition.VideoStream{
				NaturalSize:        natural,
				PreferredTransform: PreferredTransform(s.rotation(), natural),
			}
			if streamDuration == "" {
				streamDuration = s.Duration
			}
		case "audio":
			if clip.Audio != nil {
				continue
			}
			rate, _ := strconv.Atoi(s.SampleRate)
			clip.Audio = &composition.AudioStream{SampleRate: rate, Channels: s.Channels}
			if streamDuration == "" {
				streamDuration = s.Duration
			}
		}
	}
	if clip.Video == nil && clip.Audio == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoMediaStreams, source)
	}

	d, err := parseSeconds(out.Format.Duration)
	if err != nil || d <= 0 {
		d, err = parseSeconds(streamDuration)
	}
	if err != nil || d <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDuration, source)
	}
	clip.Duration = d

	return clip, nil
}

// rotation returns the clockwise display rotation in degrees. The legacy
// "rotate" tag is clockwise; display matrix side data is counter-clockwise.
func (s probeStream) rotation() int {
	if v, ok := s.Tags["rotate"]; ok {
		if deg, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return deg
		}
	}
	for _, sd := range s.SideDataList {
		if sd.SideDataType == "Display Matrix" {
			return -int(math.Round(sd.Rotation))
		}
	}
	return 0
}

// PreferredTransform returns the display transform of a frame of size natural
// rotated clockwise by degrees. Only quarter turns are supported; any other
// angle yields the identity.
func PreferredTransform(degrees int, natural composition.Size) composition.Transform {
	switch ((degrees % 360) + 360) % 360 {
	case 90:
		return composition.Transform{A: 0, B: 1, C: -1, D: 0, Tx: natural.Height}
	case 180:
		return composition.Transform{A: -1, B: 0, C: 0, D: -1, Tx: natural.Width, Ty: natural.Height}
	case 270:
		return composition.Transform{A: 0, B: -1, C: 1, D: 0, Ty: natural.Width}
	default:
		return composition.Identity
	}
}

// parseSeconds parses ffprobe's decimal seconds ("5.005000") exactly.
func parseSeconds(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "N/A" {
		return 0, ErrUnknownDuration
	}
	return time.ParseDuration(s + "s")
}
