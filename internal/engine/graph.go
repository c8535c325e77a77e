package engine

import (
	"fmt"
	"math"
	"strconv"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/maauso/clipmerge-api/internal/composition"
)

// axisEpsilon is the tolerance under which a matrix coefficient counts as zero.
const axisEpsilon = 1e-9

// buildArgs translates a request into an ffmpeg command line.
//
// Each track is trimmed to its visible window, transformed, and overlaid on a
// black canvas of the render size. The per-track canvases are then
// concatenated. Audio segments are delayed to their offsets and mixed, and
// volume ramps become fades.
func buildArgs(req Request, preset string) (args []string, err error) {
	// ffmpeg-go reports malformed graphs by panicking.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: build filter graph: %v", ErrInvalidRequest, r)
		}
	}()

	video, err := videoGraph(req)
	if err != nil {
		return nil, err
	}
	audio, err := audioGraph(req.AudioMix)
	if err != nil {
		return nil, err
	}

	fileType := req.Output.FileType
	if fileType == "" {
		fileType = FileTypeMP4
	}
	kwargs := ffmpeg.KwArgs{
		"c:v":     "libx264",
		"preset":  preset,
		"pix_fmt": "yuv420p",
		"c:a":     "aac",
		"b:a":     "192k",
		"r":       req.FrameDuration.Rate(),
		"t":       seconds(req.Timeline.Duration),
		"f":       string(fileType),
	}
	if req.Output.OptimizeForNetwork {
		kwargs["movflags"] = "+faststart"
	}

	out := ffmpeg.Output([]*ffmpeg.Stream{video, audio}, req.Output.Path, kwargs).OverWriteOutput()

	args = []string{"-hide_banner", "-nostats", "-progress", "pipe:1"}
	return append(args, out.GetArgs()...), nil
}

func videoGraph(req Request) (*ffmpeg.Stream, error) {
	tl := req.Timeline
	width, height := pixels(req.RenderSize.Width), pixels(req.RenderSize.Height)
	rate := req.FrameDuration.Rate()

	instructions := make(map[int]composition.LayerInstruction, len(tl.Instructions))
	for _, inst := range tl.Instructions {
		instructions[inst.TrackIndex] = inst
	}

	parts := make([]*ffmpeg.Stream, 0, len(tl.Tracks))
	for _, tr := range tl.Tracks {
		if tr.Clip.Video == nil {
			return nil, fmt.Errorf("%w: track %d has no video", ErrInvalidRequest, tr.Index)
		}
		inst, ok := instructions[tr.Index]
		if !ok {
			inst = composition.LayerInstruction{TrackIndex: tr.Index, Transform: composition.Identity}
		}

		visible := inst.VisibleUntil(tl.Duration) - tr.Offset
		if visible > tr.Duration {
			visible = tr.Duration
		}
		if visible <= 0 {
			continue
		}

		clip := sourceInput(tr.Clip.Source).Video().
			Filter("trim", ffmpeg.Args{}, ffmpeg.KwArgs{"start": "0", "duration": seconds(visible)}).
			Filter("setpts", ffmpeg.Args{"PTS-STARTPTS"})
		placed, box := transformStream(clip, inst.Transform, tr.Clip.Video.NaturalSize)

		canvas := ffmpeg.Input(
			fmt.Sprintf("color=c=black:s=%dx%d:r=%s:d=%s", width, height, rate, seconds(visible)),
			ffmpeg.KwArgs{"f": "lavfi"},
		)
		part := ffmpeg.Filter([]*ffmpeg.Stream{canvas, placed}, "overlay", ffmpeg.Args{}, ffmpeg.KwArgs{
			"x":          strconv.Itoa(int(math.Round(box.X))),
			"y":          strconv.Itoa(int(math.Round(box.Y))),
			"eof_action": "pass",
		}).
			Filter("setsar", ffmpeg.Args{"1"}).
			Filter("format", ffmpeg.Args{"yuv420p"})
		parts = append(parts, part)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: timeline has no visible tracks", ErrInvalidRequest)
	}

	return ffmpeg.Concat(parts, ffmpeg.KwArgs{"v": 1, "a": 0}), nil
}

// sourceInput opens a clip or audio file with autorotation off. The layer
// transform already carries the file's rotation, so ffmpeg must decode the
// natural frame. Audio and video of one file share the same input.
func sourceInput(src string) *ffmpeg.Stream {
	return ffmpeg.Input(src, ffmpeg.KwArgs{"noautorotate": ""})
}

// transformStream applies the linear part of t to s and scales the result to
// the transformed bounding box, which it also returns. Axis-aligned and
// quarter-turn matrices map to lossless flips and transposes; anything else
// goes through the rotate filter.
func transformStream(s *ffmpeg.Stream, t composition.Transform, natural composition.Size) (*ffmpeg.Stream, composition.Rect) {
	box := t.Bounds(natural)

	switch {
	case nearZero(t.B) && nearZero(t.C):
		if t.A < 0 {
			s = s.Filter("hflip", ffmpeg.Args{})
		}
		if t.D < 0 {
			s = s.Filter("vflip", ffmpeg.Args{})
		}
	case nearZero(t.A) && nearZero(t.D):
		s = s.Filter("transpose", ffmpeg.Args{}, ffmpeg.KwArgs{"dir": transposeDir(t)})
	default:
		linear := t
		if t.Determinant() < 0 {
			s = s.Filter("hflip", ffmpeg.Args{})
			linear = composition.Scale(-1, 1).Concat(t)
		}
		angle := strconv.FormatFloat(math.Atan2(linear.B, linear.A), 'f', 6, 64)
		s = s.Filter("rotate", ffmpeg.Args{}, ffmpeg.KwArgs{
			"a":  angle,
			"ow": "rotw(" + angle + ")",
			"oh": "roth(" + angle + ")",
			"c":  "black",
		})
	}

	s = s.Filter("scale", ffmpeg.Args{}, ffmpeg.KwArgs{
		"w": strconv.Itoa(pixels(box.Width)),
		"h": strconv.Itoa(pixels(box.Height)),
	})
	return s, box
}

// transposeDir picks the transpose filter direction for a quarter-turn matrix.
func transposeDir(t composition.Transform) string {
	switch {
	case t.B > 0 && t.C < 0:
		return "clock"
	case t.B < 0 && t.C > 0:
		return "cclock"
	case t.B > 0 && t.C > 0:
		return "cclock_flip"
	default:
		return "clock_flip"
	}
}

func audioGraph(mix *composition.AudioMix) (*ffmpeg.Stream, error) {
	if mix == nil || len(mix.Segments) == 0 {
		return nil, fmt.Errorf("%w: audio mix has no segments", ErrInvalidRequest)
	}

	parts := make([]*ffmpeg.Stream, 0, len(mix.Segments))
	for _, seg := range mix.Segments {
		a := sourceInput(seg.Source).Audio().
			Filter("atrim", ffmpeg.Args{}, ffmpeg.KwArgs{"start": "0", "duration": seconds(seg.Duration)}).
			Filter("asetpts", ffmpeg.Args{"PTS-STARTPTS"})
		if seg.Offset > 0 {
			a = a.Filter("adelay", ffmpeg.Args{}, ffmpeg.KwArgs{
				"delays": strconv.FormatInt(seg.Offset.Milliseconds(), 10),
				"all":    "1",
			})
		}
		parts = append(parts, a)
	}

	out := parts[0]
	if len(parts) > 1 {
		out = ffmpeg.Filter(parts, "amix", ffmpeg.Args{}, ffmpeg.KwArgs{
			"inputs":             strconv.Itoa(len(parts)),
			"duration":           "longest",
			"dropout_transition": "0",
			"normalize":          "0",
		})
	}

	for _, r := range mix.Ramps {
		var kind string
		switch {
		case r.From == 0 && r.To == 1:
			kind = "in"
		case r.From == 1 && r.To == 0:
			kind = "out"
		default:
			return nil, fmt.Errorf("%w: %.2f to %.2f", ErrUnsupportedRamp, r.From, r.To)
		}
		out = out.Filter("afade", ffmpeg.Args{}, ffmpeg.KwArgs{
			"t":  kind,
			"st": seconds(r.Start),
			"d":  seconds(r.Duration),
		})
	}
	return out, nil
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 6, 64)
}

func pixels(v float64) int {
	p := int(math.Round(v))
	if p < 1 {
		return 1
	}
	return p
}

func nearZero(v float64) bool {
	return math.Abs(v) < axisEpsilon
}
