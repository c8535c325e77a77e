package composition

// Orientation is the direction the top of a source frame points to once its
// preferred transform is applied.
type Orientation int

const (
	// OrientationUp is an unrotated frame.
	OrientationUp Orientation = iota
	// OrientationDown is a frame rotated by 180 degrees.
	OrientationDown
	// OrientationLeft is a frame rotated by 270 degrees (90 counter-clockwise).
	OrientationLeft
	// OrientationRight is a frame rotated by 90 degrees clockwise.
	OrientationRight
)

// String returns the lowercase orientation name.
func (o Orientation) String() string {
	switch o {
	case OrientationUp:
		return "up"
	case OrientationDown:
		return "down"
	case OrientationLeft:
		return "left"
	case OrientationRight:
		return "right"
	default:
		return "unknown"
	}
}

// Classify maps a preferred transform onto one of the four canonical
// orientations and reports whether the displayed frame is portrait.
//
// Only the exact quarter-turn rotation matrices are recognised; translation is
// ignored. Every other matrix, including arbitrary angles and mirrored
// transforms, is reported as up/landscape.
func Classify(t Transform) (Orientation, bool) {
	switch {
	case t.A == 0 && t.B == 1 && t.C == -1 && t.D == 0:
		return OrientationRight, true
	case t.A == 0 && t.B == -1 && t.C == 1 && t.D == 0:
		return OrientationLeft, true
	case t.A == 1 && t.B == 0 && t.C == 0 && t.D == 1:
		return OrientationUp, false
	case t.A == -1 && t.B == 0 && t.C == 0 && t.D == -1:
		return OrientationDown, false
	default:
		return OrientationUp, false
	}
}
