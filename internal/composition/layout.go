package composition

import "math"

// LayoutStrategy derives the fit transform that maps a clip's natural frame
// onto the render canvas.
type LayoutStrategy interface {
	Transform(v VideoStream, render Size) Transform
}

// LayoutFunc adapts a plain function to LayoutStrategy.
type LayoutFunc func(v VideoStream, render Size) Transform

// Transform calls f.
func (f LayoutFunc) Transform(v VideoStream, render Size) Transform {
	return f(v, render)
}

// ReferenceLayout fits clips by render width only.
//
// Portrait sources scale by render width over natural height; landscape sources
// scale by render width over natural width and are pushed down by half the
// render width. Upside-down landscape sources use a dedicated rotate and
// offset correction instead. The formula was tuned against real footage and
// is not guaranteed to center every rotation/aspect combination; FitLayout is
// the geometric alternative.
type ReferenceLayout struct{}

var _ LayoutStrategy = ReferenceLayout{}

// Transform implements LayoutStrategy.
func (ReferenceLayout) Transform(v VideoStream, render Size) Transform {
	orientation, portrait := Classify(v.PreferredTransform)
	natural := v.NaturalSize

	if portrait {
		ratio := render.Width / natural.Height
		return v.PreferredTransform.Concat(Scale(ratio, ratio))
	}

	ratio := render.Width / natural.Width
	if orientation == OrientationDown {
		return Rotate(math.Pi).
			Concat(Translate(natural.Width, natural.Height+render.Height)).
			Concat(Scale(ratio, ratio))
	}
	return v.PreferredTransform.
		Concat(Scale(ratio, ratio)).
		Concat(Translate(0, render.Width/2))
}

// FitLayout applies the preferred transform, scales the displayed frame
// uniformly to fit inside the render size and centers it. Works for any
// preferred transform, including arbitrary angles.
type FitLayout struct{}

var _ LayoutStrategy = FitLayout{}

// Transform implements LayoutStrategy.
func (FitLayout) Transform(v VideoStream, render Size) Transform {
	bounds := v.PreferredTransform.Bounds(v.NaturalSize)
	if bounds.Width <= 0 || bounds.Height <= 0 {
		return Identity
	}

	scale := math.Min(render.Width/bounds.Width, render.Height/bounds.Height)
	offsetX := (render.Width - bounds.Width*scale) / 2
	offsetY := (render.Height - bounds.Height*scale) / 2

	return v.PreferredTransform.
		Concat(Translate(-bounds.X, -bounds.Y)).
		Concat(Scale(scale, scale)).
		Concat(Translate(offsetX, offsetY))
}

// LayoutByName returns the strategy registered under name: "reference" or
// "fit". ok is false for unknown names.
func LayoutByName(name string) (LayoutStrategy, bool) {
	switch name {
	case "", "reference":
		return ReferenceLayout{}, true
	case "fit":
		return FitLayout{}, true
	default:
		return nil, false
	}
}
