// Package composition plans a merged video: it validates the input clips,
// lays them out on sequential tracks, derives the per-track fit transforms
// and builds the audio mix. It performs no media I/O; the resulting Timeline
// and AudioMix are handed to an export engine.
package composition

import "math"

// Size is a width/height pair in pixels.
type Size struct {
	Width  float64 `validate:"gt=0"`
	Height float64 `validate:"gt=0"`
}

// Point is a 2D coordinate in pixels, y pointing down.
type Point struct {
	X float64
	Y float64
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Transform is a 2D affine transform using row vectors:
//
//	[x' y' 1] = [x y 1] * | A  B  0 |
//	                      | C  D  0 |
//	                      | Tx Ty 1 |
//
// so x' = A*x + C*y + Tx and y' = B*x + D*y + Ty.
type Transform struct {
	A, B, C, D float64
	Tx, Ty     float64
}

// Identity leaves every point unchanged.
var Identity = Transform{A: 1, D: 1}

// Scale returns a transform scaling by sx horizontally and sy vertically.
func Scale(sx, sy float64) Transform {
	return Transform{A: sx, D: sy}
}

// Translate returns a transform moving every point by (tx, ty).
func Translate(tx, ty float64) Transform {
	return Transform{A: 1, D: 1, Tx: tx, Ty: ty}
}

// Rotate returns a rotation by angle radians. With y pointing down a
// positive angle turns the frame clockwise.
func Rotate(angle float64) Transform {
	sin, cos := math.Sincos(angle)
	return Transform{A: cos, B: sin, C: -sin, D: cos}
}

// Concat returns the transform that applies t first and then u.
func (t Transform) Concat(u Transform) Transform {
	return Transform{
		A:  t.A*u.A + t.B*u.C,
		B:  t.A*u.B + t.B*u.D,
		C:  t.C*u.A + t.D*u.C,
		D:  t.C*u.B + t.D*u.D,
		Tx: t.Tx*u.A + t.Ty*u.C + u.Tx,
		Ty: t.Tx*u.B + t.Ty*u.D + u.Ty,
	}
}

// Apply maps p through t.
func (t Transform) Apply(p Point) Point {
	return Point{
		X: t.A*p.X + t.C*p.Y + t.Tx,
		Y: t.B*p.X + t.D*p.Y + t.Ty,
	}
}

// Determinant of the linear part. Negative values mean the transform mirrors.
func (t Transform) Determinant() float64 {
	return t.A*t.D - t.B*t.C
}

// Bounds returns the bounding box of the rectangle (0, 0, s.Width, s.Height)
// after it is mapped through t.
func (t Transform) Bounds(s Size) Rect {
	corners := [4]Point{
		t.Apply(Point{0, 0}),
		t.Apply(Point{s.Width, 0}),
		t.Apply(Point{0, s.Height}),
		t.Apply(Point{s.Width, s.Height}),
	}
	minX, minY := corners[0].X, corners[0].Y
	maxX, maxY := minX, minY
	for _, c := range corners[1:] {
		minX = math.Min(minX, c.X)
		minY = math.Min(minY, c.Y)
		maxX = math.Max(maxX, c.X)
		maxY = math.Max(maxY, c.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// ApproxEqual reports whether every coefficient of t and u differs by at most eps.
func (t Transform) ApproxEqual(u Transform, eps float64) bool {
	return math.Abs(t.A-u.A) <= eps &&
		math.Abs(t.B-u.B) <= eps &&
		math.Abs(t.C-u.C) <= eps &&
		math.Abs(t.D-u.D) <= eps &&
		math.Abs(t.Tx-u.Tx) <= eps &&
		math.Abs(t.Ty-u.Ty) <= eps
}
