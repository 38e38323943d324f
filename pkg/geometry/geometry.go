package geometry

import (
	"math"
)

// Point is a position in document millimeters.
type Point struct {
	X float64
	Y float64
}

type Vector2 = Point

// Polyline is one continuous stroke. The plotter keeps the pen down (or the
// laser on) from the first point to the last.
type Polyline []Point

// Rect is an axis aligned bounding box.
type Rect struct {
	Min Point
	Max Point
}

type LineSegment struct {
	A Point
	B Point
}

func (a Vector2) Minus(b Vector2) Vector2 {
	return Vector2{
		X: a.X - b.X,
		Y: a.Y - b.Y,
	}
}

func (a Vector2) Add(b Vector2) Vector2 {
	return Vector2{
		X: a.X + b.X,
		Y: a.Y + b.Y,
	}
}

func (v Vector2) Magnitude() float64 {
	return math.Hypot(v.X, v.Y)
}

func (a Vector2) CrossProductZ(b Vector2) float64 {
	return a.X*b.Y - a.Y*b.X
}

// Distance returns the distance between two points.
func (p Point) Distance(other Point) float64 {
	return math.Hypot(p.X-other.X, p.Y-other.Y)
}

// Scale returns the point scaled by the given factor f.
func (p Point) Scale(f float64) Point {
	return Point{X: p.X * f, Y: p.Y * f}
}

// Distance returns the distance between a point and a line segment.
func (s LineSegment) Distance(p Point) float64 {
	AP := p.Minus(s.A)
	AB := s.A.Minus(s.B)
	mAP := AP.Magnitude()
	mBP := p.Minus(s.B).Magnitude()
	mAB := AB.Magnitude()

	if mAB == 0 {
		return mAP
	}
	if mAP > mAB || mBP > mAB {
		// closest point on line is outside segment boundaries, so the closest point
		// is the nearest of the two endpoints.
		return math.Min(mAP, mBP)
	}

	return math.Abs(AP.CrossProductZ(AB)) / mAB
}

// First returns the first point of the polyline.
func (line Polyline) First() Point {
	return line[0]
}

// Last returns the last point of the polyline.
func (line Polyline) Last() Point {
	return line[len(line)-1]
}

// Length is the sum of the distances between consecutive points.
func (line Polyline) Length() float64 {
	d := 0.0
	for i := 1; i < len(line); i++ {
		d += line[i-1].Distance(line[i])
	}
	return d
}

// Reversed returns a reversed copy of the polyline.
func (line Polyline) Reversed() Polyline {
	reversed := make(Polyline, len(line))
	for i, p := range line {
		reversed[len(line)-1-i] = p
	}
	return reversed
}

// Clone returns a copy that shares no storage with line.
func (line Polyline) Clone() Polyline {
	return append(Polyline(nil), line...)
}

// EmptyRect is the bounds of nothing. Extend grows it to fit points.
func EmptyRect() Rect {
	return Rect{
		Min: Point{X: math.Inf(1), Y: math.Inf(1)},
		Max: Point{X: math.Inf(-1), Y: math.Inf(-1)},
	}
}

// Extend returns r grown to contain p. Each axis keeps its own minimum and
// maximum.
func (r Rect) Extend(p Point) Rect {
	r.Min.X = math.Min(r.Min.X, p.X)
	r.Min.Y = math.Min(r.Min.Y, p.Y)
	r.Max.X = math.Max(r.Max.X, p.X)
	r.Max.Y = math.Max(r.Max.Y, p.Y)
	return r
}

// IsEmpty reports whether no point was ever added.
func (r Rect) IsEmpty() bool {
	return r.Min.X > r.Max.X || r.Min.Y > r.Max.Y
}

func (r Rect) Center() Point {
	return Point{
		X: (r.Min.X + r.Max.X) / 2,
		Y: (r.Min.Y + r.Max.Y) / 2,
	}
}

func (r Rect) Width() float64 {
	return r.Max.X - r.Min.X
}

func (r Rect) Height() float64 {
	return r.Max.Y - r.Min.Y
}

// Bounds returns the bounding box of all points of all lines.
func Bounds(lines []Polyline) Rect {
	r := EmptyRect()
	for _, line := range lines {
		for _, p := range line {
			r = r.Extend(p)
		}
	}
	return r
}
