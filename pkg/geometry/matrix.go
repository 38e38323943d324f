package geometry

import (
	"fmt"
	"math"
)

// Matrix is a 3x3 affine transform. The bottom row is always [0 0 1] and is
// not stored:
//
//	⎡ A  C  E ⎤
//	⎢ B  D  F ⎥
//	⎣ 0  0  1 ⎦
type Matrix struct {
	A float64
	B float64
	C float64
	D float64
	E float64
	F float64
}

// Identity maps every point onto itself.
func Identity() Matrix {
	return Matrix{A: 1, D: 1}
}

func Translate(dx, dy float64) Matrix {
	return Matrix{
		A: 1, C: 0, E: dx,
		B: 0, D: 1, F: dy,
	}
}

func Scale(sx, sy float64) Matrix {
	return Matrix{
		A: sx, C: 0, E: 0,
		B: 0, D: sy, F: 0,
	}
}

// Rotate rotates counter-clockwise around the origin. Degrees.
func Rotate(degrees float64) Matrix {
	cos := math.Cos(degrees * math.Pi / 180)
	sin := math.Sin(degrees * math.Pi / 180)
	return Matrix{
		A: cos, C: -sin, E: 0,
		B: sin, D: cos, F: 0,
	}
}

// RotateAround rotates counter-clockwise around c. Degrees.
func RotateAround(degrees float64, c Point) Matrix {
	return Translate(c.X, c.Y).Multiply(Rotate(degrees)).Multiply(Translate(-c.X, -c.Y))
}

// SkewX shears along the x axis. Degrees.
func SkewX(degrees float64) Matrix {
	return Matrix{A: 1, C: math.Tan(degrees * math.Pi / 180), D: 1}
}

// SkewY shears along the y axis. Degrees.
func SkewY(degrees float64) Matrix {
	return Matrix{A: 1, B: math.Tan(degrees * math.Pi / 180), D: 1}
}

// Multiply returns m·other, i.e. other is applied first.
func (m Matrix) Multiply(other Matrix) Matrix {
	return Matrix{
		A: m.A*other.A + m.C*other.B,
		B: m.B*other.A + m.D*other.B,
		C: m.A*other.C + m.C*other.D,
		D: m.B*other.C + m.D*other.D,
		E: m.A*other.E + m.C*other.F + m.E,
		F: m.B*other.E + m.D*other.F + m.F,
	}
}

func (m Matrix) Apply(p Point) Point {
	return Point{
		X: m.A*p.X + m.C*p.Y + m.E,
		Y: m.B*p.X + m.D*p.Y + m.F,
	}
}

// ApplyAll maps every point of line and returns the result as a new polyline.
func (m Matrix) ApplyAll(line Polyline) Polyline {
	out := make(Polyline, len(line))
	for i, p := range line {
		out[i] = m.Apply(p)
	}
	return out
}

// Rows returns the full homogeneous matrix.
func (m Matrix) Rows() [3][3]float64 {
	return [3][3]float64{
		{m.A, m.C, m.E},
		{m.B, m.D, m.F},
		{0, 0, 1},
	}
}

func (m Matrix) String() string {
	return fmt.Sprintf("[%g,%g,%g|%g,%g,%g|0,0,1]", m.A, m.C, m.E, m.B, m.D, m.F)
}
