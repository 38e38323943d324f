package svgpath

import (
	"math"

	"plotarm/pkg/geometry"
)

// curve is a parametric piece of a path on t ∈ [0, 1].
type curve interface {
	at(t float64) geometry.Point
	deriv(t float64) geometry.Point
	deriv2(t float64) geometry.Point
}

type line struct {
	p0, p1 geometry.Point
}

func (l line) at(t float64) geometry.Point {
	return geometry.Point{X: l.p0.X + (l.p1.X-l.p0.X)*t, Y: l.p0.Y + (l.p1.Y-l.p0.Y)*t}
}

func (l line) deriv(t float64) geometry.Point {
	return l.p1.Minus(l.p0)
}

func (l line) deriv2(t float64) geometry.Point {
	return geometry.Point{}
}

type quadratic struct {
	p0, p1, p2 geometry.Point
}

func (q quadratic) at(t float64) geometry.Point {
	mt := 1 - t
	return geometry.Point{
		X: mt*mt*q.p0.X + 2*mt*t*q.p1.X + t*t*q.p2.X,
		Y: mt*mt*q.p0.Y + 2*mt*t*q.p1.Y + t*t*q.p2.Y,
	}
}

func (q quadratic) deriv(t float64) geometry.Point {
	mt := 1 - t
	return geometry.Point{
		X: 2*mt*(q.p1.X-q.p0.X) + 2*t*(q.p2.X-q.p1.X),
		Y: 2*mt*(q.p1.Y-q.p0.Y) + 2*t*(q.p2.Y-q.p1.Y),
	}
}

func (q quadratic) deriv2(t float64) geometry.Point {
	return geometry.Point{
		X: 2 * (q.p2.X - 2*q.p1.X + q.p0.X),
		Y: 2 * (q.p2.Y - 2*q.p1.Y + q.p0.Y),
	}
}

type cubic struct {
	p0, p1, p2, p3 geometry.Point
}

func (c cubic) at(t float64) geometry.Point {
	mt := 1 - t
	a, b, cc, d := mt*mt*mt, 3*mt*mt*t, 3*mt*t*t, t*t*t
	return geometry.Point{
		X: a*c.p0.X + b*c.p1.X + cc*c.p2.X + d*c.p3.X,
		Y: a*c.p0.Y + b*c.p1.Y + cc*c.p2.Y + d*c.p3.Y,
	}
}

func (c cubic) deriv(t float64) geometry.Point {
	mt := 1 - t
	a, b, cc := 3*mt*mt, 6*mt*t, 3*t*t
	return geometry.Point{
		X: a*(c.p1.X-c.p0.X) + b*(c.p2.X-c.p1.X) + cc*(c.p3.X-c.p2.X),
		Y: a*(c.p1.Y-c.p0.Y) + b*(c.p2.Y-c.p1.Y) + cc*(c.p3.Y-c.p2.Y),
	}
}

func (c cubic) deriv2(t float64) geometry.Point {
	mt := 1 - t
	return geometry.Point{
		X: 6*mt*(c.p2.X-2*c.p1.X+c.p0.X) + 6*t*(c.p3.X-2*c.p2.X+c.p1.X),
		Y: 6*mt*(c.p2.Y-2*c.p1.Y+c.p0.Y) + 6*t*(c.p3.Y-2*c.p2.Y+c.p1.Y),
	}
}

// arc is an elliptical arc in center parameterization.
type arc struct {
	center       geometry.Point
	rx, ry       float64
	cosPhi       float64
	sinPhi       float64
	theta, delta float64
}

func (a arc) rotate(x, y float64) geometry.Point {
	return geometry.Point{X: a.cosPhi*x - a.sinPhi*y, Y: a.sinPhi*x + a.cosPhi*y}
}

func (a arc) at(t float64) geometry.Point {
	th := a.theta + t*a.delta
	return a.center.Add(a.rotate(a.rx*math.Cos(th), a.ry*math.Sin(th)))
}

func (a arc) deriv(t float64) geometry.Point {
	th := a.theta + t*a.delta
	return a.rotate(-a.rx*math.Sin(th), a.ry*math.Cos(th)).Scale(a.delta)
}

func (a arc) deriv2(t float64) geometry.Point {
	th := a.theta + t*a.delta
	return a.rotate(-a.rx*math.Cos(th), -a.ry*math.Sin(th)).Scale(a.delta * a.delta)
}

// newArc converts the endpoint parameterization used in path data into a
// center parameterization, as described in the SVG implementation notes
// (F.6.5 and F.6.6). ok is false when the arc degenerates to a line or to
// nothing at all.
func newArc(p0, p1 geometry.Point, rx, ry, rotation float64, largeArc, sweep bool) (c arc, ok bool) {
	if p0 == p1 {
		return arc{}, false
	}
	rx, ry = math.Abs(rx), math.Abs(ry)
	if rx == 0 || ry == 0 {
		return arc{}, false
	}
	phi := rotation * math.Pi / 180
	c.cosPhi, c.sinPhi = math.Cos(phi), math.Sin(phi)

	dx2, dy2 := (p0.X-p1.X)/2, (p0.Y-p1.Y)/2
	x1 := c.cosPhi*dx2 + c.sinPhi*dy2
	y1 := -c.sinPhi*dx2 + c.cosPhi*dy2

	// Scale up radii that are too small to span the endpoints.
	lambda := x1*x1/(rx*rx) + y1*y1/(ry*ry)
	if lambda > 1 {
		s := math.Sqrt(lambda)
		rx *= s
		ry *= s
	}

	num := rx*rx*ry*ry - rx*rx*y1*y1 - ry*ry*x1*x1
	den := rx*rx*y1*y1 + ry*ry*x1*x1
	coef := 0.0
	if num > 0 && den > 0 {
		coef = math.Sqrt(num / den)
	}
	if largeArc == sweep {
		coef = -coef
	}
	cx1 := coef * rx * y1 / ry
	cy1 := -coef * ry * x1 / rx

	c.center = geometry.Point{
		X: c.cosPhi*cx1 - c.sinPhi*cy1 + (p0.X+p1.X)/2,
		Y: c.sinPhi*cx1 + c.cosPhi*cy1 + (p0.Y+p1.Y)/2,
	}
	c.rx, c.ry = rx, ry

	angle := func(ux, uy, vx, vy float64) float64 {
		a := math.Atan2(uy, ux)
		b := math.Atan2(vy, vx)
		return b - a
	}
	ux, uy := (x1-cx1)/rx, (y1-cy1)/ry
	vx, vy := (-x1-cx1)/rx, (-y1-cy1)/ry
	c.theta = angle(1, 0, ux, uy)
	delta := math.Mod(angle(ux, uy, vx, vy), 2*math.Pi)
	if !sweep && delta > 0 {
		delta -= 2 * math.Pi
	} else if sweep && delta < 0 {
		delta += 2 * math.Pi
	}
	c.delta = delta
	return c, true
}

// curvature returns |x'y” - y'x”| / |v|³ at t. A vanishing derivative, such
// as a control point sitting on an endpoint, is reported as infinitely
// curved so the sampler falls back to its minimum step.
func curvature(c curve, t float64) float64 {
	d1 := c.deriv(t)
	d2 := c.deriv2(t)
	speed := d1.Magnitude()
	if speed == 0 {
		return math.Inf(1)
	}
	return math.Abs(d1.CrossProductZ(d2)) / (speed * speed * speed)
}

const arcLengthSteps = 64

// arcLength approximates the length of c by summing chords.
func arcLength(c curve) float64 {
	length := 0.0
	prev := c.at(0)
	for i := 1; i <= arcLengthSteps; i++ {
		p := c.at(float64(i) / arcLengthSteps)
		length += prev.Distance(p)
		prev = p
	}
	return length
}

// sample emits points along c, excluding its start point. The parameter
// advances by max(minArc, thr/κ(t)) / L until it reaches 1; the end point is
// always emitted. Straight pieces have zero curvature and emit only their end.
func sample(c curve, thr, minArc float64) geometry.Polyline {
	var points geometry.Polyline
	length := arcLength(c)
	if length > 0 {
		t := 0.0
		for t < 1 {
			step := math.Max(minArc, thr/curvature(c, t))
			if !(step > 0) {
				step = length
			}
			t = math.Min(t+step/length, 1)
			if t < 1 {
				points = append(points, c.at(t))
			}
		}
	}
	return append(points, c.at(1))
}

// Flatten turns a sub path into a polyline. The first point is the sub
// path's start; every drawing command adds the points sampled along it.
func Flatten(path *SubPath, thr, minArc float64) geometry.Polyline {
	current := geometry.Point{X: path.X, Y: path.Y}
	points := geometry.Polyline{current}
	for _, drawTo := range path.DrawTo {
		end := geometry.Point{X: drawTo.X, Y: drawTo.Y}
		var c curve
		switch drawTo.Command {
		case CurveTo:
			c = cubic{
				p0: current,
				p1: geometry.Point{X: drawTo.X1, Y: drawTo.Y1},
				p2: geometry.Point{X: drawTo.X2, Y: drawTo.Y2},
				p3: end,
			}
		case QuadTo:
			c = quadratic{
				p0: current,
				p1: geometry.Point{X: drawTo.X1, Y: drawTo.Y1},
				p2: end,
			}
		case ArcTo:
			if a, ok := newArc(current, end, drawTo.RX, drawTo.RY, drawTo.Rotation, drawTo.LargeArc, drawTo.Sweep); ok {
				c = a
			} else {
				c = line{p0: current, p1: end}
			}
		default:
			c = line{p0: current, p1: end}
		}
		points = append(points, sample(c, thr, minArc)...)
		// land exactly on the end point so coincident paths still join
		points[len(points)-1] = end
		current = end
	}
	return points
}
