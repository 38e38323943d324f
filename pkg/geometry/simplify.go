package geometry

// Simplify simplifies the polyline using the Douglas-Peucker algorithm.
// Points closer than epsilon to the chord they would be dropped from are
// removed; the first and last point always survive.
func (points Polyline) Simplify(epsilon float64) Polyline {
	if len(points) < 2 {
		return points.Clone()
	}

	// find the point with the max distance from the line segment between the first and last points
	firstPoint, lastPoint := points[0], points[len(points)-1]
	chord := LineSegment{A: firstPoint, B: lastPoint}
	if len(points) == 2 {
		return Polyline{firstPoint, lastPoint}
	}

	dmax := 0.0
	index := 0
	for i := 1; i < len(points)-1; i++ {
		d := chord.Distance(points[i])
		if d > dmax {
			index = i
			dmax = d
		}
	}

	if dmax < epsilon {
		return Polyline{firstPoint, lastPoint}
	}

	// note: need to be careful on the recursive step to not call with < 2 points
	recResults1 := points[:index+1].Simplify(epsilon)
	recResults2 := points[index:].Simplify(epsilon)

	return append(recResults1[:len(recResults1)-1], recResults2...)
}
