package planner

import (
	"math"

	"plotarm/pkg/geometry"
)

// Join fuses segments whose end point coincides exactly with another
// segment's start point. segs is left untouched.
func Join(segs []geometry.Polyline) []geometry.Polyline {
	out := make([]geometry.Polyline, len(segs))
	for i, seg := range segs {
		out[i] = seg.Clone()
	}

	// dist[i][j] is the gap from the end of i to the start of j.
	dist := make([][]float64, len(out))
	for i := range out {
		dist[i] = make([]float64, len(out))
		for j := range out {
			if i == j {
				dist[i][j] = math.Inf(1)
			} else {
				dist[i][j] = out[i].Last().Distance(out[j].First())
			}
		}
	}

	for {
		i, j, found := firstZero(dist)
		if !found {
			break
		}
		out[i] = append(out[i], out[j][1:]...)
		// i now ends where j ended.
		dist[i] = dist[j]
		dist[i][i] = math.Inf(1)

		dist = append(dist[:j], dist[j+1:]...)
		for k := range dist {
			dist[k] = append(dist[k][:j], dist[k][j+1:]...)
		}
		out = append(out[:j], out[j+1:]...)
	}
	if len(out) != len(segs) {
		tracer().Debugf("joined %d segments into %d", len(segs), len(out))
	}
	return out
}

func firstZero(dist [][]float64) (int, int, bool) {
	for i, row := range dist {
		for j, d := range row {
			if d == 0 {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}
