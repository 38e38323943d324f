package planner

import (
	"errors"
	"fmt"
	"sort"

	"plotarm/pkg/geometry"
)

// OrderMode selects how segments are sequenced. Zero and negative values
// select the greedy nearest neighbour walk.
type OrderMode int

const (
	ByNearest OrderMode = 0
	ByXAsc    OrderMode = 1
	ByXDesc   OrderMode = 2
	ByYAsc    OrderMode = 3
	ByYDesc   OrderMode = 4
)

func (m OrderMode) String() string {
	switch {
	case m <= ByNearest:
		return "greedy"
	case m == ByXAsc:
		return "x-asc"
	case m == ByXDesc:
		return "x-desc"
	case m == ByYAsc:
		return "y-asc"
	case m == ByYDesc:
		return "y-desc"
	}
	return fmt.Sprintf("order(%d)", int(m))
}

var ErrUnknownOrder = errors.New("unknown order mode")

// Visit is one step of an ordering: segment Index, drawn backwards when
// Reversed is set.
type Visit struct {
	Index    int
	Reversed bool
}

// Greedy starts with the longest segment and keeps walking to the
// closest endpoint of a segment not drawn yet. A segment reached at its last
// point is drawn reversed. Every index is visited exactly once.
func Greedy(segs []geometry.Polyline) []Visit {
	if len(segs) == 0 {
		return nil
	}
	start := 0
	for i, seg := range segs {
		if seg.Length() > segs[start].Length() {
			start = i
		}
	}

	tree := newPathTree(segs)
	visits := make([]Visit, 0, len(segs))
	visit := func(v Visit) geometry.Point {
		tree.removeSegment(v.Index)
		visits = append(visits, v)
		if v.Reversed {
			return segs[v.Index].First()
		}
		return segs[v.Index].Last()
	}

	current := visit(Visit{Index: start})
	for len(visits) < len(segs) {
		e, found := tree.nearest(current)
		if !found {
			// Unreachable while the tree and the visit list agree.
			panic("planner: endpoint index out of sync")
		}
		current = visit(Visit{Index: e.index, Reversed: e.last})
	}
	return visits
}

// AxisSort orders segments by the coordinate of their first point. The sort
// is stable and never reverses a segment.
func AxisSort(segs []geometry.Polyline, mode OrderMode) ([]Visit, error) {
	var less func(a, b geometry.Point) bool
	switch mode {
	case ByXAsc:
		less = func(a, b geometry.Point) bool { return a.X < b.X }
	case ByXDesc:
		less = func(a, b geometry.Point) bool { return a.X > b.X }
	case ByYAsc:
		less = func(a, b geometry.Point) bool { return a.Y < b.Y }
	case ByYDesc:
		less = func(a, b geometry.Point) bool { return a.Y > b.Y }
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownOrder, mode)
	}
	visits := make([]Visit, len(segs))
	for i := range segs {
		visits[i] = Visit{Index: i}
	}
	sort.SliceStable(visits, func(i, j int) bool {
		return less(segs[visits[i].Index].First(), segs[visits[j].Index].First())
	})
	return visits, nil
}

// Visits computes the ordering selected by mode.
func Visits(segs []geometry.Polyline, mode OrderMode) ([]Visit, error) {
	if mode <= ByNearest {
		return Greedy(segs), nil
	}
	return AxisSort(segs, mode)
}

// Order returns copies of segs in drawing order, reversed where the ordering
// says so.
func Order(segs []geometry.Polyline, mode OrderMode) ([]geometry.Polyline, error) {
	visits, err := Visits(segs, mode)
	if err != nil {
		return nil, err
	}
	ordered := make([]geometry.Polyline, len(visits))
	for i, v := range visits {
		if v.Reversed {
			ordered[i] = segs[v.Index].Reversed()
		} else {
			ordered[i] = segs[v.Index].Clone()
		}
	}
	return ordered, nil
}

// Distances returns the length drawn along segments and the length
// travelled between them.
func Distances(segs []geometry.Polyline) (cut, travel float64) {
	for i, seg := range segs {
		cut += seg.Length()
		if i > 0 {
			travel += segs[i-1].Last().Distance(seg.First())
		}
	}
	return cut, travel
}
