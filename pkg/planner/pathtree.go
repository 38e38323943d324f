package planner

import (
	"math"

	"github.com/asim/quadtree"

	"plotarm/pkg/geometry"
)

// lookups use a tiny box and compare coordinates exactly.
var lookupHalf = quadtree.NewPoint(1e-9, 1e-9, nil)

// endpoint names one end of a segment.
type endpoint struct {
	index int
	last  bool
}

func (e endpoint) before(other endpoint) bool {
	if e.index != other.index {
		return e.index < other.index
	}
	return !e.last && other.last
}

// pathTree indexes segment endpoints. Coincident endpoints share one tree
// point whose data is the set of endpoints sitting there.
type pathTree struct {
	quadTree *quadtree.QuadTree
	segs     []geometry.Polyline
	center   geometry.Point
	extent   float64
	count    int
}

func newPathTree(segs []geometry.Polyline) *pathTree {
	bounds := geometry.Bounds(segs)
	center := bounds.Center()
	halfWidth := bounds.Width()/2 + 10
	halfHeight := bounds.Height()/2 + 10

	aabb := quadtree.NewAABB(
		quadtree.NewPoint(center.X, center.Y, nil),
		quadtree.NewPoint(halfWidth, halfHeight, nil))
	t := &pathTree{
		quadTree: quadtree.New(aabb, 0, nil),
		segs:     segs,
		center:   center,
		extent:   2 * math.Max(halfWidth, halfHeight),
	}
	for i := range segs {
		t.add(endpoint{index: i})
		t.add(endpoint{index: i, last: true})
	}
	return t
}

func (t *pathTree) position(e endpoint) geometry.Point {
	if e.last {
		return t.segs[e.index].Last()
	}
	return t.segs[e.index].First()
}

// lookup returns the tree point sitting exactly at p, if any.
func (t *pathTree) lookup(p geometry.Point) *quadtree.Point {
	points := t.quadTree.Search(quadtree.NewAABB(quadtree.NewPoint(p.X, p.Y, nil), lookupHalf))
	for _, point := range points {
		x, y := point.Coordinates()
		if x == p.X && y == p.Y {
			return point
		}
	}
	return nil
}

func (t *pathTree) add(e endpoint) {
	p := t.position(e)
	if point := t.lookup(p); point != nil {
		point.Data().(map[endpoint]struct{})[e] = struct{}{}
	} else {
		t.quadTree.Insert(quadtree.NewPoint(p.X, p.Y, map[endpoint]struct{}{e: {}}))
	}
	t.count++
}

// removeSegment drops both endpoints of segment i.
func (t *pathTree) removeSegment(i int) {
	for _, e := range []endpoint{{index: i}, {index: i, last: true}} {
		point := t.lookup(t.position(e))
		if point == nil {
			continue
		}
		endpoints := point.Data().(map[endpoint]struct{})
		if _, found := endpoints[e]; !found {
			continue
		}
		delete(endpoints, e)
		t.count--
		if len(endpoints) == 0 {
			t.quadTree.Remove(point)
		}
	}
}

// search returns the best endpoint within the square of the given half size
// around p, and its distance.
func (t *pathTree) search(p geometry.Point, half float64) (endpoint, float64, bool) {
	aabb := quadtree.NewAABB(
		quadtree.NewPoint(p.X, p.Y, nil),
		quadtree.NewPoint(half, half, nil))
	var (
		best     endpoint
		bestDist = math.Inf(1)
		found    bool
	)
	for _, point := range t.quadTree.Search(aabb) {
		x, y := point.Coordinates()
		d := p.Distance(geometry.Point{X: x, Y: y})
		for e := range point.Data().(map[endpoint]struct{}) {
			if !found || d < bestDist || (d == bestDist && e.before(best)) {
				best, bestDist, found = e, d, true
			}
		}
	}
	return best, bestDist, found
}

// nearest finds the endpoint closest to p. The search square grows until it
// holds a candidate; a second search with the candidate's distance as half
// size catches closer points that sat outside the first square's corners.
func (t *pathTree) nearest(p geometry.Point) (endpoint, bool) {
	if t.count == 0 {
		return endpoint{}, false
	}
	half := t.extent / 64
	for {
		_, d, found := t.search(p, half)
		if found {
			best, _, _ := t.search(p, d*(1+1e-9)+1e-9)
			return best, true
		}
		if half > t.extent+p.Distance(t.center) {
			return endpoint{}, false
		}
		half *= 2
	}
}
