// Package planner turns placed objects into an ordered list of strokes.
package planner

import (
	"github.com/npillmayer/schuko/tracing"

	"plotarm/pkg/geometry"
)

func tracer() tracing.Trace {
	return tracing.Select("plotarm.planner")
}

// Placed is an object positioned in the document.
type Placed interface {
	Segments() []geometry.Polyline
	Transform() geometry.Matrix
}

// Flatten maps every segment of every object into document space, keeping
// object order and segment order. Empty segments are skipped.
func Flatten(objects []Placed) []geometry.Polyline {
	var segs []geometry.Polyline
	for _, object := range objects {
		m := object.Transform()
		for _, seg := range object.Segments() {
			if len(seg) == 0 {
				continue
			}
			segs = append(segs, m.ApplyAll(seg))
		}
	}
	return segs
}
