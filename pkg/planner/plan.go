package planner

import (
	"fmt"

	"plotarm/pkg/geometry"
)

// Plan is the result of planning: ordered document space strokes.
type Plan struct {
	Segments       []geometry.Polyline
	CutDistance    float64
	TravelDistance float64
}

// New flattens the objects, joins touching segments and orders the result.
func New(objects []Placed, mode OrderMode) (*Plan, error) {
	segs := Join(Flatten(objects))
	ordered, err := Order(segs, mode)
	if err != nil {
		return nil, fmt.Errorf("planning failed: %w", err)
	}
	plan := &Plan{Segments: ordered}
	plan.CutDistance, plan.TravelDistance = Distances(ordered)
	tracer().Infof("planned %d segments (%s): cut %.1f mm, travel %.1f mm",
		len(ordered), mode, plan.CutDistance, plan.TravelDistance)
	return plan, nil
}
