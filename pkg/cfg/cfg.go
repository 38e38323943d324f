package cfg

import "time"

// CurveThreshold is the curvature threshold used when flattening SVG curves.
// The sampler advances by CurveThreshold / curvature along the curve, so
// tighter bends get denser points.
var CurveThreshold = 0.02

// CurveMinArc is the shortest step (mm, in path units) the curve sampler will
// take. It bounds the point count on very tight or degenerate curves.
var CurveMinArc = 0.05

// SimplifyTolerance removes flattened points that lie closer than this to the
// line through their neighbours. Zero keeps every sampled point.
var SimplifyTolerance = 0.0

// PlotUnit is the number of plot-command units per millimeter.
var PlotUnit = 49.6

// Document space sits on the arm's base; imported artwork is flipped into it
// around these offsets.
var (
	PlotOffsetY = 105.0
	SVGOffsetX  = 297.0
	SVGOffsetY  = 105.0
)

// Laser dwell times (ms) before and after each burned segment.
var (
	BurnDwellStart = 500.0
	BurnDwellEnd   = 200.0
)

// PausePollInterval is how often a paused run checks whether it may continue.
var PausePollInterval = 500 * time.Millisecond
