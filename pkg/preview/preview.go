// Package preview renders a planned toolpath as a PNG image.
package preview

import (
	"errors"
	"image/color"
	"io"
	"math"

	"github.com/fogleman/gg"

	"plotarm/pkg/geometry"
	"plotarm/pkg/planner"
)

// Options control the rendering. Zero values pick the defaults.
type Options struct {
	// Scale in pixels per millimeter.
	Scale float64
	// Margin around the drawing, in pixels.
	Margin float64
	// LineWidth of strokes, in pixels.
	LineWidth float64
	// HideTravel leaves out the moves between segments.
	HideTravel bool
}

var (
	cutColor    = color.Black
	travelColor = color.RGBA{R: 0xc9, G: 0x00, B: 0xce, A: 0xff}
)

var ErrNothingToRender = errors.New("plan has no segments")

const maxPixels = 8192

func (o Options) withDefaults() Options {
	if o.Scale <= 0 {
		o.Scale = 4
	}
	if o.Margin <= 0 {
		o.Margin = 10
	}
	if o.LineWidth <= 0 {
		o.LineWidth = 1
	}
	return o
}

// Render draws the plan's segments solid and the travel between them dashed.
// Document x runs left to right and y bottom to top.
func Render(plan *planner.Plan, w io.Writer, opts Options) error {
	if plan == nil || len(plan.Segments) == 0 {
		return ErrNothingToRender
	}
	opts = opts.withDefaults()
	bounds := geometry.Bounds(plan.Segments)

	scale := opts.Scale
	if longest := math.Max(bounds.Width(), bounds.Height()) * scale; longest > maxPixels {
		scale *= maxPixels / longest
	}
	width := int(math.Ceil(bounds.Width()*scale + 2*opts.Margin))
	height := int(math.Ceil(bounds.Height()*scale + 2*opts.Margin))
	toImage := func(p geometry.Point) (float64, float64) {
		return (p.X-bounds.Min.X)*scale + opts.Margin, (bounds.Max.Y-p.Y)*scale + opts.Margin
	}

	dc := gg.NewContext(width, height)
	dc.SetColor(color.White)
	dc.Clear()
	dc.SetLineWidth(opts.LineWidth)

	if !opts.HideTravel {
		dc.SetColor(travelColor)
		dc.SetDash(4, 4)
		for i := 1; i < len(plan.Segments); i++ {
			x1, y1 := toImage(plan.Segments[i-1].Last())
			x2, y2 := toImage(plan.Segments[i].First())
			dc.DrawLine(x1, y1, x2, y2)
			dc.Stroke()
		}
		dc.SetDash()
	}

	dc.SetColor(cutColor)
	for _, seg := range plan.Segments {
		if len(seg) == 1 {
			x, y := toImage(seg[0])
			dc.DrawPoint(x, y, opts.LineWidth)
			dc.Fill()
			continue
		}
		for i, p := range seg {
			x, y := toImage(p)
			if i == 0 {
				dc.MoveTo(x, y)
			} else {
				dc.LineTo(x, y)
			}
		}
		dc.Stroke()
	}
	return dc.EncodePNG(w)
}
