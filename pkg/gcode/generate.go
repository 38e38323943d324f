package gcode

import (
	"errors"
	"fmt"
	"strings"

	"github.com/npillmayer/schuko/tracing"

	"plotarm/pkg/cfg"
	"plotarm/pkg/geometry"
)

func tracer() tracing.Trace {
	return tracing.Select("plotarm.gcode")
}

// Mode selects the tool.
type Mode int

const (
	Burn Mode = iota
	Draw
)

func (m Mode) String() string {
	if m == Draw {
		return "draw"
	}
	return "burn"
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	mode, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// DeviceMode is the controller's work mode number for m.
func (m Mode) DeviceMode() int {
	if m == Draw {
		return 3
	}
	return 1
}

// ParseMode accepts "burn" and "draw".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "burn", "laser":
		return Burn, nil
	case "draw", "pen":
		return Draw, nil
	}
	return Burn, fmt.Errorf("unknown mode %q", s)
}

// Params are the machine settings a program is generated with.
type Params struct {
	WorkHeight float64 `json:"height"`
	Feed       float64 `json:"feed"`
	TravelFeed float64 `json:"travel_feed"`
	ZOffset    float64 `json:"z_offset"`
	Lift       float64 `json:"lift"`
	Mode       Mode    `json:"mode"`
}

func DefaultParams() Params {
	return Params{
		WorkHeight: 0,
		Feed:       100,
		TravelFeed: 1000,
		ZOffset:    81.5,
		Lift:       10,
		Mode:       Burn,
	}
}

// Reachable envelope of the arm, in millimeters.
const (
	MinX = 132.0
	MaxX = 300.0
	MinY = -200.0
	MaxY = 200.0
	MinZ = -100.0
)

var ErrEmptyProgram = errors.New("nothing to plot")

// CoordinateError reports a point outside the reachable envelope.
type CoordinateError struct {
	Point geometry.Point
	Z     float64
}

func (e *CoordinateError) Error() string {
	return fmt.Sprintf("invalid coordinates (%.2f, %.2f, %.2f)", e.Point.X, e.Point.Y, e.Z)
}

func checkCoords(p geometry.Point, z float64) error {
	if p.X < MinX || p.X > MaxX || p.Y < MinY || p.Y > MaxY || z < MinZ {
		return &CoordinateError{Point: p, Z: z}
	}
	return nil
}

// Validate checks every point of segs against the envelope at the heights
// p will use, and returns the first violation.
func Validate(segs []geometry.Polyline, p Params) error {
	z := p.WorkHeight + p.ZOffset
	for _, seg := range segs {
		for _, v := range seg {
			if err := checkCoords(v, z); err != nil {
				return err
			}
			if p.Mode == Draw {
				if err := checkCoords(v, z+p.Lift); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Generate builds the program for the ordered segments. Nothing is
// generated unless every point is reachable.
func Generate(segs []geometry.Polyline, p Params) (*Program, error) {
	if len(segs) == 0 {
		return nil, ErrEmptyProgram
	}
	if err := Validate(segs, p); err != nil {
		tracer().Errorf("program rejected: %v", err)
		return nil, err
	}

	z := p.WorkHeight + p.ZOffset
	var g generator
	for _, seg := range segs {
		if len(seg) == 0 {
			continue
		}
		if p.Mode == Draw {
			g.draw(seg, z, p)
		} else {
			g.burn(seg, z, p)
		}
	}
	if len(g.commands) == 0 {
		return nil, ErrEmptyProgram
	}
	if p.Mode == Burn {
		g.move(CodeMove, g.start, z, p.TravelFeed)
	}
	tracer().Infof("generated %d commands (%s)", len(g.commands), p.Mode)
	return &Program{Commands: g.commands, Count: len(g.commands)}, nil
}

type generator struct {
	commands []Command
	start    geometry.Point
}

func (g *generator) move(code string, v geometry.Point, z, f float64) {
	g.commands = append(g.commands, Command{Code: code, X: v.X, Y: v.Y, Z: z, F: f})
}

func (g *generator) dwell(ms float64) {
	if ms > 0 {
		g.commands = append(g.commands, Command{Code: CodeDwell, P: ms})
	}
}

func (g *generator) burn(seg geometry.Polyline, z float64, p Params) {
	first := seg.First()
	if len(g.commands) == 0 {
		g.start = first
	}
	g.move(CodeMove, first, z, p.TravelFeed)
	g.dwell(cfg.BurnDwellStart)
	g.move(CodeBurn, first, z, p.Feed/2)
	for _, v := range seg[1:] {
		g.move(CodeBurn, v, z, p.Feed)
	}
	g.move(CodeBurn, seg.Last(), z, p.Feed)
	g.dwell(cfg.BurnDwellEnd)
}

func (g *generator) draw(seg geometry.Polyline, z float64, p Params) {
	first := seg.First()
	g.move(CodeMove, first, z+p.Lift, p.TravelFeed)
	g.move(CodeMove, first, z, p.TravelFeed)
	for _, v := range seg[1:] {
		g.move(CodeMove, v, z, p.Feed)
	}
	g.move(CodeMove, seg.Last(), z+p.Lift, p.Feed)
}
