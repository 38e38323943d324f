package importer

import (
	"io"
	"strconv"
	"strings"

	"plotarm/pkg/cfg"
	"plotarm/pkg/geometry"
)

// ImportPlot reads plot-command instructions. Pen-up starts a new segment,
// pen-down extends the current one.
func ImportPlot(r io.Reader) ([]geometry.Polyline, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	instructions := strings.Split(string(data), ";")
	for i := range instructions {
		instructions[i] = strings.TrimSpace(instructions[i])
	}
	if instructions[0] != "IN" {
		return nil, formatErrorf("plot", "missing IN instruction")
	}

	var (
		segs    []geometry.Polyline
		current geometry.Polyline
		open    bool
		point   geometry.Point
	)
	for _, instruction := range instructions[1:] {
		if len(instruction) < 2 {
			continue
		}
		op := instruction[:2]
		if op != "PU" && op != "PD" {
			continue
		}
		points := []geometry.Point{point}
		if operands := strings.TrimSpace(instruction[2:]); operands != "" {
			if points, err = parsePlotPoints(operands); err != nil {
				return nil, err
			}
		}
		point = points[len(points)-1]
		if op == "PU" {
			if open {
				segs = append(segs, current)
			}
			// Pen-up travels through every pair; only where it stops matters.
			current = geometry.Polyline{point}
			open = true
			continue
		}
		if !open {
			current = geometry.Polyline{points[0]}
			points = points[1:]
			open = true
		}
		current = append(current, points...)
	}
	// current is never flushed: the trailing pen-up only parks the pen.

	// A pen-up followed by another pen-up leaves a single-point lead-in.
	if len(segs) > 0 && len(segs[0]) < 2 {
		segs = segs[1:]
	}
	return segs, nil
}

// parsePlotPoints reads a comma-separated list of x,y pairs.
func parsePlotPoints(operands string) ([]geometry.Point, error) {
	fields := strings.Split(operands, ",")
	if len(fields)%2 != 0 {
		return nil, formatErrorf("plot", "want x,y pairs, got %q", operands)
	}
	points := make([]geometry.Point, 0, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		var v [2]float64
		for j, field := range fields[i : i+2] {
			f, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, formatErrorf("plot", "bad operand %q", field)
			}
			v[j] = f
		}
		points = append(points, geometry.Point{
			X: v[1] / cfg.PlotUnit,
			Y: cfg.PlotOffsetY - v[0]/cfg.PlotUnit,
		})
	}
	return points, nil
}
