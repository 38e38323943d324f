package svgpath_test

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"plotarm/pkg/geometry"
	"plotarm/pkg/svgpath"
)

func TestBasic(t *testing.T) {
	subPaths, err := svgpath.Parse(" \t\r\nM1.e2 2. 1 .2.3 0.4e2 z L 7 8 9 10 H 11 12 13 L 2 2v5C 5 6 7 8 9 10")
	if err != nil {
		t.Errorf("parsing failed: %s", err)
	}
	expected := []*svgpath.SubPath{
		{X: 100, Y: 2, DrawTo: []*svgpath.DrawTo{
			{Command: svgpath.LineTo, X: 1, Y: .2},
			{Command: svgpath.LineTo, X: .3, Y: 40},
			{Command: svgpath.ClosePath, X: 100, Y: 2},
		}},
		{X: 100, Y: 2, DrawTo: []*svgpath.DrawTo{
			{Command: svgpath.LineTo, X: 7, Y: 8},
			{Command: svgpath.LineTo, X: 9, Y: 10},
			{Command: svgpath.LineTo, X: 11, Y: 10},
			{Command: svgpath.LineTo, X: 12, Y: 10},
			{Command: svgpath.LineTo, X: 13, Y: 10},
			{Command: svgpath.LineTo, X: 2, Y: 2},
			{Command: svgpath.LineTo, X: 2, Y: 7},
			{Command: svgpath.CurveTo, X: 9, Y: 10, X1: 5, Y1: 6, X2: 7, Y2: 8},
		}},
	}
	if diff := cmp.Diff(expected, subPaths); diff != "" {
		t.Errorf("incorrect output: %s", diff)
	}
}

func TestRelativeAndSmoothCommands(t *testing.T) {
	subPaths, err := svgpath.Parse("m10 10 5 0 c1 0 2 1 2 2 s1 2 2 2 q1-1 2 0 t2 0 a5,5 0 0,1 10 0")
	if err != nil {
		t.Fatalf("parsing failed: %s", err)
	}
	expected := []*svgpath.SubPath{
		{X: 10, Y: 10, DrawTo: []*svgpath.DrawTo{
			{Command: svgpath.LineTo, X: 15, Y: 10},
			{Command: svgpath.CurveTo, X: 17, Y: 12, X1: 16, Y1: 10, X2: 17, Y2: 11},
			// reflection of (17, 11) through (17, 12)
			{Command: svgpath.CurveTo, X: 19, Y: 14, X1: 17, Y1: 13, X2: 18, Y2: 14},
			{Command: svgpath.QuadTo, X: 21, Y: 14, X1: 20, Y1: 13},
			// reflection of (20, 13) through (21, 14)
			{Command: svgpath.QuadTo, X: 23, Y: 14, X1: 22, Y1: 15},
			{Command: svgpath.ArcTo, X: 33, Y: 14, RX: 5, RY: 5, Sweep: true},
		}},
	}
	if diff := cmp.Diff(expected, subPaths); diff != "" {
		t.Errorf("incorrect output: %s", diff)
	}
}

func TestParseErrors(t *testing.T) {
	for _, input := range []string{
		"M 1",
		"M 1 2 L",
		"M 1 2 X 3",
		"M 1 2 A 1 1 0 2 0 3 3",
	} {
		if _, err := svgpath.Parse(input); err == nil {
			t.Errorf("Parse(%q) should have failed", input)
		}
	}
}

func TestParseTransform(t *testing.T) {
	tests := []struct {
		transform string
		in, want  geometry.Point
	}{
		{"", geometry.Point{X: 1, Y: 2}, geometry.Point{X: 1, Y: 2}},
		{"translate(10)", geometry.Point{X: 1, Y: 2}, geometry.Point{X: 11, Y: 2}},
		{"translate(10, 20) scale(2)", geometry.Point{X: 1, Y: 2}, geometry.Point{X: 12, Y: 24}},
		{"matrix(1 0 0 1 5 6)", geometry.Point{X: 1, Y: 2}, geometry.Point{X: 6, Y: 8}},
		{"rotate(90)", geometry.Point{X: 1, Y: 0}, geometry.Point{X: 0, Y: 1}},
		{"rotate(180 1 1)", geometry.Point{X: 2, Y: 1}, geometry.Point{X: 0, Y: 1}},
		{"skewX(45)", geometry.Point{X: 0, Y: 1}, geometry.Point{X: 1, Y: 1}},
		{"skewY(45),scale(1,2)", geometry.Point{X: 1, Y: 0}, geometry.Point{X: 1, Y: 1}},
	}
	for _, test := range tests {
		m, err := svgpath.ParseTransform(test.transform)
		if err != nil {
			t.Errorf("ParseTransform(%q) failed: %s", test.transform, err)
			continue
		}
		got := m.Apply(test.in)
		if diff := cmp.Diff(test.want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
			t.Errorf("ParseTransform(%q) incorrect output: %s", test.transform, diff)
		}
	}

	for _, bad := range []string{"rotate(1 2)", "spin(3)", "matrix(1 2 3)", "translate(1"} {
		if _, err := svgpath.ParseTransform(bad); err == nil {
			t.Errorf("ParseTransform(%q) should have failed", bad)
		}
	}
}

func TestFlattenLines(t *testing.T) {
	subPaths, err := svgpath.Parse("M0 0 L10 0 10 10 Z")
	if err != nil {
		t.Fatalf("parsing failed: %s", err)
	}
	got := svgpath.Flatten(subPaths[0], 0.02, 0.05)
	want := geometry.Polyline{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 0}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("incorrect output: %s", diff)
	}
}

func TestFlattenArc(t *testing.T) {
	// half circle of radius 10 around (10, 0)
	subPaths, err := svgpath.Parse("M0 0 A10 10 0 0 1 20 0")
	if err != nil {
		t.Fatalf("parsing failed: %s", err)
	}
	got := svgpath.Flatten(subPaths[0], 0.02, 0.05)
	if len(got) < 10 {
		t.Fatalf("expected the arc to be sampled, got %d points", len(got))
	}
	if got[len(got)-1] != (geometry.Point{X: 20, Y: 0}) {
		t.Errorf("last point = %v, want exactly (20, 0)", got[len(got)-1])
	}
	for _, p := range got {
		r := p.Distance(geometry.Point{X: 10, Y: 0})
		if math.Abs(r-10) > 1e-6 {
			t.Errorf("point %v is %g away from the center, want 10", p, r)
		}
	}
}

func TestFlattenCubicIsBounded(t *testing.T) {
	subPaths, err := svgpath.Parse("M0 0 C0 10 10 10 10 0")
	if err != nil {
		t.Fatalf("parsing failed: %s", err)
	}
	coarse := svgpath.Flatten(subPaths[0], 0.5, 0.5)
	fine := svgpath.Flatten(subPaths[0], 0.02, 0.05)
	if len(fine) <= len(coarse) {
		t.Errorf("smaller thresholds should give more points: fine %d, coarse %d", len(fine), len(coarse))
	}
	// every step covers at least minArc of the curve's length, which is
	// bounded by the length of its control polygon
	if len(fine) > 2+int(30/0.05) {
		t.Errorf("too many points: %d", len(fine))
	}
	if fine[0] != (geometry.Point{}) || fine[len(fine)-1] != (geometry.Point{X: 10, Y: 0}) {
		t.Errorf("endpoints not preserved: %v ... %v", fine[0], fine[len(fine)-1])
	}
}
