package document_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plotarm/pkg/document"
	"plotarm/pkg/gcode"
	"plotarm/pkg/geometry"
	"plotarm/pkg/importer"
	"plotarm/pkg/planner"
)

type recorder struct {
	events []string
}

func (r *recorder) Selected(o *document.Object)   { r.events = append(r.events, "selected "+o.Name) }
func (r *recorder) Deselected(o *document.Object) { r.events = append(r.events, "deselected "+o.Name) }

func TestObjectBounds(t *testing.T) {
	o := document.NewObject("square", []geometry.Polyline{
		{{X: 0, Y: 0}, {X: 10, Y: 0}},
		{{X: 10, Y: 5}, {X: -2, Y: 3}},
	})
	assert.NotEqual(t, uuid.Nil, o.ID)
	assert.Equal(t, geometry.Rect{Min: geometry.Point{X: -2, Y: 0}, Max: geometry.Point{X: 10, Y: 5}}, o.Bounds())
	assert.Equal(t, geometry.Point{X: 4, Y: 2.5}, o.Center())

	o.MoveBy(150, -10)
	assert.Equal(t, geometry.Rect{Min: geometry.Point{X: 148, Y: -10}, Max: geometry.Point{X: 160, Y: -5}}, o.Bounds())
	o.MoveBy(1, 1)
	assert.Equal(t, geometry.Point{X: 155, Y: -6.5}, o.Center())

	want := []geometry.Polyline{
		{{X: 151, Y: -9}, {X: 161, Y: -9}},
		{{X: 161, Y: -4}, {X: 149, Y: -6}},
	}
	if diff := cmp.Diff(want, o.Absolute()); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	// Local segments are untouched.
	assert.Equal(t, geometry.Point{X: 0, Y: 0}, o.Segments()[0][0])

	o.Move(geometry.Scale(2, 2))
	assert.Equal(t, geometry.Point{X: 20, Y: 10}, o.Bounds().Max)
}

func TestEmptyObject(t *testing.T) {
	o := document.NewObject("empty", nil)
	assert.Equal(t, geometry.Rect{}, o.Bounds())
	assert.Equal(t, geometry.Point{}, o.Center())
}

func TestObserver(t *testing.T) {
	o := document.NewObject("a", nil)
	o.Select() // no observer

	first, second := &recorder{}, &recorder{}
	o.SetObserver(first)
	o.Select()
	o.SetObserver(second)
	o.Deselect()
	o.SetObserver(nil)
	o.Select()

	assert.Equal(t, []string{"selected a"}, first.events)
	assert.Equal(t, []string{"deselected a"}, second.events)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestImportAndProgram(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()

	d := document.New()
	id, err := d.ImportObject(writeFile(t, "a.plt", "IN;PU0,0;PD49.6,0;PU0,0"), importer.Auto)
	require.NoError(t, err)

	o, ok := d.Object(id)
	require.True(t, ok)
	assert.Equal(t, "a.plt", o.Name)

	// (0,105)-(0,104) is out of reach until it is moved into the envelope.
	_, err = d.Program()
	var coordErr *gcode.CoordinateError
	require.True(t, errors.As(err, &coordErr))

	o.MoveBy(150, -100)
	program, err := d.Program()
	require.NoError(t, err)
	assert.Equal(t, "G0 X150.00 Y5.00 Z81.50 F1000.00", program.Lines()[0])

	_, err = d.ImportObject(writeFile(t, "b.svg", `<svg><circle r="3"/></svg>`), importer.Auto)
	var formatErr *importer.FormatError
	require.True(t, errors.As(err, &formatErr))
	assert.Len(t, d.Objects, 1)

	require.NoError(t, d.Remove(id))
	assert.Error(t, d.Remove(id))
	_, err = d.Program()
	assert.ErrorIs(t, err, gcode.ErrEmptyProgram)
}

func TestPlanUsesOrder(t *testing.T) {
	d := document.New()
	d.Add(document.NewObject("a", []geometry.Polyline{{{X: 200, Y: 0}, {X: 210, Y: 0}}}))
	d.Add(document.NewObject("b", []geometry.Polyline{{{X: 150, Y: 0}, {X: 151, Y: 0}}}))

	d.Order = planner.ByXAsc
	plan, err := d.Plan()
	require.NoError(t, err)
	assert.Equal(t, 150.0, plan.Segments[0][0].X)

	d.Order = 9
	_, err = d.Plan()
	assert.ErrorIs(t, err, planner.ErrUnknownOrder)
}

func TestSaveLoad(t *testing.T) {
	d := document.New()
	d.Params.Mode = gcode.Draw
	d.Params.Lift = 12
	d.Order = planner.ByYDesc
	o := document.NewObject("a", []geometry.Polyline{{{X: 1, Y: 2}, {X: 3, Y: 4}}})
	o.MoveBy(150, 0)
	d.Add(o)

	var buf bytes.Buffer
	require.NoError(t, d.Save(&buf))
	assert.Contains(t, buf.String(), `"mode": "draw"`)
	assert.NotContains(t, buf.String(), "bounds")

	loaded, err := document.Load(&buf)
	require.NoError(t, err)
	assert.Equal(t, d.Params, loaded.Params)
	assert.Equal(t, d.Order, loaded.Order)
	require.Len(t, loaded.Objects, 1)
	got := loaded.Objects[0]
	assert.Equal(t, o.ID, got.ID)
	assert.Equal(t, o.Name, got.Name)
	assert.Equal(t, o.Transform(), got.Transform())
	assert.Equal(t, o.Bounds(), got.Bounds())
	assert.Equal(t, o.Segments(), got.Segments())

	path := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, d.SaveFile(path))
	opened, err := document.Open(path)
	require.NoError(t, err)
	assert.Len(t, opened.Objects, 1)
}

func TestLoadErrors(t *testing.T) {
	id := uuid.New().String()
	for _, in := range []string{
		`not json`,
		`{"version": 7}`,
		`{"version": 1, "params": {"mode": "spray"}}`,
		`{"version": 1, "objects": [{"id": "` + id + `"}, {"id": "` + id + `"}]}`,
	} {
		_, err := document.Load(bytes.NewBufferString(in))
		assert.Error(t, err, in)
	}
}

func TestOpenImports(t *testing.T) {
	d, err := document.Open(writeFile(t, "drawing.plt", "IN;PU0,0;PD49.6,0;PU0,0"))
	require.NoError(t, err)
	require.Len(t, d.Objects, 1)
	assert.Equal(t, gcode.DefaultParams(), d.Params)

	_, err = document.Open(writeFile(t, "broken.plt", "PU0,0"))
	assert.Error(t, err)
}
