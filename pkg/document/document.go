package document

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/npillmayer/schuko/tracing"

	"plotarm/pkg/gcode"
	"plotarm/pkg/importer"
	"plotarm/pkg/planner"
)

func tracer() tracing.Trace {
	return tracing.Select("plotarm.document")
}

// Document is an ordered set of objects plus the parameters used to turn
// them into a program. Plans and programs are always derived afresh.
type Document struct {
	Objects []*Object
	Params  gcode.Params
	Order   planner.OrderMode
}

// New returns an empty document with default parameters and greedy ordering.
func New() *Document {
	return &Document{
		Params: gcode.DefaultParams(),
		Order:  planner.ByNearest,
	}
}

// Add appends an object.
func (d *Document) Add(o *Object) {
	d.Objects = append(d.Objects, o)
}

// ImportObject reads a file into a new object. On failure the document is
// left unchanged.
func (d *Document) ImportObject(path string, kind importer.Kind) (uuid.UUID, error) {
	segs, err := importer.Import(path, kind)
	if err != nil {
		return uuid.Nil, err
	}
	o := NewObject(filepath.Base(path), segs)
	d.Add(o)
	tracer().Infof("object %s: %d segments from %s", o.ID, len(segs), path)
	return o.ID, nil
}

// Object looks up an object by ID.
func (d *Document) Object(id uuid.UUID) (*Object, bool) {
	for _, o := range d.Objects {
		if o.ID == id {
			return o, true
		}
	}
	return nil, false
}

// Remove deletes the object with the given ID.
func (d *Document) Remove(id uuid.UUID) error {
	for i, o := range d.Objects {
		if o.ID == id {
			d.Objects = append(d.Objects[:i], d.Objects[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("no object %s", id)
}

// Plan computes the working segments of all objects.
func (d *Document) Plan() (*planner.Plan, error) {
	objects := make([]planner.Placed, len(d.Objects))
	for i, o := range d.Objects {
		objects[i] = o
	}
	return planner.New(objects, d.Order)
}

// Program plans the document and generates its program.
func (d *Document) Program() (*gcode.Program, error) {
	plan, err := d.Plan()
	if err != nil {
		return nil, err
	}
	return gcode.Generate(plan.Segments, d.Params)
}
