// Package document holds the placed objects of a plot and the machine
// parameters they are planned with.
package document

import (
	"github.com/google/uuid"

	"plotarm/pkg/geometry"
)

// Observer is told when its object is selected or deselected.
type Observer interface {
	Selected(o *Object)
	Deselected(o *Object)
}

// Object is imported artwork placed in the document by an affine transform.
// Segments are kept in the object's local coordinates.
type Object struct {
	ID   uuid.UUID
	Name string

	segs      []geometry.Polyline
	transform geometry.Matrix
	bounds    geometry.Rect
	center    geometry.Point
	observer  Observer
}

// NewObject places segs at the identity transform.
func NewObject(name string, segs []geometry.Polyline) *Object {
	o := &Object{
		ID:   uuid.New(),
		Name: name,
		segs: segs,
	}
	o.Move(geometry.Identity())
	return o
}

// Segments returns the local segments.
func (o *Object) Segments() []geometry.Polyline {
	return o.segs
}

func (o *Object) Transform() geometry.Matrix {
	return o.transform
}

// Move replaces the transform.
func (o *Object) Move(m geometry.Matrix) {
	o.transform = m
	o.update()
}

// MoveBy shifts the object by dx, dy in document space.
func (o *Object) MoveBy(dx, dy float64) {
	o.Move(geometry.Translate(dx, dy).Multiply(o.transform))
}

// update recomputes bounds and center from the transformed points.
func (o *Object) update() {
	r := geometry.EmptyRect()
	for _, seg := range o.segs {
		for _, p := range seg {
			r = r.Extend(o.transform.Apply(p))
		}
	}
	if r.IsEmpty() {
		r = geometry.Rect{}
	}
	o.bounds = r
	o.center = r.Center()
}

// Bounds is the bounding box in document space.
func (o *Object) Bounds() geometry.Rect {
	return o.bounds
}

func (o *Object) Center() geometry.Point {
	return o.center
}

// Absolute returns the segments mapped to document space.
func (o *Object) Absolute() []geometry.Polyline {
	out := make([]geometry.Polyline, len(o.segs))
	for i, seg := range o.segs {
		out[i] = o.transform.ApplyAll(seg)
	}
	return out
}

// SetObserver replaces the observer; nil removes it.
func (o *Object) SetObserver(observer Observer) {
	o.observer = observer
}

func (o *Object) Select() {
	if o.observer != nil {
		o.observer.Selected(o)
	}
}

func (o *Object) Deselect() {
	if o.observer != nil {
		o.observer.Deselected(o)
	}
}
