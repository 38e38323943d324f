package document

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"plotarm/pkg/gcode"
	"plotarm/pkg/geometry"
	"plotarm/pkg/importer"
	"plotarm/pkg/planner"
)

const formatVersion = 1

// snapshot is the stored form of a document. Derived data such as plans,
// programs and bounds is never stored.
type snapshot struct {
	Version int               `json:"version"`
	Params  gcode.Params      `json:"params"`
	Order   planner.OrderMode `json:"order"`
	Objects []objectSnapshot  `json:"objects"`
}

type objectSnapshot struct {
	ID        uuid.UUID           `json:"id"`
	Name      string              `json:"name"`
	Segments  []geometry.Polyline `json:"segments"`
	Transform geometry.Matrix     `json:"transform"`
}

// Save writes the document as JSON.
func (d *Document) Save(w io.Writer) error {
	s := snapshot{
		Version: formatVersion,
		Params:  d.Params,
		Order:   d.Order,
		Objects: make([]objectSnapshot, len(d.Objects)),
	}
	for i, o := range d.Objects {
		s.Objects[i] = objectSnapshot{
			ID:        o.ID,
			Name:      o.Name,
			Segments:  o.segs,
			Transform: o.transform,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(&s)
}

// Load reads a document written by Save.
func Load(r io.Reader) (*Document, error) {
	var s snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	if s.Version != formatVersion {
		return nil, fmt.Errorf("unsupported document version %d", s.Version)
	}
	d := &Document{Params: s.Params, Order: s.Order}
	seen := map[uuid.UUID]bool{}
	for _, stored := range s.Objects {
		if seen[stored.ID] {
			return nil, fmt.Errorf("duplicate object id %s", stored.ID)
		}
		seen[stored.ID] = true
		o := &Object{ID: stored.ID, Name: stored.Name, segs: stored.Segments}
		o.Move(stored.Transform)
		d.Add(o)
	}
	return d, nil
}

func (d *Document) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := d.Save(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	d, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Open loads a saved document, or imports a .plt or .svg file into a new
// document holding one object.
func Open(path string) (*Document, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".plt", ".svg":
		d := New()
		if _, err := d.ImportObject(path, importer.Auto); err != nil {
			return nil, err
		}
		return d, nil
	}
	return LoadFile(path)
}
