package importer

import (
	"encoding/xml"
	"io"

	"plotarm/pkg/cfg"
	"plotarm/pkg/geometry"
	"plotarm/pkg/svgpath"
)

// svgNode is the subset of an SVG element the importer looks at.
type svgNode struct {
	XMLName   xml.Name
	ID        string     `xml:"id,attr,omitempty"`
	D         string     `xml:"d,attr,omitempty"`
	Transform string     `xml:"transform,attr,omitempty"`
	Children  []*svgNode `xml:",any"`
}

var unsupportedElements = map[string]bool{
	"polyline": true,
	"polygon":  true,
	"line":     true,
	"ellipse":  true,
	"circle":   true,
	"rect":     true,
}

// ImportSVG reads the path elements of an SVG document. Each sub path
// becomes one segment.
func ImportSVG(r io.Reader) ([]geometry.Polyline, error) {
	var root svgNode
	if err := xml.NewDecoder(r).Decode(&root); err != nil {
		return nil, formatErrorf("svg", "%v", err)
	}
	importer := &svgImporter{
		thr:      cfg.CurveThreshold,
		minArc:   cfg.CurveMinArc,
		simplify: cfg.SimplifyTolerance,
	}
	// x' = 297 - y, y' = 105 - x
	toDocument := geometry.Matrix{
		A: 0, B: -1,
		C: -1, D: 0,
		E: cfg.SVGOffsetX, F: cfg.SVGOffsetY,
	}
	if err := importer.descend(&root, toDocument); err != nil {
		return nil, err
	}
	return importer.segs, nil
}

type svgImporter struct {
	thr      float64
	minArc   float64
	simplify float64
	segs     []geometry.Polyline
}

// descend walks the element tree. parent maps the element's coordinate
// system to document space.
func (s *svgImporter) descend(node *svgNode, parent geometry.Matrix) error {
	name := node.XMLName.Local
	if unsupportedElements[name] {
		return formatErrorf("svg", "<%s> element is unsupported, convert to paths", name)
	}
	transform := parent
	if node.Transform != "" {
		m, err := svgpath.ParseTransform(node.Transform)
		if err != nil {
			return formatErrorf("svg", "element %q: %v", node.ID, err)
		}
		transform = parent.Multiply(m)
	}
	if name == "path" {
		if err := s.addPath(node, transform); err != nil {
			return err
		}
	}
	for _, child := range node.Children {
		if err := s.descend(child, transform); err != nil {
			return err
		}
	}
	return nil
}

func (s *svgImporter) addPath(node *svgNode, transform geometry.Matrix) error {
	paths, err := svgpath.Parse(node.D)
	if err != nil {
		return formatErrorf("svg", "path %q: %v", node.ID, err)
	}
	for _, path := range paths {
		line := transform.ApplyAll(svgpath.Flatten(path, s.thr, s.minArc))
		if s.simplify > 0 {
			line = line.Simplify(s.simplify)
		}
		s.segs = append(s.segs, line)
	}
	tracer().Debugf("path %q: %d sub paths", node.ID, len(paths))
	return nil
}
