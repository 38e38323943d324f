// Package importer reads vector artwork into polylines in document space.
package importer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/npillmayer/schuko/tracing"

	"plotarm/pkg/geometry"
)

func tracer() tracing.Trace {
	return tracing.Select("plotarm.import")
}

// Kind selects the input format.
type Kind int

const (
	Auto Kind = iota
	Plot
	SVG
)

func (k Kind) String() string {
	switch k {
	case Plot:
		return "plot"
	case SVG:
		return "svg"
	}
	return "auto"
}

// FormatError reports malformed or unsupported input.
type FormatError struct {
	Format string
	Msg    string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: %s", e.Format, e.Msg)
}

func formatErrorf(format, msg string, args ...interface{}) error {
	return &FormatError{Format: format, Msg: fmt.Sprintf(msg, args...)}
}

// KindOf guesses the format of a file from its extension.
func KindOf(path string) (Kind, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".plt":
		return Plot, nil
	case ".svg":
		return SVG, nil
	}
	return Auto, fmt.Errorf("%s: unknown file type", path)
}

// Import reads the file at path. Either every segment is returned or an
// error; a failed import never yields partial geometry.
func Import(path string, kind Kind) ([]geometry.Polyline, error) {
	if kind == Auto {
		var err error
		if kind, err = KindOf(path); err != nil {
			return nil, err
		}
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var segs []geometry.Polyline
	switch kind {
	case Plot:
		segs, err = ImportPlot(f)
	case SVG:
		segs, err = ImportSVG(f)
	default:
		return nil, fmt.Errorf("%s: unknown import kind %d", path, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	tracer().Infof("imported %d segments from %s", len(segs), path)
	return segs, nil
}
