// Package svgpath parses SVG path data and transform attributes and turns
// path geometry into polylines.
package svgpath

import (
	"fmt"
	"strconv"
)

// The grammar follows https://www.w3.org/TR/SVG11/paths.html#PathDataBNF:
//
// svg-path:
//     wsp* moveto-drawto-command-groups? wsp*
// moveto-drawto-command-group:
//     moveto wsp* drawto-commands?
// drawto-command:
//     closepath | lineto | horizontal-lineto | vertical-lineto | curveto
//     | smooth-curveto | quadratic-bezier-curveto
//     | smooth-quadratic-bezier-curveto | elliptical-arc
// elliptical-arc-argument:
//     nonnegative-number comma-wsp? nonnegative-number comma-wsp?
//         number comma-wsp flag comma-wsp? flag comma-wsp? coordinate-pair
// comma-wsp:
//     (wsp+ comma? wsp*) | (comma wsp*)
// number:
//     sign? integer-constant | sign? floating-point-constant
// flag:
//     "0" | "1"

type Command string

const (
	ClosePath Command = "Z"
	LineTo    Command = "L"
	CurveTo   Command = "C"
	QuadTo    Command = "Q"
	ArcTo     Command = "A"
)

// SubPath is one continuous run of drawing commands starting at X, Y.
type SubPath struct {
	X, Y   float64
	DrawTo []*DrawTo
}

// DrawTo is a single drawing command in absolute coordinates. X1/Y1 and
// X2/Y2 are control points for curves; quadratic curves only use X1/Y1.
// Arcs use the radius, rotation and flag fields.
type DrawTo struct {
	Command  Command
	X, Y     float64
	X1, Y1   float64
	X2, Y2   float64
	RX, RY   float64
	Rotation float64
	LargeArc bool
	Sweep    bool
}

type argKind int

const (
	argNumber argKind = iota
	argFlag
)

var (
	pairArgs  = []argKind{argNumber, argNumber}
	oneArg    = []argKind{argNumber}
	quadArgs  = []argKind{argNumber, argNumber, argNumber, argNumber}
	cubicArgs = []argKind{argNumber, argNumber, argNumber, argNumber, argNumber, argNumber}
	arcArgs   = []argKind{argNumber, argNumber, argNumber, argFlag, argFlag, argNumber, argNumber}
)

type state struct {
	data     string
	index    int
	subPaths []*SubPath
	group    *SubPath
	currentX float64
	currentY float64
	relative bool

	// previous control point, for the smooth curve commands
	lastCommand  byte
	lastControlX float64
	lastControlY float64
}

func (s *state) parse() error {
	for {
		s.whitespace()

		c := s.peek()
		if c != 'M' && c != 'm' {
			break
		}

		err := s.parseMoveTo()
		if err != nil {
			return err
		}
		err = s.parseDrawToCommands()
		if err != nil {
			return err
		}
	}

	s.whitespace()

	if s.index != len(s.data) {
		return fmt.Errorf("unparsed data: %q", s.data[s.index:])
	}

	return nil
}

// parseMoveTo parses one move to command. Extra coordinate pairs after the
// first are implicit line to commands.
func (s *state) parseMoveTo() error {
	command := s.next()
	if command != 'M' && command != 'm' {
		return fmt.Errorf("expected \"M\" or \"m\", got %q", string(command))
	}
	s.relative = command == 'm'
	s.whitespace()

	x, y, err := s.parseCoordinatePair()
	if err != nil {
		return err
	}
	if s.relative {
		x += s.currentX
		y += s.currentY
	}
	s.currentX, s.currentY = x, y

	// The move to command always starts a new sub path group
	s.group = &SubPath{X: x, Y: y}
	s.subPaths = append(s.subPaths, s.group)
	s.lastCommand = 'M'

	s.parseArguments(pairArgs, func(args []float64) {
		s.lineTo(args[0], args[1])
	})
	return nil
}

// ensureSubPath starts a new sub path at the current point if there isn't
// already one, which happens for drawing commands following a close path.
func (s *state) ensureSubPath() {
	if s.group == nil {
		s.group = &SubPath{X: s.currentX, Y: s.currentY}
		s.subPaths = append(s.subPaths, s.group)
	}
}

// parseDrawToCommands parses 0 or more Draw To commands.
func (s *state) parseDrawToCommands() error {
	for {
		s.whitespace()

		c := s.peek()
		var err error
		switch c {
		case 'Z', 'z':
			s.next()
			s.closePath()
			continue
		case 'L', 'l':
			err = s.parseCommand(pairArgs, func(args []float64) {
				s.lineTo(args[0], args[1])
			})
		case 'H', 'h':
			err = s.parseCommand(oneArg, func(args []float64) {
				x := args[0]
				if s.relative {
					x += s.currentX
				}
				s.addLine(x, s.currentY)
			})
		case 'V', 'v':
			err = s.parseCommand(oneArg, func(args []float64) {
				y := args[0]
				if s.relative {
					y += s.currentY
				}
				s.addLine(s.currentX, y)
			})
		case 'C', 'c':
			err = s.parseCommand(cubicArgs, func(args []float64) {
				s.curveTo(args[0], args[1], args[2], args[3], args[4], args[5])
			})
		case 'S', 's':
			err = s.parseCommand(quadArgs, func(args []float64) {
				s.smoothCurveTo(args[0], args[1], args[2], args[3])
			})
		case 'Q', 'q':
			err = s.parseCommand(quadArgs, func(args []float64) {
				s.quadTo(args[0], args[1], args[2], args[3])
			})
		case 'T', 't':
			err = s.parseCommand(pairArgs, func(args []float64) {
				s.smoothQuadTo(args[0], args[1])
			})
		case 'A', 'a':
			err = s.parseCommand(arcArgs, func(args []float64) {
				s.arcTo(args[0], args[1], args[2], args[3] != 0, args[4] != 0, args[5], args[6])
			})
		default:
			return nil
		}

		if err != nil {
			return err
		}
	}
}

// parseCommand consumes a command letter followed by one or more argument
// groups, calling apply once per group.
func (s *state) parseCommand(kinds []argKind, apply func(args []float64)) error {
	c := s.next()
	s.relative = 'a' <= c && c <= 'z'
	s.whitespace()
	s.ensureSubPath()

	args, err := s.parseArgumentGroup(kinds)
	if err != nil {
		return fmt.Errorf("command %q: %w", string(c), err)
	}
	apply(args)
	s.lastCommand = c &^ 0x20 // upper case

	s.parseArguments(kinds, apply)
	return nil
}

// parseArguments parses further argument groups until one fails to parse,
// then backtracks to the end of the last complete group.
func (s *state) parseArguments(kinds []argKind, apply func(args []float64)) {
	for {
		savedIndex := s.index
		s.commaWhitespace()
		args, err := s.parseArgumentGroup(kinds)
		if err != nil {
			// backtrack.
			s.index = savedIndex
			return
		}
		apply(args)
	}
}

func (s *state) parseArgumentGroup(kinds []argKind) ([]float64, error) {
	args := make([]float64, len(kinds))
	for i, kind := range kinds {
		if i > 0 {
			s.commaWhitespace()
		}
		switch kind {
		case argFlag:
			switch s.peek() {
			case '0':
				args[i] = 0
			case '1':
				args[i] = 1
			default:
				return nil, fmt.Errorf("expected a flag, got %q", string(s.peek()))
			}
			s.next()
		default:
			n, err := s.parseNumber()
			if err != nil {
				return nil, err
			}
			args[i] = n
		}
	}
	return args, nil
}

func (s *state) absolute(x, y float64) (float64, float64) {
	if s.relative {
		return x + s.currentX, y + s.currentY
	}
	return x, y
}

func (s *state) closePath() {
	if s.group == nil {
		return
	}
	s.group.DrawTo = append(s.group.DrawTo,
		&DrawTo{Command: ClosePath, X: s.group.X, Y: s.group.Y})
	s.currentX = s.group.X
	s.currentY = s.group.Y
	s.group = nil
	s.lastCommand = 'Z'
}

func (s *state) lineTo(x, y float64) {
	x, y = s.absolute(x, y)
	s.addLine(x, y)
}

func (s *state) addLine(x, y float64) {
	s.group.DrawTo = append(s.group.DrawTo,
		&DrawTo{Command: LineTo, X: x, Y: y})
	s.currentX, s.currentY = x, y
}

func (s *state) curveTo(x1, y1, x2, y2, x, y float64) {
	x1, y1 = s.absolute(x1, y1)
	x2, y2 = s.absolute(x2, y2)
	x, y = s.absolute(x, y)
	s.group.DrawTo = append(s.group.DrawTo,
		&DrawTo{Command: CurveTo, X: x, Y: y, X1: x1, Y1: y1, X2: x2, Y2: y2})
	s.currentX, s.currentY = x, y
	s.lastControlX, s.lastControlY = x2, y2
	s.lastCommand = 'C'
}

func (s *state) smoothCurveTo(x2, y2, x, y float64) {
	x1, y1 := s.currentX, s.currentY
	if s.lastCommand == 'C' || s.lastCommand == 'S' {
		x1 = 2*s.currentX - s.lastControlX
		y1 = 2*s.currentY - s.lastControlY
	}
	x2, y2 = s.absolute(x2, y2)
	x, y = s.absolute(x, y)
	s.group.DrawTo = append(s.group.DrawTo,
		&DrawTo{Command: CurveTo, X: x, Y: y, X1: x1, Y1: y1, X2: x2, Y2: y2})
	s.currentX, s.currentY = x, y
	s.lastControlX, s.lastControlY = x2, y2
	s.lastCommand = 'S'
}

func (s *state) quadTo(x1, y1, x, y float64) {
	x1, y1 = s.absolute(x1, y1)
	x, y = s.absolute(x, y)
	s.group.DrawTo = append(s.group.DrawTo,
		&DrawTo{Command: QuadTo, X: x, Y: y, X1: x1, Y1: y1})
	s.currentX, s.currentY = x, y
	s.lastControlX, s.lastControlY = x1, y1
	s.lastCommand = 'Q'
}

func (s *state) smoothQuadTo(x, y float64) {
	x1, y1 := s.currentX, s.currentY
	if s.lastCommand == 'Q' || s.lastCommand == 'T' {
		x1 = 2*s.currentX - s.lastControlX
		y1 = 2*s.currentY - s.lastControlY
	}
	x, y = s.absolute(x, y)
	s.group.DrawTo = append(s.group.DrawTo,
		&DrawTo{Command: QuadTo, X: x, Y: y, X1: x1, Y1: y1})
	s.currentX, s.currentY = x, y
	s.lastControlX, s.lastControlY = x1, y1
	s.lastCommand = 'T'
}

func (s *state) arcTo(rx, ry, rotation float64, largeArc, sweep bool, x, y float64) {
	x, y = s.absolute(x, y)
	s.group.DrawTo = append(s.group.DrawTo, &DrawTo{
		Command:  ArcTo,
		X:        x,
		Y:        y,
		RX:       rx,
		RY:       ry,
		Rotation: rotation,
		LargeArc: largeArc,
		Sweep:    sweep,
	})
	s.currentX, s.currentY = x, y
	s.lastCommand = 'A'
}

// parseCoordinatePair parses "coordinate comma-wsp? coordinate"
func (s *state) parseCoordinatePair() (float64, float64, error) {
	x, err := s.parseNumber()
	if err != nil {
		return 0, 0, err
	}
	s.commaWhitespace()
	y, err := s.parseNumber()
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

// parseNumber parses a number
func (s *state) parseNumber() (float64, error) {
	c := s.peek()
	if c == '+' || c == '-' {
		s.next()
		n, err := s.parseNonNegativeNumber()
		if c == '-' {
			n = -n
		}
		return n, err
	}
	return s.parseNonNegativeNumber()
}

func (s *state) parseNonNegativeNumber() (float64, error) {
	number := s.digitSequence()
	if number == "" {
		// Possible fractional constant starting with a decimal point
		c := s.peek()
		if c != '.' {
			return 0, fmt.Errorf("expected a number, got %q", string(c))
		}
		s.next()
		number = "." + s.digitSequence()
		if number == "." {
			return 0, fmt.Errorf("expected a number, got only a \".\"")
		}
	} else if s.peek() == '.' {
		s.next()
		number += "." + s.digitSequence()
	}

	// Check for possible exponent
	c := s.peek()
	if c == 'E' || c == 'e' {
		s.next()
		sign := ""
		c = s.peek()
		if c == '+' || c == '-' {
			s.next()
			sign = string(c)
		}
		exponent := s.digitSequence()
		if exponent == "" {
			return 0, fmt.Errorf("expected an exponent, got %q", string(c))
		}
		number += "E" + sign + exponent
	}

	return strconv.ParseFloat(number, 64)
}

func (s *state) digitSequence() string {
	start := s.index
	for {
		c := s.peek()
		if '0' <= c && c <= '9' {
			s.next()
		} else {
			break
		}
	}
	return s.data[start:s.index]
}

// whitespace consumes "wsp*", and returns the number of bytes consumed
func (s *state) whitespace() int {
	count := 0
	for {
		switch s.peek() {
		case ' ', '\t', '\n', '\r':
			s.next()
			count++
		default:
			return count
		}
	}
}

// commaWhitespace consumes an optional "(wsp+ comma? wsp*) | (comma wsp*)",
// and returns true if something was consumed
func (s *state) commaWhitespace() bool {
	if s.peek() == ',' {
		s.next()
		s.whitespace()
		return true
	}

	consumed := s.whitespace()
	if consumed > 0 {
		if s.peek() == ',' {
			s.next()
		}
		s.whitespace()
		return true
	}

	return false
}

// peek returns the next byte without consuming it, or 0 if at the end of stream
func (s *state) peek() byte {
	if s.index < len(s.data) {
		return s.data[s.index]
	}
	return 0
}

// next consumes and returns the next byte, or 0 if at the end of stream
func (s *state) next() byte {
	if s.index < len(s.data) {
		i := s.index
		s.index++
		return s.data[i]
	}
	return 0
}

// Parse parses a path string
func Parse(path string) ([]*SubPath, error) {
	s := &state{
		data:  path,
		index: 0,
	}
	err := s.parse()
	return s.subPaths, err
}
