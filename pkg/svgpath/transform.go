package svgpath

import (
	"fmt"

	"plotarm/pkg/geometry"
)

// Function is one entry of a transform list, e.g. "rotate(30 5 5)".
type Function struct {
	Name string
	Args []float64
}

// ParseTransform parses an SVG transform attribute into a single matrix.
// The functions of a list are applied right to left, so the result is their
// product in the order written. Angles are in degrees.
func ParseTransform(transform string) (geometry.Matrix, error) {
	m := geometry.Identity()

	functions, err := ParseFunctions(transform)
	if err != nil {
		return m, fmt.Errorf("failed to parse transform %q: %w", transform, err)
	}

	for _, function := range functions {
		args := function.Args
		var next geometry.Matrix
		switch function.Name {
		case "matrix":
			if len(args) != 6 {
				return m, fmt.Errorf("6 args required for matrix transform, got %v", args)
			}
			next = geometry.Matrix{
				A: args[0], C: args[2], E: args[4],
				B: args[1], D: args[3], F: args[5],
			}
		case "translate":
			if len(args) != 2 && len(args) != 1 {
				return m, fmt.Errorf("1 or 2 args required for translate transform, got %v", args)
			}
			y := 0.0
			if len(args) == 2 {
				y = args[1]
			}
			next = geometry.Translate(args[0], y)
		case "scale":
			if len(args) != 2 && len(args) != 1 {
				return m, fmt.Errorf("1 or 2 args required for scale transform, got %v", args)
			}
			y := args[0]
			if len(args) == 2 {
				y = args[1]
			}
			next = geometry.Scale(args[0], y)
		case "rotate":
			switch len(args) {
			case 1:
				next = geometry.Rotate(args[0])
			case 3:
				next = geometry.RotateAround(args[0], geometry.Point{X: args[1], Y: args[2]})
			default:
				return m, fmt.Errorf("1 or 3 args required for rotate transform, got %v", args)
			}
		case "skewX":
			if len(args) != 1 {
				return m, fmt.Errorf("1 arg required for skewX transform, got %v", args)
			}
			next = geometry.SkewX(args[0])
		case "skewY":
			if len(args) != 1 {
				return m, fmt.Errorf("1 arg required for skewY transform, got %v", args)
			}
			next = geometry.SkewY(args[0])
		default:
			return m, fmt.Errorf("unknown transform function %q %v", function.Name, args)
		}
		m = m.Multiply(next)
	}

	return m, nil
}

func isLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func (s *state) parseFunctions() ([]*Function, error) {
	var functions []*Function
	// (wsp* identifier wsp* "(" wsp* number (comma-wsp number)* wsp* ")" (wsp|comma)*)*
	for {
		s.commaWhitespace()
		if s.peek() == 0 {
			return functions, nil
		}

		function := &Function{}
		functions = append(functions, function)

		// identifier
		start := s.index
		if !isLetter(s.next()) {
			return functions, fmt.Errorf("identifier must start with a letter, got %q", s.data[start:s.index])
		}
		for {
			c := s.peek()
			if isLetter(c) || ('0' <= c && c <= '9') || c == '_' || c == '-' {
				s.next()
			} else {
				break
			}
		}
		function.Name = s.data[start:s.index]

		// Open parenthesis
		s.whitespace()
		c := s.next()
		if c != '(' {
			return functions, fmt.Errorf("expected \"(\", got %q", string(c))
		}

		// Arguments (optional)
		s.whitespace()
		oldIndex := s.index
		n, err := s.parseNumber()
		if err != nil {
			s.index = oldIndex
		} else {
			function.Args = append(function.Args, n)
			for {
				oldIndex = s.index
				s.commaWhitespace()
				n, err = s.parseNumber()
				if err != nil {
					s.index = oldIndex
					break
				}
				function.Args = append(function.Args, n)
			}
		}

		// Close parenthesis
		s.whitespace()
		c = s.next()
		if c != ')' {
			return functions, fmt.Errorf("expected \")\", got %q", string(c))
		}
	}
}

// ParseFunctions splits a transform list into its functions.
func ParseFunctions(functions string) ([]*Function, error) {
	s := &state{
		data:  functions,
		index: 0,
	}
	return s.parseFunctions()
}
