// Package gcode turns ordered strokes into the command program understood by
// the arm's controller.
package gcode

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Command codes.
const (
	CodeMove  = "G0"
	CodeBurn  = "G1"
	CodeDwell = "G2004"
)

// Command is one line of a program. Moves use X, Y, Z and F; dwells use P,
// the pause in milliseconds.
type Command struct {
	Code    string
	X, Y, Z float64
	F       float64
	P       float64
}

// Positional reports whether the command moves the tool.
func (c Command) Positional() bool {
	return c.Code == CodeMove || c.Code == CodeBurn
}

// Hold returns a travel move to the command's target. A paused run sends it
// to keep the arm where the interrupted command left it.
func (c Command) Hold() Command {
	return Command{Code: CodeMove, X: c.X, Y: c.Y, Z: c.Z, F: c.F}
}

func (c Command) String() string {
	if c.Code == CodeDwell {
		return fmt.Sprintf("%s P%.2f", c.Code, c.P)
	}
	return fmt.Sprintf("%s X%.2f Y%.2f Z%.2f F%.2f", c.Code, c.X, c.Y, c.Z, c.F)
}

// Program is a finished command sequence.
type Program struct {
	Commands []Command
	Count    int
}

// Lines returns the textual form of every command.
func (p *Program) Lines() []string {
	lines := make([]string, len(p.Commands))
	for i, c := range p.Commands {
		lines[i] = c.String()
	}
	return lines
}

// WriteTo writes one command per line.
func (p *Program) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	for _, c := range p.Commands {
		m, err := bw.WriteString(c.String() + "\n")
		n += int64(m)
		if err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}

func (p *Program) String() string {
	return strings.Join(p.Lines(), "\n")
}
