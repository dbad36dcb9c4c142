// SPDX-License-Identifier: AGPL-3.0-or-later
package gcode

import (
	"fmt"
	"os"
	"strings"
)

// Point is one sample of the derived toolpath: a motion command's resulting
// end position, and whether the laser/spindle was enabled while moving there.
type Point struct {
	X, Y    float64
	Cutting bool
}

// Bounds is the bounding box of a program's motion-command end positions.
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
}

// Program is an ordered sequence of Commands plus an identifying name.
// Empty normalized lines are dropped at construction time; commands are
// otherwise immutable in count and order for the life of the Program.
type Program struct {
	Name     string
	commands []Command
}

// FromFile loads a program from an on-disk text file. Decoding is lossy
// UTF-8 (invalid bytes are replaced); blank and comment-only lines are
// dropped. The name is set to the given path.
func FromFile(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gcode: read %s: %w", path, err)
	}
	lines := strings.Split(strings.ToValidUTF8(string(data), "�"), "\n")
	return FromLines(path, lines), nil
}

// FromLines builds a program from an in-memory sequence of raw lines, such
// as those generated by an image-to-gcode converter. Blank and
// comment-only lines are dropped.
func FromLines(name string, lines []string) *Program {
	p := &Program{Name: name}
	for _, raw := range lines {
		raw = strings.TrimRight(raw, "\r\n")
		cmd := newCommand(raw)
		if cmd.normalized == "" {
			continue
		}
		p.commands = append(p.commands, cmd)
	}
	return p
}

// Total is the number of commands in the program.
func (p *Program) Total() int { return len(p.commands) }

// Command returns a pointer to the i-th command (0-based), for in-place
// status mutation by the streaming engine.
func (p *Program) Command(i int) *Command { return &p.commands[i] }

// Commands returns the full, mutable command slice for iteration.
func (p *Program) Commands() []Command { return p.commands }

func (p *Program) countStatus(s Status) int {
	n := 0
	for i := range p.commands {
		if p.commands[i].status == s {
			n++
		}
	}
	return n
}

// OKCount, ErrorCount, SentCount are the current per-status tallies.
// SentCount counts commands that are SENT, OK, or ERROR (i.e. not QUEUED).
func (p *Program) OKCount() int    { return p.countStatus(OK) }
func (p *Program) ErrorCount() int { return p.countStatus(Error) }
func (p *Program) SentCount() int {
	n := 0
	for i := range p.commands {
		if p.commands[i].status != Queued {
			n++
		}
	}
	return n
}

// ResetStatus sets every command back to QUEUED and clears error codes.
// This is the only permitted backward transition on command status.
func (p *Program) ResetStatus() {
	for i := range p.commands {
		p.commands[i].reset()
	}
}

// Bounds computes the bounding box of all motion-command end positions
// using modal position tracking: an axis keeps its last value when omitted
// from a line, and the initial position is the origin. Returns the zero
// Bounds if the program has no motion commands.
func (p *Program) Bounds() Bounds {
	x, y := 0.0, 0.0
	haveAny := false
	var b Bounds
	for i := range p.commands {
		cmd := &p.commands[i]
		if nx, ok := Param(cmd.normalized, 'X'); ok {
			x = nx
		}
		if ny, ok := Param(cmd.normalized, 'Y'); ok {
			y = ny
		}
		if !IsMotion(cmd.normalized) {
			continue
		}
		if !haveAny {
			b = Bounds{MinX: x, MinY: y, MaxX: x, MaxY: y}
			haveAny = true
			continue
		}
		b.MinX = min(b.MinX, x)
		b.MinY = min(b.MinY, y)
		b.MaxX = max(b.MaxX, x)
		b.MaxY = max(b.MaxY, y)
	}
	return b
}

// Toolpath derives one Point per motion command, in program order. The
// laser/spindle is considered enabled (cutting) once an M3/M4 line is seen,
// until an M5 line is seen, or for any single motion line carrying a
// positive S parameter.
func (p *Program) Toolpath() []Point {
	var points []Point
	x, y := 0.0, 0.0
	laserOn := false
	for i := range p.commands {
		cmd := &p.commands[i]
		switch {
		case IsLaserOn(cmd.normalized):
			laserOn = true
		case IsLaserOff(cmd.normalized):
			laserOn = false
		}

		if nx, ok := Param(cmd.normalized, 'X'); ok {
			x = nx
		}
		if ny, ok := Param(cmd.normalized, 'Y'); ok {
			y = ny
		}

		if !IsMotion(cmd.normalized) {
			continue
		}
		power, hasPower := Param(cmd.normalized, 'S')
		cutting := laserOn || (hasPower && power > 0)
		points = append(points, Point{X: x, Y: y, Cutting: cutting})
	}
	return points
}
