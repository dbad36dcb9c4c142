// SPDX-License-Identifier: AGPL-3.0-or-later
package gcode

import (
	"strconv"
	"testing"

	"pgregory.net/rapid"
)

func TestProgramFromLinesDropsBlanks(t *testing.T) {
	p := FromLines("test", []string{"G0 X1", "", "  ", "(comment only)", "G1 Y2"})
	if p.Total() != 2 {
		t.Fatalf("Total() = %d, want 2", p.Total())
	}
}

func TestResetStatusSemantics(t *testing.T) {
	p := FromLines("test", []string{"G0 X1", "G1 X2", "G1 X3"})
	p.Command(0).MarkOK()
	p.Command(1).MarkError(20)
	p.Command(2).MarkSent()

	p.ResetStatus()
	if p.OKCount() != 0 || p.ErrorCount() != 0 || p.SentCount() != 0 {
		t.Fatalf("after reset: ok=%d error=%d sent=%d", p.OKCount(), p.ErrorCount(), p.SentCount())
	}
	if p.Total() != 3 {
		t.Fatalf("Total() changed after reset: %d", p.Total())
	}
	for i := range p.Commands() {
		if p.Command(i).Status() != Queued {
			t.Errorf("command %d not QUEUED after reset", i)
		}
		if _, ok := p.Command(i).ErrorCode(); ok {
			t.Errorf("command %d still has error code after reset", i)
		}
	}
}

func TestBoundsNoMotion(t *testing.T) {
	p := FromLines("test", []string{"M3", "M5", "$H"})
	b := p.Bounds()
	if b != (Bounds{}) {
		t.Errorf("Bounds() = %+v, want zero value", b)
	}
}

func TestBoundsModalPosition(t *testing.T) {
	// X10 Y10, then X20 (Y still 10, modal), then Y0 (X still 20).
	p := FromLines("test", []string{"G0 X10 Y10", "G1 X20", "G1 Y0"})
	b := p.Bounds()
	want := Bounds{MinX: 10, MinY: 0, MaxX: 20, MaxY: 10}
	if b != want {
		t.Errorf("Bounds() = %+v, want %+v", b, want)
	}
}

func TestBoundsMatchesNaiveMinMax(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 15).Draw(t, "n")
		var lines []string
		var xs, ys []float64
		x, y := 0.0, 0.0
		for i := 0; i < n; i++ {
			nx := rapid.Float64Range(-100, 100).Draw(t, "x")
			ny := rapid.Float64Range(-100, 100).Draw(t, "y")
			sx := strconv.FormatFloat(nx, 'f', 3, 64)
			sy := strconv.FormatFloat(ny, 'f', 3, 64)
			// The line carries the values rounded to 3 decimals.
			x, _ = strconv.ParseFloat(sx, 64)
			y, _ = strconv.ParseFloat(sy, 64)
			lines = append(lines, "G1 X"+sx+" Y"+sy)
			xs = append(xs, x)
			ys = append(ys, y)
		}
		p := FromLines("test", lines)
		b := p.Bounds()

		minX, minY, maxX, maxY := xs[0], ys[0], xs[0], ys[0]
		for i := 1; i < len(xs); i++ {
			minX = min(minX, xs[i])
			minY = min(minY, ys[i])
			maxX = max(maxX, xs[i])
			maxY = max(maxY, ys[i])
		}
		if b.MinX != minX || b.MinY != minY || b.MaxX != maxX || b.MaxY != maxY {
			t.Fatalf("Bounds() = %+v, want min=(%v,%v) max=(%v,%v)", b, minX, minY, maxX, maxY)
		}
	})
}

func TestToolpathCutting(t *testing.T) {
	p := FromLines("test", []string{
		"G0 X0 Y0",
		"M3 S100",
		"G1 X10 Y0",
		"M5",
		"G1 X20 Y0",
		"G1 X30 Y0 S50",
	})
	tp := p.Toolpath()
	if len(tp) != 4 {
		t.Fatalf("len(Toolpath()) = %d, want 4", len(tp))
	}
	want := []bool{false, true, false, true}
	for i, pt := range tp {
		if pt.Cutting != want[i] {
			t.Errorf("toolpath[%d].Cutting = %v, want %v", i, pt.Cutting, want[i])
		}
	}
}
