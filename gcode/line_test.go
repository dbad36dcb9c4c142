// SPDX-License-Identifier: AGPL-3.0-or-later
package gcode

import (
	"testing"

	"pgregory.net/rapid"
)

func TestNormalizeCommentStripping(t *testing.T) {
	got := Normalize("G1 X5 (inline) Y6 ; tail")
	want := "G1 X5  Y6"
	if got != want {
		t.Errorf("Normalize() = %q, want %q", got, want)
	}
}

func TestNormalizeUpcasesAndTrims(t *testing.T) {
	got := Normalize("  g0 x10 y-5  ")
	if got != "G0 X10 Y-5" {
		t.Errorf("Normalize() = %q", got)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		raw := rapid.StringMatching(`[A-Za-z0-9 ;().\-]{0,40}`).Draw(t, "raw")
		once := Normalize(raw)
		twice := Normalize(once)
		if once != twice {
			t.Fatalf("Normalize not idempotent: Normalize(%q)=%q, Normalize(that)=%q", raw, once, twice)
		}
	})
}

func TestParam(t *testing.T) {
	norm := Normalize("G1 X-12.5 Y6 F500")
	if v, ok := Param(norm, 'X'); !ok || v != -12.5 {
		t.Errorf("Param(X) = %v, %v", v, ok)
	}
	if v, ok := Param(norm, 'Y'); !ok || v != 6 {
		t.Errorf("Param(Y) = %v, %v", v, ok)
	}
	if _, ok := Param(norm, 'Z'); ok {
		t.Errorf("Param(Z) should be absent")
	}
}

func TestClassification(t *testing.T) {
	cases := []struct {
		line     string
		motion   bool
		laserOn  bool
		laserOff bool
	}{
		{"G0 X1", true, false, false},
		{"G1 X1 M3", true, true, false},
		{"M4 G1 X1", true, true, false},
		{"M5", false, false, true},
		{"G28", true, false, false},
	}
	for _, c := range cases {
		norm := Normalize(c.line)
		if got := IsMotion(norm); got != c.motion {
			t.Errorf("IsMotion(%q) = %v, want %v", c.line, got, c.motion)
		}
		if got := IsLaserOn(norm); got != c.laserOn {
			t.Errorf("IsLaserOn(%q) = %v, want %v", c.line, got, c.laserOn)
		}
		if got := IsLaserOff(norm); got != c.laserOff {
			t.Errorf("IsLaserOff(%q) = %v, want %v", c.line, got, c.laserOff)
		}
	}
}
