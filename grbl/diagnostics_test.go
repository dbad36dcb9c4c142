// SPDX-License-Identifier: AGPL-3.0-or-later
package grbl

import "testing"

func TestApplyDiagnosticLineSettingsAndVersion(t *testing.T) {
	c := New(testLogger())

	c.applyDiagnosticLine("$0=10")
	c.applyDiagnosticLine("$130=200.000")
	c.applyDiagnosticLine("[VER:1.1f.20170801:]")
	c.applyDiagnosticLine("[OPT:VNM,15,128]")
	c.applyDiagnosticLine("[GC:G0 G54 G17 G21 G90 G94 M5 M9 T0 F0 S0]")

	d := c.Diagnostics()
	if d.Settings[0] != 10 {
		t.Fatalf("$0 = %v, want 10", d.Settings[0])
	}
	if d.Settings[130] != 200 {
		t.Fatalf("$130 = %v, want 200", d.Settings[130])
	}
	if d.Version != "1.1f.20170801" {
		t.Fatalf("Version = %q", d.Version)
	}
	if d.OptBlock != "VNM,15,128" {
		t.Fatalf("OptBlock = %q", d.OptBlock)
	}
	if d.ParserState != "G0 G54 G17 G21 G90 G94 M5 M9 T0 F0 S0" {
		t.Fatalf("ParserState = %q", d.ParserState)
	}
}

func TestDiagnosticsCloneIsIndependent(t *testing.T) {
	c := New(testLogger())
	c.applyDiagnosticLine("$0=10")

	snap := c.Diagnostics()
	snap.Settings[0] = 999

	if got := c.Diagnostics().Settings[0]; got != 10 {
		t.Fatalf("mutating a clone affected live state: got %v, want 10", got)
	}
}

func TestDiagnosticsHistoryRecordsEachLine(t *testing.T) {
	c := New(testLogger())
	c.applyDiagnosticLine("$0=10")
	c.applyDiagnosticLine("$0=20")
	c.applyDiagnosticLine("$0=30")

	hist := c.DiagnosticsHistory("setting", 2)
	if len(hist) != 2 {
		t.Fatalf("history len = %d, want 2", len(hist))
	}
	if hist[0].Line != "$0=30" {
		t.Fatalf("most recent = %q, want $0=30", hist[0].Line)
	}
	if hist[1].Line != "$0=20" {
		t.Fatalf("second most recent = %q, want $0=20", hist[1].Line)
	}
}

func TestDiagnosticsHistoryUnknownTagIsEmpty(t *testing.T) {
	c := New(testLogger())
	if hist := c.DiagnosticsHistory("version", 5); hist != nil {
		t.Fatalf("expected nil history for untouched tag, got %v", hist)
	}
}
