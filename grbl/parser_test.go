// SPDX-License-Identifier: AGPL-3.0-or-later
package grbl

import "testing"

func TestClassifyLine(t *testing.T) {
	cases := []struct {
		line string
		kind lineKind
	}{
		{"Grbl 1.1h ['$' for help]", kindWelcome},
		{"<Idle|MPos:0.000,0.000,0.000|FS:0,0>", kindStatus},
		{"ok", kindAck},
		{"error:20", kindErrorAck},
		{"ALARM:1", kindAlarm},
		{"[VER:1.1f.20170801:]", kindDiagnostic},
		{"$0=10", kindDiagnostic},
	}
	for _, c := range cases {
		got := classifyLine(c.line).kind
		if got != c.kind {
			t.Errorf("classifyLine(%q).kind = %v, want %v", c.line, got, c.kind)
		}
	}
}

func TestWelcomeVersion(t *testing.T) {
	if v := welcomeVersion("Grbl 1.1h ['$' for help]"); v != "1.1h" {
		t.Fatalf("welcomeVersion = %q, want 1.1h", v)
	}
	if v := welcomeVersion("Grbl"); v != "" {
		t.Fatalf("welcomeVersion with no fields = %q, want empty", v)
	}
}

func TestParseStatusReportWPosTakesPriorityOverWCO(t *testing.T) {
	r := parseStatusReport("<Run|MPos:1,2,3|WPos:4,5,6|WCO:7,8,9>")
	if !r.haveWPos || r.wpos != [3]float64{4, 5, 6} {
		t.Fatalf("wpos = %v, haveWPos=%v", r.wpos, r.haveWPos)
	}
	if r.state != Run {
		t.Fatalf("state = %v, want Run", r.state)
	}

	c := New(testLogger())
	c.applyStatusReport(r)
	if x, y, z := c.WorkPos(); x != 4 || y != 5 || z != 6 {
		t.Fatalf("work pos = (%v,%v,%v), want WPos (4,5,6) rather than MPos-WCO", x, y, z)
	}
}

func TestParseStatusReportFeedSpeed(t *testing.T) {
	r := parseStatusReport("<Idle|FS:500,1000>")
	if !r.haveFeed || r.feed != 500 || r.speed != 1000 {
		t.Fatalf("feed/speed = %v/%v haveFeed=%v", r.feed, r.speed, r.haveFeed)
	}
}

func TestParseCoordsMissingZDefaultsToZero(t *testing.T) {
	v, ok := parseCoords("1.5,2.5")
	if !ok {
		t.Fatal("parseCoords failed")
	}
	if v != [3]float64{1.5, 2.5, 0} {
		t.Fatalf("coords = %v, want (1.5,2.5,0)", v)
	}
}

func TestParseCoordsInvalid(t *testing.T) {
	if _, ok := parseCoords("notanumber"); ok {
		t.Fatal("expected parseCoords to fail on malformed single field")
	}
}

func TestParsePrefixedInt(t *testing.T) {
	n, ok := parsePrefixedInt("error:20", "error:")
	if !ok || n != 20 {
		t.Fatalf("parsePrefixedInt = %d, %v, want 20, true", n, ok)
	}
	if _, ok := parsePrefixedInt("ok", "error:"); ok {
		t.Fatal("expected no match for non-prefixed line")
	}
}
