// SPDX-License-Identifier: AGPL-3.0-or-later
package grbl

import (
	"strconv"
	"strings"
	"time"
)

// Diagnostics is a snapshot of the settings/build-info/parser-state lines
// GRBL emits in response to $$, $I, and $G (§D.2 of the expanded spec).
// These arrive as ordinary "diagnostic" lines per §4.D's classifier;
// nothing in §4.D changes, this only enriches what the controller
// remembers about them.
type Diagnostics struct {
	// Settings holds the numbered $N=value settings dump, keyed by N.
	Settings map[int]float64
	// Version and Options come from the "[VER:version:options]" build-info
	// line, e.g. "[VER:1.1f.20170801:]".
	Version string
	Options string
	// OptBlock holds the raw "[OPT:...]" capability-block body, e.g.
	// "VNM,15,128" (comma-separated flags and numeric limits).
	OptBlock string
	// ParserState holds the raw body of a "[GC:...]" parser-state line.
	ParserState string
}

func (d Diagnostics) clone() Diagnostics {
	out := d
	if d.Settings != nil {
		out.Settings = make(map[int]float64, len(d.Settings))
		for k, v := range d.Settings {
			out.Settings[k] = v
		}
	}
	return out
}

// applyDiagnosticLine attempts to recognize a settings line ("$0=10") or a
// bracketed build-info/parser-state line ("[VER:...]", "[OPT:...]",
// "[GC:...]") and folds it into the Diagnostics snapshot. Anything it
// doesn't recognize is left untouched; the line was already forwarded to
// the line-received observer by the caller, per §4.D's diagnostic path.
func (c *Controller) applyDiagnosticLine(line string) {
	now := time.Now()
	switch {
	case strings.HasPrefix(line, "$") && strings.Contains(line, "="):
		c.applySetting(line)
		c.diagHistory.add("setting", line, now)
	case strings.HasPrefix(line, "[VER:"):
		c.applyVersionLine(line)
		c.diagHistory.add("version", line, now)
	case strings.HasPrefix(line, "[OPT:"):
		c.stateMu.Lock()
		c.diagnostics.OptBlock = strings.TrimSuffix(strings.TrimPrefix(line, "[OPT:"), "]")
		c.stateMu.Unlock()
		c.diagHistory.add("opt", line, now)
	case strings.HasPrefix(line, "[GC:"):
		c.stateMu.Lock()
		c.diagnostics.ParserState = strings.TrimSuffix(strings.TrimPrefix(line, "[GC:"), "]")
		c.stateMu.Unlock()
		c.diagHistory.add("parser-state", line, now)
	}
}

// applySetting parses a "$N=value" settings-dump line.
func (c *Controller) applySetting(line string) {
	body := strings.TrimPrefix(line, "$")
	eq := strings.IndexByte(body, '=')
	if eq < 0 {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(body[:eq]))
	if err != nil {
		return
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(body[eq+1:]), 64)
	if err != nil {
		return
	}
	c.stateMu.Lock()
	if c.diagnostics.Settings == nil {
		c.diagnostics.Settings = make(map[int]float64)
	}
	c.diagnostics.Settings[n] = v
	c.stateMu.Unlock()
}

// applyVersionLine parses "[VER:version:options]" from $I build-info.
func (c *Controller) applyVersionLine(line string) {
	body := strings.TrimSuffix(strings.TrimPrefix(line, "[VER:"), "]")
	parts := strings.SplitN(body, ":", 2)
	c.stateMu.Lock()
	c.diagnostics.Version = parts[0]
	if len(parts) > 1 {
		c.diagnostics.Options = parts[1]
	}
	c.stateMu.Unlock()
}
