// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry is the ambient observability layer: a log of every
// line sent to or received from firmware, and a time series of
// position/progress samples, both queryable by external collaborators
// (the GUI/CLI named out of scope in spec.md §1) without coupling them
// to grbl.Controller directly.
package telemetry

import (
	"regexp"
	"sync"
	"time"
)

// TrafficLine is one recorded line of serial traffic.
type TrafficLine struct {
	Seq     int
	Dir     string // "up" (received) or "down" (sent)
	Content string
	Time    time.Time
}

// TrafficLog is an append-only, thread-safe record of serial traffic,
// queryable by line-number range, tail, or regex/direction filter.
type TrafficLog struct {
	mu    sync.RWMutex
	lines []TrafficLine
	next  int
}

// NewTrafficLog creates an empty log.
func NewTrafficLog() *TrafficLog {
	return &TrafficLog{next: 1}
}

// Append records one line, assigning it the next sequence number.
func (l *TrafficLog) Append(dir, content string, t time.Time) TrafficLine {
	l.mu.Lock()
	defer l.mu.Unlock()

	tl := TrafficLine{Seq: l.next, Dir: dir, Content: content, Time: t}
	l.next++
	l.lines = append(l.lines, tl)
	return tl
}

// ScanRange selects a subset of a TrafficLog's lines.
type ScanRange interface {
	extract(lines []TrafficLine) []TrafficLine
}

// RangeScan selects lines with 1-based sequence numbers in [From, To).
// A nil bound means unbounded on that side.
type RangeScan struct {
	From *int
	To   *int
}

func (r RangeScan) extract(lines []TrafficLine) []TrafficLine {
	start := 0
	if r.From != nil && *r.From > 0 {
		start = *r.From - 1
		if start >= len(lines) {
			return nil
		}
	}
	end := len(lines)
	if r.To != nil && *r.To > 0 && *r.To-1 < end {
		end = *r.To - 1
	}
	if start >= end {
		return nil
	}
	return lines[start:end]
}

// TailScan selects the last N lines.
type TailScan struct {
	N int
}

func (t TailScan) extract(lines []TrafficLine) []TrafficLine {
	if t.N <= 0 {
		return nil
	}
	if t.N >= len(lines) {
		return lines
	}
	return lines[len(lines)-t.N:]
}

// QueryOptions parameterizes TrafficLog.Query. All filters combine with
// logical AND; zero-value QueryOptions returns every line.
type QueryOptions struct {
	Scan        ScanRange
	FilterDir   string
	FilterRegex *regexp.Regexp
}

// Query returns lines matching opts, oldest first.
func (l *TrafficLog) Query(opts QueryOptions) []TrafficLine {
	l.mu.RLock()
	defer l.mu.RUnlock()

	lines := l.lines
	if opts.Scan != nil {
		lines = opts.Scan.extract(lines)
	}

	var out []TrafficLine
	for _, ln := range lines {
		if opts.FilterDir != "" && ln.Dir != opts.FilterDir {
			continue
		}
		if opts.FilterRegex != nil && !opts.FilterRegex.MatchString(ln.Content) {
			continue
		}
		out = append(out, ln)
	}
	return out
}
