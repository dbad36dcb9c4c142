// SPDX-License-Identifier: AGPL-3.0-or-later
package grbl

import (
	"sync"
	"testing"
	"time"

	"github.com/eric02138/grblhost/gcode"
)

type recordingObserver struct {
	NoopObserver
	mu       sync.Mutex
	statuses []Status
}

func (o *recordingObserver) StatusChange(s Status) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.statuses = append(o.statuses, s)
}

func (o *recordingObserver) seen() []Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Status, len(o.statuses))
	copy(out, o.statuses)
	return out
}

func TestAddObserverReceivesNotifications(t *testing.T) {
	c := New(testLogger())
	obs := &recordingObserver{}
	c.AddObserver(obs)

	c.setStatus(Idle)
	c.setStatus(Run)

	if got := obs.seen(); len(got) != 2 || got[0] != Idle || got[1] != Run {
		t.Fatalf("observed statuses = %v, want [Idle Run]", got)
	}
}

func TestSetStatusOnlyNotifiesOnChange(t *testing.T) {
	c := New(testLogger())
	obs := &recordingObserver{}
	c.AddObserver(obs)

	c.setStatus(Idle)
	c.setStatus(Idle)
	c.setStatus(Idle)

	if got := obs.seen(); len(got) != 1 {
		t.Fatalf("observed statuses = %v, want exactly one Idle notification", got)
	}
}

func TestRemoveObserverStopsNotifications(t *testing.T) {
	c := New(testLogger())
	obs := &recordingObserver{}
	c.AddObserver(obs)
	c.setStatus(Idle)
	c.RemoveObserver(obs)
	c.setStatus(Run)

	if got := obs.seen(); len(got) != 1 {
		t.Fatalf("observed statuses after removal = %v, want only the pre-removal Idle", got)
	}
}

// applyStatusReport is the path real status-report lines drive (unlike
// setStatus, which only backs tests and internal callers); it must dedupe
// identical re-reports the same way, or a polled Idle board floods
// observers with spurious StatusChange events.
func TestApplyStatusReportOnlyNotifiesOnChange(t *testing.T) {
	c := New(testLogger())
	obs := &recordingObserver{}
	c.AddObserver(obs)

	c.applyStatusReport(parseStatusReport("<Idle|MPos:0,0,0>"))
	c.applyStatusReport(parseStatusReport("<Idle|MPos:0,0,0>"))
	c.applyStatusReport(parseStatusReport("<Run|MPos:0,0,0>"))

	if got := obs.seen(); len(got) != 2 || got[0] != Idle || got[1] != Run {
		t.Fatalf("observed statuses = %v, want [Idle Run]", got)
	}
}

type progressRecordingObserver struct {
	NoopObserver
	mu      sync.Mutex
	percent []float64
}

func (o *progressRecordingObserver) ProgressUpdate(p float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.percent = append(o.percent, p)
}

func (o *progressRecordingObserver) seenPercent() []float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]float64, len(o.percent))
	copy(out, o.percent)
	return out
}

// ProgressUpdate must be driven by acknowledgments, not sends — sent-but-
// unacked commands don't yet count toward progress, and the final ack
// (which arrives during drainInflight) must still reach observers.
func TestProgressUpdateDrivenByAcksNotSends(t *testing.T) {
	tr := newMockTransport()
	c := newConnectedTestController(tr)
	defer c.Disconnect()

	obs := &progressRecordingObserver{}
	c.AddObserver(obs)

	prog := gcode.FromLines("p", []string{"G0 X0", "G0 X1"})
	if err := c.LoadProgram(prog); err != nil {
		t.Fatalf("LoadProgram: %v", err)
	}
	if err := c.StartStream(); err != nil {
		t.Fatalf("StartStream: %v", err)
	}

	waitFor(t, time.Second, func() bool { return len(tr.lineWritesSnapshot()) >= 2 })
	// Both commands sent, neither acked yet: no progress notification so far.
	if got := obs.seenPercent(); len(got) != 0 {
		t.Fatalf("progress notified before any ack: %v", got)
	}

	tr.feed("ok")
	waitFor(t, time.Second, func() bool { return len(obs.seenPercent()) >= 1 })
	tr.feed("ok")
	waitFor(t, 2*time.Second, func() bool {
		got := obs.seenPercent()
		return len(got) == 2 && got[1] == 100
	})
}
