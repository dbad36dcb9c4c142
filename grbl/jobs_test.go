// SPDX-License-Identifier: AGPL-3.0-or-later
package grbl

import (
	"testing"
	"time"
)

func TestJobHistoryListIsOldestFirstAndDefensive(t *testing.T) {
	h := newJobHistory()
	now := time.Unix(1700000000, 0)
	h.record(JobRecord{ProgramName: "a", StartedAt: now, Outcome: JobCompleted})
	h.record(JobRecord{ProgramName: "b", StartedAt: now.Add(time.Minute), Outcome: JobAborted})

	list := h.list()
	if len(list) != 2 {
		t.Fatalf("list len = %d, want 2", len(list))
	}
	if list[0].ProgramName != "a" || list[1].ProgramName != "b" {
		t.Fatalf("order wrong: %v", list)
	}

	list[0].ProgramName = "mutated"
	if got := h.list()[0].ProgramName; got != "a" {
		t.Fatalf("mutating a returned slice affected stored history: got %q", got)
	}
}

func TestJobHistoryEmptyByDefault(t *testing.T) {
	h := newJobHistory()
	if list := h.list(); len(list) != 0 {
		t.Fatalf("expected empty history, got %v", list)
	}
}
