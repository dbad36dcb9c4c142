// SPDX-License-Identifier: AGPL-3.0-or-later
package telemetry

import (
	"slices"
	"testing"
	"time"

	"pgregory.net/rapid"
)

func genDate(t *rapid.T, label string) time.Time {
	minT := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC).UnixNano()
	maxT := time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC).UnixNano()
	return time.Unix(0, rapid.Int64Range(minT, maxT).Draw(t, label))
}

func TestQueryShapeEmptySeries(t *testing.T) {
	s := NewSeries()

	rapid.Check(t, func(t *rapid.T) {
		start := genDate(t, "start")
		dur := time.Duration(rapid.Int64Range(0, time.Hour.Nanoseconds()).Draw(t, "dur"))
		keys := rapid.SliceOf(rapid.String()).Draw(t, "keys")
		end := start.Add(dur)
		step := time.Minute

		tms, vals, present := s.Query(keys, start, end, step)
		if len(tms) == 0 {
			t.Fatalf("at least one timestamp expected")
		}
		if !slices.IsSortedFunc(tms, func(a, b time.Time) int { return a.Compare(b) }) {
			t.Fatalf("timestamps not increasing: %v", tms)
		}
		for _, tm := range tms {
			if tm.Before(start) || tm.After(end) {
				t.Fatalf("timestamp %v out of range [%v, %v]", tm, start, end)
			}
		}
		for _, key := range keys {
			if len(vals[key]) != len(tms) || len(present[key]) != len(tms) {
				t.Fatalf("key %s: wrong array length", key)
			}
			for _, ok := range present[key] {
				if ok {
					t.Fatalf("key %s: expected no data present", key)
				}
			}
		}
	})
}

func TestQueryWindowSemantics(t *testing.T) {
	s := NewSeries()
	s.Insert("a", time.Date(2000, 1, 1, 0, 0, 1, 0, time.UTC), 1)
	s.Insert("a", time.Date(2000, 1, 1, 0, 0, 4, 0, time.UTC), 2)

	_, vals, present := s.Query([]string{"a"},
		time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2000, 1, 1, 0, 0, 5, 0, time.UTC),
		time.Second)

	wantVal := []float64{0, 1, 1, 0, 2, 2}
	wantPresent := []bool{false, true, true, false, true, true}
	if len(vals["a"]) != 6 {
		t.Fatalf("length = %d, want 6", len(vals["a"]))
	}
	for i := range wantVal {
		if present["a"][i] != wantPresent[i] {
			t.Errorf("present[%d] = %v, want %v", i, present["a"][i], wantPresent[i])
		}
		if wantPresent[i] && vals["a"][i] != wantVal[i] {
			t.Errorf("vals[%d] = %v, want %v", i, vals["a"][i], wantVal[i])
		}
	}
}

func TestQueryOutOfOrderInsert(t *testing.T) {
	s := NewSeries()
	rapid.Check(t, func(t *rapid.T) {
		data := []int{0, 1, 2, 3, 4, 5}
		ts := rapid.Permutation(data).Draw(t, "ts")
		for _, v := range ts {
			s.Insert("a", time.Unix(int64(v), 0), float64(v))
		}
		_, vals, present := s.Query([]string{"a"}, time.Unix(0, 0), time.Unix(5, 0), time.Second)
		for i, v := range vals["a"] {
			if !present["a"][i] || int(v) != i {
				t.Fatalf("value[%d] = %v (present=%v), want %d", i, v, present["a"][i], i)
			}
		}
	})
}

func TestQueryCoarserThanData(t *testing.T) {
	s := NewSeries()
	rapid.Check(t, func(t *rapid.T) {
		key := rapid.StringN(1, 10, 10).Draw(t, "key")
		for i := range 1001 {
			s.Insert(key, time.Unix(int64(i), 0), float64(i))
		}
		_, vals, present := s.Query([]string{key}, time.Unix(0, 0), time.Unix(1000, 0), 10*time.Second)
		if len(vals[key]) != 101 {
			t.Fatalf("length = %d, want 101", len(vals[key]))
		}
		for i, v := range vals[key] {
			if !present[key][i] || int(v) != i*10 {
				t.Fatalf("value[%d] = %v, want %d", i, v, i*10)
			}
		}
	})
}
