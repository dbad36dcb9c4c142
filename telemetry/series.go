// SPDX-License-Identifier: AGPL-3.0-or-later
package telemetry

import (
	"slices"
	"sync"
	"time"
)

// Series is a per-key time series of float64 samples (machine/work
// position components, feed rate, streaming progress), queryable with
// periodic sampling over an arbitrary window. Insertion tolerates
// out-of-order arrival; the common case (monotonically increasing time,
// one poll cycle after another) is handled without a binary search.
type Series struct {
	mu   sync.RWMutex
	data map[string][]sample
}

type sample struct {
	t int64 // unix nanoseconds
	v float64
}

// NewSeries creates an empty time-series store.
func NewSeries() *Series {
	return &Series{data: make(map[string][]sample)}
}

// Insert records one data point for key at t. If (key, t) exactly
// matches an existing point, it is overwritten.
func (s *Series) Insert(key string, t time.Time, v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	newS := sample{t: t.UnixNano(), v: v}
	entries, ok := s.data[key]
	if !ok {
		s.data[key] = []sample{newS}
		return
	}
	if newS.t > entries[len(entries)-1].t {
		s.data[key] = append(entries, newS)
		return
	}

	i, found := slices.BinarySearchFunc(entries, newS.t, compareSampleTime)
	if found {
		entries[i] = newS
	} else {
		s.data[key] = slices.Insert(entries, i, newS)
	}
}

func compareSampleTime(e sample, t int64) int {
	switch {
	case e.t < t:
		return -1
	case e.t > t:
		return 1
	default:
		return 0
	}
}

func sampleTimes(start, end, step int64) []int64 {
	if step <= 0 {
		return nil
	}
	var out []int64
	for t := start; t <= end; t += step {
		out = append(out, t)
	}
	return out
}

// findLatestInWindow returns the latest sample with t in [start, end], or
// nil if none exists. sortedData must be sorted ascending by t.
func findLatestInWindow(start, end int64, sortedData []sample) *sample {
	i, _ := slices.BinarySearchFunc(sortedData, end, compareSampleTime)
	i = min(i, len(sortedData)-1)
	for i >= 0 {
		t := sortedData[i].t
		if start <= t && t <= end {
			return &sortedData[i]
		}
		if t < start {
			return nil
		}
		i--
	}
	return nil
}

// Query samples keys at start+step*0, start+step*1, ... up to the last
// timestamp <= end. For each sample timestamp T, the latest original
// point in [T-step, T] is returned; a key with no point in that window
// reports ok=false for that sample. Query never interpolates between
// samples.
func (s *Series) Query(keys []string, start, end time.Time, step time.Duration) ([]time.Time, map[string][]float64, map[string][]bool) {
	sampleTs := sampleTimes(start.UnixNano(), end.UnixNano(), step.Nanoseconds())

	s.mu.RLock()
	defer s.mu.RUnlock()

	tms := make([]time.Time, len(sampleTs))
	for i, t := range sampleTs {
		tms[i] = time.Unix(0, t)
	}

	vals := make(map[string][]float64, len(keys))
	present := make(map[string][]bool, len(keys))
	for _, key := range keys {
		vs := make([]float64, len(sampleTs))
		ps := make([]bool, len(sampleTs))
		if entries, ok := s.data[key]; ok {
			for i, t := range sampleTs {
				if e := findLatestInWindow(t-step.Nanoseconds(), t, entries); e != nil {
					vs[i] = e.v
					ps[i] = true
				}
			}
		}
		vals[key] = vs
		present[key] = ps
	}
	return tms, vals, present
}
