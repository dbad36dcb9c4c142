// SPDX-License-Identifier: AGPL-3.0-or-later
package telemetry

import (
	"time"

	"github.com/eric02138/grblhost/grbl"
)

// Recorder implements grbl.Observer, sampling position/progress into a
// Series and forwarding every controller-observed line into a
// TrafficLog. It holds no strong reference back into grbl.Controller
// beyond the one passed to its constructor, matching §9's guidance
// against observer/controller reference cycles — callers are expected
// to RemoveObserver on teardown.
type Recorder struct {
	grbl.NoopObserver

	controller *grbl.Controller
	series     *Series
	traffic    *TrafficLog
	journal    *DiskJournal
}

// NewRecorder builds a Recorder bound to controller. It also installs
// itself as the controller's traffic hook, since real-time single-byte
// commands and raw line sends never flow through the Observer interface.
func NewRecorder(controller *grbl.Controller) *Recorder {
	r := &Recorder{
		controller: controller,
		series:     NewSeries(),
		traffic:    NewTrafficLog(),
	}
	controller.OnTraffic = r.recordTraffic
	return r
}

// Series returns the position/progress time series.
func (r *Recorder) Series() *Series { return r.series }

// Traffic returns the sent/received line log.
func (r *Recorder) Traffic() *TrafficLog { return r.traffic }

// EnableDiskJournal additionally mirrors every traffic line to a
// session file under dir. Call once, before traffic starts flowing;
// a Recorder with no journal enabled simply keeps traffic in memory.
func (r *Recorder) EnableDiskJournal(dir string) {
	r.journal = NewDiskJournal(dir)
}

// CloseDiskJournal closes the disk journal file, if one was enabled.
func (r *Recorder) CloseDiskJournal() {
	if r.journal != nil {
		r.journal.Close()
	}
}

func (r *Recorder) recordTraffic(dir, payload string, t time.Time) {
	line := r.traffic.Append(dir, payload, t)
	if r.journal != nil {
		r.journal.Append(line)
	}
}

// PositionUpdate samples the controller's current coordinates. Per
// grbl.Observer's contract this runs on the RX worker's goroutine and
// must not block; Series.Insert is a short-held mutex operation.
func (r *Recorder) PositionUpdate() {
	now := time.Now()
	mx, my, mz := r.controller.MachinePos()
	r.series.Insert("machine_x", now, mx)
	r.series.Insert("machine_y", now, my)
	r.series.Insert("machine_z", now, mz)

	wx, wy, wz := r.controller.WorkPos()
	r.series.Insert("work_x", now, wx)
	r.series.Insert("work_y", now, wy)
	r.series.Insert("work_z", now, wz)
}

// ProgressUpdate samples streaming progress.
func (r *Recorder) ProgressUpdate(percent float64) {
	r.series.Insert("progress", time.Now(), percent)
}
