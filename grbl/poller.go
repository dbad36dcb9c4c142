// SPDX-License-Identifier: AGPL-3.0-or-later
package grbl

import "time"

// pollLoop is the status poller (§4.F): while connected and alive, emit a
// single-byte status query and sleep for threading_mode.status_query_ms.
// Transport errors here are swallowed; the RX worker is the sole detector
// of fatal link loss.
func (c *Controller) pollLoop() {
	defer close(c.pollDone)

	for c.isAlive() {
		c.writeRealtime('?')

		c.stateMu.RLock()
		interval := time.Duration(c.threadingMode.StatusQueryMS) * time.Millisecond
		c.stateMu.RUnlock()

		sleepWhileAlive(c, interval)
	}
}

// sleepWhileAlive sleeps in short slices so Disconnect's grace period
// doesn't have to wait out a multi-second poll interval.
func sleepWhileAlive(c *Controller, d time.Duration) {
	const slice = 50 * time.Millisecond
	deadline := time.Now().Add(d)
	for c.isAlive() && time.Now().Before(deadline) {
		remaining := time.Until(deadline)
		if remaining > slice {
			remaining = slice
		}
		time.Sleep(remaining)
	}
}
