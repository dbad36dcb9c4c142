// SPDX-License-Identifier: AGPL-3.0-or-later
package grbl

import (
	"time"

	"github.com/eric02138/grblhost/gcode"
)

// LoadProgram installs a program to stream. Refused while a run is active
// (§4.G's preconditions).
func (c *Controller) LoadProgram(p *gcode.Program) error {
	c.streamMu.Lock()
	defer c.streamMu.Unlock()
	if c.streaming {
		return ErrAlreadyStreaming
	}
	c.program = p
	c.cursor = 0
	c.ackIndex = 0
	c.inflight = nil
	return nil
}

// StartStream begins streaming the loaded program (§4.G). Preconditions:
// a program is loaded, the controller is connected, and no run is active.
func (c *Controller) StartStream() error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.streamMu.Lock()
	if c.program == nil {
		c.streamMu.Unlock()
		return ErrNoProgram
	}
	if c.streaming {
		c.streamMu.Unlock()
		return ErrAlreadyStreaming
	}
	c.program.ResetStatus()
	c.cursor = 0
	c.ackIndex = 0
	c.inflight = nil
	c.streaming = true
	c.paused = false
	c.abort = false
	startedAt := time.Now()
	programName := c.program.Name
	total := c.program.Total()
	c.streamMu.Unlock()

	// txDone is read by Disconnect under connMu (alongside rxDone/pollDone),
	// so it must be written under the same lock to avoid a race where
	// Disconnect observes a stale/nil channel and closes the transport
	// while txLoop is still writing to it.
	c.connMu.Lock()
	c.txDone = make(chan struct{})
	c.connMu.Unlock()
	go c.txLoop(startedAt, programName, total)
	return nil
}

// PauseStream issues feed-hold; the TX worker observes paused and stops
// consuming new commands, letting in-flight commands drain on firmware's
// own schedule (§4.G).
func (c *Controller) PauseStream() {
	c.streamMu.Lock()
	c.paused = true
	c.streamMu.Unlock()
	c.writeRealtime('!')
}

// ResumeStream issues cycle-resume and clears paused.
func (c *Controller) ResumeStream() {
	c.streamMu.Lock()
	c.paused = false
	c.streamMu.Unlock()
	c.writeRealtime('~')
}

// AbortStream sets abort, issues a soft-reset, clears local inflight
// accounting, forces firmware_status to IDLE, then (per §4.G) sends M5
// and G0 X0 Y0 as ordinary queued writes rather than through the
// streaming engine.
func (c *Controller) AbortStream() {
	c.streamMu.Lock()
	c.abort = true
	c.inflight = nil
	c.streamMu.Unlock()

	c.writeRealtime(0x18)
	c.setStatus(Idle)
	time.Sleep(500 * time.Millisecond)

	if err := c.writeLineCommand("M5"); err != nil {
		c.logger.Warn("abort safety command failed", "cmd", "M5", "err", err)
	}
	if err := c.writeLineCommand("G0 X0 Y0"); err != nil {
		c.logger.Warn("abort safety command failed", "cmd", "G0 X0 Y0", "err", err)
	}
}

// txLoop is the TX worker (§4.G): character-counting flow control over
// the loaded program, honoring pause/abort, blocked on the acknowledgment
// signal whenever sending the next command would overflow RX_BUFFER_SIZE.
func (c *Controller) txLoop(startedAt time.Time, programName string, total int) {
	defer close(c.txDone)

	aborted := false
	linkLost := false

outer:
	for {
		c.streamMu.Lock()
		if c.abort {
			c.streamMu.Unlock()
			aborted = true
			break
		}
		if !c.isAlive() {
			c.streamMu.Unlock()
			linkLost = true
			break
		}
		if c.cursor >= c.program.Total() {
			c.streamMu.Unlock()
			break
		}
		if c.paused {
			c.streamMu.Unlock()
			time.Sleep(50 * time.Millisecond)
			continue
		}

		cmd := c.program.Command(c.cursor)
		cost := cmd.ByteCount()
		occupied := sumInflight(c.inflight)
		if occupied+cost > RXBufferSize {
			c.streamMu.Unlock()
			c.waitForAckOrDeadline(100 * time.Millisecond)
			continue
		}
		c.streamMu.Unlock()

		if err := c.writeLine(cmd.SerialBytes()); err != nil {
			c.logger.Warn("tx write failed, stopping stream", "err", err)
			linkLost = true
			break outer
		}

		c.streamMu.Lock()
		c.inflight = append(c.inflight, cost)
		cmd.MarkSent()
		c.cursor++
		c.streamMu.Unlock()

		c.stateMu.RLock()
		pace := time.Duration(c.threadingMode.TXShortMS) * time.Millisecond
		c.stateMu.RUnlock()
		if pace > 0 {
			time.Sleep(pace)
		}
	}

	if !aborted && !linkLost {
		c.drainInflight(30 * time.Second)
	}

	c.streamMu.Lock()
	c.streaming = false
	if c.abort && !linkLost {
		// AbortStream may land while trailing acks are being drained.
		aborted = true
	}
	okCount, errCount := 0, 0
	if c.program != nil {
		okCount, errCount = c.program.OKCount(), c.program.ErrorCount()
	}
	c.streamMu.Unlock()

	outcome := JobCompleted
	switch {
	case aborted:
		outcome = JobAborted
	case linkLost:
		outcome = JobLinkLost
	}
	c.history.record(JobRecord{
		ProgramName: programName,
		Total:       total,
		OKCount:     okCount,
		ErrorCount:  errCount,
		StartedAt:   startedAt,
		EndedAt:     time.Now(),
		Outcome:     outcome,
	})

	c.notifyJobFinished()
}

func sumInflight(inflight []int) int {
	n := 0
	for _, v := range inflight {
		n += v
	}
	return n
}

// waitForAckOrDeadline blocks on the level-triggered ack signal, bounded
// by d, so abort latency stays bounded (§5).
func (c *Controller) waitForAckOrDeadline(d time.Duration) {
	select {
	case <-c.ackSignal:
	case <-time.After(d):
	}
}

// drainInflight waits up to d for all sent-but-unacknowledged commands to
// clear. A timeout here is not an error (§7 TimeoutDrain).
func (c *Controller) drainInflight(d time.Duration) {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		c.streamMu.Lock()
		empty := len(c.inflight) == 0
		c.streamMu.Unlock()
		if empty {
			return
		}
		c.waitForAckOrDeadline(100 * time.Millisecond)
	}
}

func (c *Controller) writeLine(data []byte) error {
	c.connMu.Lock()
	tr := c.transport
	c.connMu.Unlock()
	if tr == nil {
		return ErrNotConnected
	}
	if err := tr.Write(data); err != nil {
		return err
	}
	if c.OnTraffic != nil {
		c.OnTraffic("down", string(data), time.Now())
	}
	return nil
}
