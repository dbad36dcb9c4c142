// SPDX-License-Identifier: AGPL-3.0-or-later
package grbl

import (
	"fmt"
	"time"
)

// rxLoop is the RX worker (§4.D, §5): it owns the sole transport read,
// classifies every inbound line, and is the single writer of firmware
// status, positions, feed/speed, and version. A read failure is fatal
// per §7 and tears the connection down.
func (c *Controller) rxLoop() {
	defer close(c.rxDone)

	for c.isAlive() {
		line, err := c.readLine()
		if err != nil {
			c.logger.Warn("transport read failed, disconnecting", "err", err)
			go c.Disconnect()
			return
		}
		if line == "" {
			continue // read timeout, re-check liveness
		}

		if c.OnTraffic != nil {
			c.OnTraffic("up", line, time.Now())
		}
		c.notifyLineReceived(line)

		switch parsed := classifyLine(line); parsed.kind {
		case kindWelcome:
			c.stateMu.Lock()
			c.firmwareVersion = parsed.version
			c.stateMu.Unlock()
		case kindStatus:
			c.applyStatusReport(parsed.status)
		case kindAck:
			c.ackCommand(nil)
		case kindErrorAck:
			msg := fmt.Sprintf("error:%d %s", parsed.code, errorString(parsed.code))
			c.ackCommand(&parsed.code)
			c.notifyError(msg)
		case kindAlarm:
			c.setStatus(Alarm)
			c.notifyError(fmt.Sprintf("ALARM:%d %s", parsed.code, alarmString(parsed.code)))
		case kindDiagnostic:
			c.applyDiagnosticLine(line)
		}
	}
}

func (c *Controller) isAlive() bool {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.alive
}

func (c *Controller) readLine() (string, error) {
	c.connMu.Lock()
	tr := c.transport
	c.connMu.Unlock()
	if tr == nil {
		return "", &ErrTransportFail{Op: "read", Err: fmt.Errorf("no transport")}
	}
	return tr.ReadLine()
}

func (c *Controller) applyStatusReport(r statusReport) {
	c.stateMu.Lock()
	changed := c.status != r.state
	c.status = r.state
	posChanged := false
	if r.haveMPos {
		c.machinePos = r.mpos
		posChanged = true
	}
	switch {
	case r.haveWPos:
		c.workPos = r.wpos
		c.haveWorkPos = true
		posChanged = true
	case r.haveWCO && r.haveMPos:
		for i := 0; i < 3; i++ {
			c.workPos[i] = r.mpos[i] - r.wco[i]
		}
		c.haveWorkPos = true
		posChanged = true
	}
	if r.haveFeed {
		c.feedRate = r.feed
		c.spindleSpeed = r.speed
	}
	c.stateMu.Unlock()

	if changed {
		c.notifyStatusChange(r.state)
	}
	if posChanged {
		c.notifyPositionUpdate()
	}
}

// ackCommand handles a plain "ok" (errCode == nil) or "error:N" response,
// FIFO-matching it to the oldest SENT command per §4.G's ordering
// guarantee. A stray ack with nothing outstanding is a ProtocolDesync
// (§7): logged and dropped, no state corruption.
func (c *Controller) ackCommand(errCode *int) {
	c.streamMu.Lock()
	if len(c.inflight) == 0 || c.program == nil {
		c.streamMu.Unlock()
		c.logger.Warn("ack with no command outstanding, dropped")
		return
	}

	cost := c.inflight[0]
	c.inflight = c.inflight[1:]

	idx := c.ackIndex
	c.ackIndex++
	_ = cost

	acked := idx < c.program.Total()
	if acked {
		cmd := c.program.Command(idx)
		if errCode != nil {
			cmd.MarkError(*errCode)
		} else {
			cmd.MarkOK()
		}
	}
	c.streamMu.Unlock()

	if acked {
		c.notifyProgressUpdate(c.Progress())
	}

	select {
	case c.ackSignal <- struct{}{}:
	default:
	}
}
