// SPDX-License-Identifier: AGPL-3.0-or-later
package grbl

import (
	"fmt"
	"strings"
)

// safeLineCommands bypass the while-streaming refusal (§E): GRBL handles
// them atomically and the streaming engine never issues them itself, so
// a resulting stray "ok" cannot be mis-attributed to a streamed command.
var safeLineCommands = map[string]bool{
	"$X": true,
	"$H": true,
}

// SoftReset issues the real-time soft-reset byte (0x18).
func (c *Controller) SoftReset() { c.writeRealtime(0x18) }

// FeedHold issues the real-time feed-hold byte ('!').
func (c *Controller) FeedHold() { c.writeRealtime('!') }

// CycleResume issues the real-time cycle-resume byte ('~').
func (c *Controller) CycleResume() { c.writeRealtime('~') }

// JogCancel issues the real-time jog-cancel byte (0x85).
func (c *Controller) JogCancel() { c.writeRealtime(0x85) }

// KillAlarm sends "$X" to unlock an ALARM-locked firmware. Always safe
// even while streaming (§E).
func (c *Controller) KillAlarm() error {
	return c.writeLineCommand("$X")
}

// Homing sends "$H" to run the homing cycle. Always safe even while
// streaming (§E).
func (c *Controller) Homing() error {
	return c.writeLineCommand("$H")
}

// SetZero sends "G92" with the given axis offsets. Any axis pointer left
// nil is omitted, matching GRBL's own modal-omission semantics.
func (c *Controller) SetZero(x, y, z *float64) error {
	var b strings.Builder
	b.WriteString("G92")
	if x != nil {
		fmt.Fprintf(&b, " X%g", *x)
	}
	if y != nil {
		fmt.Fprintf(&b, " Y%g", *y)
	}
	if z != nil {
		fmt.Fprintf(&b, " Z%g", *z)
	}
	return c.SendCommand(b.String())
}

// Jog sends a "$J=..." incremental or absolute jog command. Axes at
// exactly 0 are omitted; coordinates use 3 decimals, feed uses 0 decimals
// (§4.H).
func (c *Controller) Jog(x, y, z, feed float64, incremental bool) error {
	mode := "G90"
	if incremental {
		mode = "G91"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "$J=%s", mode)
	if x != 0 {
		fmt.Fprintf(&b, " X%.3f", x)
	}
	if y != 0 {
		fmt.Fprintf(&b, " Y%.3f", y)
	}
	if z != 0 {
		fmt.Fprintf(&b, " Z%.3f", z)
	}
	fmt.Fprintf(&b, " F%.0f", feed)
	return c.SendCommand(b.String())
}

// RequestSettings sends "$$".
func (c *Controller) RequestSettings() error { return c.SendCommand("$$") }

// RequestParserState sends "$G".
func (c *Controller) RequestParserState() error { return c.SendCommand("$G") }

// RequestBuildInfo sends "$I".
func (c *Controller) RequestBuildInfo() error { return c.SendCommand("$I") }

// SetThreadingMode switches the status-poll/TX-pacing preset by name.
func (c *Controller) SetThreadingMode(name string) error {
	mode, ok := ThreadingModeByName(name)
	if !ok {
		return fmt.Errorf("grbl: unknown threading mode %q", name)
	}
	c.stateMu.Lock()
	c.threadingMode = mode
	c.stateMu.Unlock()
	return nil
}

// ThreadingMode returns the current threading preset.
func (c *Controller) ThreadingMode() ThreadingMode {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.threadingMode
}

// SendCommand writes an arbitrary line command. Per §E, it is refused
// with ErrBusyStreaming while a stream is active, except for the
// always-safe set ($X, $H) which bypass the refusal — all other commands,
// including $$, $G, $I, $J=..., and G92, are refused until the run finishes.
//
// The streaming check and the write happen under one streamMu critical
// section: checking streaming and writing as two separate steps would let
// StartStream flip streaming true in between, letting a refused command
// slip out interleaved with the program stream and desync FIFO ack
// attribution (§E's entire point).
func (c *Controller) SendCommand(line string) error {
	trimmed := strings.TrimSpace(line)

	c.streamMu.Lock()
	defer c.streamMu.Unlock()

	if c.streaming && !safeLineCommands[trimmed] {
		return ErrBusyStreaming
	}
	return c.writeLineCommand(trimmed)
}

// writeLineCommand writes a line command unconditionally, bypassing the
// streaming-refusal policy. Used internally by the always-safe commands
// and by AbortStream's post-abort safety lines, which the spec requires
// to go through send-command rather than the streaming engine.
func (c *Controller) writeLineCommand(line string) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return c.writeLine(append([]byte(line), '\n'))
}
