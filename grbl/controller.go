// SPDX-License-Identifier: AGPL-3.0-or-later
package grbl

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/eric02138/grblhost/gcode"
)

// RXBufferSize is GRBL's default receive buffer size in bytes (§3).
const RXBufferSize = 128

var (
	ErrNotConnected     = errors.New("grbl: not connected")
	ErrAlreadyStreaming = errors.New("grbl: already streaming")
	ErrNoProgram        = errors.New("grbl: no program loaded")
	ErrBusyStreaming    = errors.New("grbl: line command refused while streaming")
)

// transport is the minimal surface Controller needs from a byte pipe to
// firmware; satisfied by *Transport and, in tests, by an in-memory mock.
type transport interface {
	Write([]byte) error
	ReadLine() (string, error)
	Close() error
}

// Controller is a host-side controller for one GRBL-compatible serial
// connection: connection lifecycle, status reflection, and streaming
// engine (§2-§5). Controllers do not share state; each is independent
// (§9), so multiple may coexist for e.g. testing against loopback mocks.
type Controller struct {
	logger *slog.Logger

	// stateMu guards every field below it up to (not including) the
	// streaming section: firmware status, positions, feed/spindle,
	// version, threading mode, diagnostics. Per §5 these are
	// conceptually single-writer/many-reader; a mutex makes that safe
	// without requiring callers to reason about stale reads.
	stateMu         sync.RWMutex
	status          Status
	machinePos      [3]float64
	workPos         [3]float64
	haveWorkPos     bool
	feedRate        float64
	spindleSpeed    float64
	firmwareVersion string
	threadingMode   ThreadingMode
	diagnostics     Diagnostics

	// streamMu guards the streaming state: program, cursor, inflight,
	// and the streaming/paused/abort flags (§3 Streaming state, §5).
	streamMu  sync.Mutex
	program   *gcode.Program
	cursor    int
	inflight  []int
	ackIndex  int // index of the next command awaiting FIFO ack
	streaming bool
	paused    bool
	abort     bool

	transport transport
	alive     bool
	connMu    sync.Mutex // serializes Connect/Disconnect against each other

	ackSignal chan struct{} // capacity 1, level-triggered ack notification

	rxDone   chan struct{}
	pollDone chan struct{}
	txDone   chan struct{}

	observersMu sync.Mutex
	observers   []Observer

	history     *JobHistory
	diagHistory *DiagnosticsHistory

	// InitLines, if set, are sent via SendCommand in order immediately
	// after a successful connection (e.g. a startup "$X", homing macro,
	// or a fixture's standard work-offset setup). Loaded from disk with
	// LoadInitLines; unrelated to gcode.Program streaming.
	InitLines []string

	// OnTraffic, if set, is invoked for every line written to or read
	// from the transport (dir is "up" for received, "down" for sent).
	// Real-time single-byte commands are reported too, with their raw
	// byte as payload. This is the hook telemetry/traffic logging
	// attaches to; it is not itself part of §3-§5's state model.
	OnTraffic func(dir, payload string, t time.Time)
}

// New creates a disconnected Controller. logger defaults to slog.Default()
// when nil.
func New(logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		logger:        logger,
		status:        Disconnected,
		threadingMode: ModeFast,
		ackSignal:     make(chan struct{}, 1),
		history:       newJobHistory(),
		diagHistory:   newDiagnosticsHistory(),
	}
}

// Status returns the last-known firmware status.
func (c *Controller) Status() Status {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.status
}

func (c *Controller) setStatus(s Status) {
	c.stateMu.Lock()
	changed := c.status != s
	c.status = s
	c.stateMu.Unlock()
	if changed {
		c.notifyStatusChange(s)
	}
}

// MachinePos returns the last-reported machine (absolute) position.
func (c *Controller) MachinePos() (x, y, z float64) {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.machinePos[0], c.machinePos[1], c.machinePos[2]
}

// WorkPos returns the last-reported or WCO-derived work position.
func (c *Controller) WorkPos() (x, y, z float64) {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.workPos[0], c.workPos[1], c.workPos[2]
}

// FeedAndSpeed returns the last-reported feed rate and spindle speed.
func (c *Controller) FeedAndSpeed() (feed, speed float64) {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.feedRate, c.spindleSpeed
}

// FirmwareVersion returns the version captured from the welcome line, or
// "" if none has been seen yet.
func (c *Controller) FirmwareVersion() string {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.firmwareVersion
}

// Diagnostics returns the most recent settings/build-info/parser-state
// snapshot (§D.2 of the expanded spec).
func (c *Controller) Diagnostics() Diagnostics {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.diagnostics.clone()
}

// IsConnected reports whether the transport is open.
func (c *Controller) IsConnected() bool {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.transport != nil
}

// IsIdle reports whether the controller is connected and firmware status
// is IDLE or ALARM (§4.E).
func (c *Controller) IsIdle() bool {
	s := c.Status()
	return c.IsConnected() && (s == Idle || s == Alarm)
}

// IsStreaming reports whether a streaming job is active and not paused
// (§4.E).
func (c *Controller) IsStreaming() bool {
	c.streamMu.Lock()
	defer c.streamMu.Unlock()
	return c.streaming && !c.paused
}

// Progress returns OK-count/total as a percentage in [0,100], or 0 if no
// program is loaded or it is empty.
func (c *Controller) Progress() float64 {
	c.streamMu.Lock()
	defer c.streamMu.Unlock()
	if c.program == nil || c.program.Total() == 0 {
		return 0
	}
	return float64(c.program.OKCount()) / float64(c.program.Total()) * 100.0
}

// JobHistory returns the in-memory record of past streaming runs (§D.1).
func (c *Controller) JobHistory() []JobRecord {
	return c.history.list()
}

// DiagnosticsHistory returns up to n of the most recent diagnostic lines
// recorded under tag ("setting", "version", "opt", or "parser-state"),
// most recent first.
func (c *Controller) DiagnosticsHistory(tag string, n int) []DiagnosticLine {
	return c.diagHistory.Latest(tag, n)
}

// Connect opens the serial port and negotiates connection per §4.E's
// connection algorithm. If already connected, it disconnects first.
func (c *Controller) Connect(portName string, baud int) error {
	if c.IsConnected() {
		c.Disconnect()
	}

	c.setStatus(Connecting)

	tr, err := Open(portName, baud)
	if err != nil {
		c.setStatus(Disconnected)
		c.notifyError(fmt.Sprintf("connection failed: %v", err))
		return err
	}

	c.resetConnectionState()

	c.connMu.Lock()
	c.transport = tr
	c.alive = true
	c.rxDone = make(chan struct{})
	c.pollDone = make(chan struct{})
	c.connMu.Unlock()

	go c.rxLoop()
	go c.pollLoop()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) && c.FirmwareVersion() == "" {
		time.Sleep(50 * time.Millisecond)
	}

	if c.FirmwareVersion() != "" {
		c.setStatus(Idle)
		c.logger.Info("connected", "port", portName, "baud", baud, "version", c.FirmwareVersion())
		c.notifyConnected()
		c.sendInitLines()
		return nil
	}

	c.logger.Info("no welcome message, querying status directly", "port", portName)
	c.writeRealtime('?')
	time.Sleep(2 * time.Second)

	if c.Status() != Connecting {
		c.logger.Info("connected via status query", "status", c.Status())
	} else {
		c.logger.Warn("no welcome message or status response received")
		c.setStatus(Unknown)
	}
	c.notifyConnected()
	c.sendInitLines()
	return nil
}

// sendInitLines pushes any configured startup macro lines, logging and
// skipping (not aborting) a line SendCommand refuses.
func (c *Controller) sendInitLines() {
	for _, line := range c.InitLines {
		if err := c.SendCommand(line); err != nil {
			c.logger.Warn("init line refused", "line", line, "err", err)
		}
	}
}

func (c *Controller) resetConnectionState() {
	c.stateMu.Lock()
	c.firmwareVersion = ""
	c.machinePos = [3]float64{}
	c.workPos = [3]float64{}
	c.haveWorkPos = false
	c.feedRate = 0
	c.spindleSpeed = 0
	c.diagnostics = Diagnostics{}
	c.stateMu.Unlock()
}

// Disconnect marks any active job aborted, stops the workers, closes the
// transport, and resets connection-scoped state (§4.E).
func (c *Controller) Disconnect() {
	c.connMu.Lock()
	if c.transport == nil {
		c.connMu.Unlock()
		return
	}
	tr := c.transport
	rxDone, pollDone, txDone := c.rxDone, c.pollDone, c.txDone
	c.alive = false
	c.connMu.Unlock()

	c.streamMu.Lock()
	c.abort = true
	c.streaming = false
	c.streamMu.Unlock()

	// Workers poll isAlive()/streamMu themselves, each of which needs
	// connMu/streamMu briefly — the joins below must not hold either
	// lock, or a worker mid-iteration could never observe the flip.
	if rxDone != nil {
		waitWithGrace(rxDone, 2*time.Second)
	}
	if pollDone != nil {
		waitWithGrace(pollDone, 2*time.Second)
	}
	if txDone != nil {
		waitWithGrace(txDone, 2*time.Second)
	}

	tr.Close()

	c.connMu.Lock()
	c.transport = nil
	c.connMu.Unlock()

	c.stateMu.Lock()
	c.firmwareVersion = ""
	c.stateMu.Unlock()

	c.setStatus(Disconnected)
	c.notifyDisconnected()
}

// waitWithGrace waits for done to close, abandoning the wait (daemon
// semantics, §5) after grace elapses.
func waitWithGrace(done chan struct{}, grace time.Duration) {
	select {
	case <-done:
	case <-time.After(grace):
	}
}

func (c *Controller) writeRealtime(b byte) {
	c.connMu.Lock()
	tr := c.transport
	c.connMu.Unlock()
	if tr == nil {
		return
	}
	if err := tr.Write([]byte{b}); err != nil {
		return
	}
	if c.OnTraffic != nil {
		c.OnTraffic("down", string([]byte{b}), time.Now())
	}
}
