// SPDX-License-Identifier: AGPL-3.0-or-later
package grbl

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"
)

// ErrTransportFail wraps any I/O failure from the underlying serial port.
type ErrTransportFail struct {
	Op  string
	Err error
}

func (e *ErrTransportFail) Error() string {
	return fmt.Sprintf("grbl: transport %s: %v", e.Op, e.Err)
}

func (e *ErrTransportFail) Unwrap() error { return e.Err }

const (
	bootDelay    = 2 * time.Second
	readTimeout  = 5 * time.Second
	writeTimeout = 5 * time.Second
)

// Transport is a blocking duplex byte pipe to GRBL-compatible firmware,
// per §4.C. Reads are framed into '\n'-terminated lines; writes of a full
// line and of a single real-time byte are each expected to be atomic at
// the serial layer, but writeMu serializes them anyway so this also works
// correctly on transports without that guarantee.
type Transport struct {
	port serial.Port

	writeMu sync.Mutex

	readBuf []byte // bytes read but not yet consumed as a full line
}

// Open opens a serial port 8-N-1 at the given baud rate, waits for the
// firmware to boot, and flushes any bytes queued for transmission from a
// previous session.
func Open(portName string, baud int) (*Transport, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, &ErrTransportFail{Op: "open", Err: err}
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, &ErrTransportFail{Op: "set read timeout", Err: err}
	}

	time.Sleep(bootDelay)
	_ = port.ResetOutputBuffer()

	return &Transport{port: port}, nil
}

// Write sends bytes as-is (no newline appended); callers append '\n' for
// line commands themselves via gcode.Command.SerialBytes or realtime byte
// literals for real-time commands.
func (t *Transport) Write(data []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	_, err := t.port.Write(data)
	if err != nil {
		return &ErrTransportFail{Op: "write", Err: err}
	}
	return nil
}

// ReadLine returns one '\n'-terminated line with any trailing CR and the
// newline itself stripped. It returns ("", nil) if the read timeout
// (§4.C, 5s) elapses before a full line arrives, so the RX worker can
// re-check its liveness flag without blocking forever. A non-nil error is
// fatal per §7 (TransportIoFail during a read).
func (t *Transport) ReadLine() (string, error) {
	for {
		if idx := bytes.IndexByte(t.readBuf, '\n'); idx >= 0 {
			line := t.readBuf[:idx]
			t.readBuf = t.readBuf[idx+1:]
			return string(bytes.TrimRight(line, "\r")), nil
		}

		buf := make([]byte, 256)
		n, err := t.port.Read(buf)
		if err != nil {
			return "", &ErrTransportFail{Op: "read", Err: err}
		}
		if n == 0 {
			// Read timeout elapsed with no newline seen yet; any partial
			// line bytes already buffered are retained for the next call.
			return "", nil
		}
		t.readBuf = append(t.readBuf, buf[:n]...)
	}
}

// Close releases the underlying serial port.
func (t *Transport) Close() error {
	return t.port.Close()
}
