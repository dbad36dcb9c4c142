// SPDX-License-Identifier: AGPL-3.0-or-later
package grbl

// Status is the firmware machine state, as reflected in the most recent
// status report (or the connection lifecycle before one has arrived).
type Status int

const (
	Disconnected Status = iota
	Connecting
	Idle
	Run
	Jog
	Hold
	Door
	Home
	Alarm
	Check
	Unknown
)

func (s Status) String() string {
	switch s {
	case Disconnected:
		return "DISCONNECTED"
	case Connecting:
		return "CONNECTING"
	case Idle:
		return "IDLE"
	case Run:
		return "RUN"
	case Jog:
		return "JOG"
	case Hold:
		return "HOLD"
	case Door:
		return "DOOR"
	case Home:
		return "HOME"
	case Alarm:
		return "ALARM"
	case Check:
		return "CHECK"
	default:
		return "UNKNOWN"
	}
}

var statusWords = map[string]Status{
	"Idle":  Idle,
	"Run":   Run,
	"Jog":   Jog,
	"Hold":  Hold,
	"Door":  Door,
	"Home":  Home,
	"Alarm": Alarm,
	"Check": Check,
}

func parseStatusWord(word string) Status {
	if s, ok := statusWords[word]; ok {
		return s
	}
	return Unknown
}

// ThreadingMode is a named preset of poll/pacing intervals. Only
// StatusQueryMS and TXShortMS are consumed by this core (§6); the rest are
// carried for parity with the source presets and for collaborators that
// want finer RX pacing control.
type ThreadingMode struct {
	Name          string
	StatusQueryMS int
	TXLongMS      int
	TXShortMS     int
	RXLongMS      int
	RXShortMS     int
}

var (
	ModeSlow      = ThreadingMode{"Slow", 2000, 15, 4, 2, 1}
	ModeQuiet     = ThreadingMode{"Quiet", 1000, 10, 2, 1, 1}
	ModeFast      = ThreadingMode{"Fast", 500, 5, 1, 1, 0}
	ModeUltraFast = ThreadingMode{"UltraFast", 250, 1, 0, 1, 0}
)

var threadingModes = map[string]ThreadingMode{
	ModeSlow.Name:      ModeSlow,
	ModeQuiet.Name:     ModeQuiet,
	ModeFast.Name:      ModeFast,
	ModeUltraFast.Name: ModeUltraFast,
}

// ThreadingModeByName looks up a preset by name (case-sensitive, matching
// the source's four names). ok is false for an unrecognized name.
func ThreadingModeByName(name string) (ThreadingMode, bool) {
	m, ok := threadingModes[name]
	return m, ok
}

// Errors maps GRBL error codes to their human-readable descriptions (§6).
var Errors = map[int]string{
	1:  "Expected command letter",
	2:  "Bad number format",
	3:  "Invalid $ statement",
	4:  "Negative value",
	5:  "Homing not enabled",
	6:  "Step pulse too short",
	7:  "EEPROM read fail",
	8:  "Not idle",
	9:  "G-code lock",
	10: "Soft limit",
	11: "Overflow",
	12: "Max step rate exceeded",
	13: "Check door",
	14: "Line length exceeded",
	15: "Travel exceeded",
	16: "Invalid jog command",
	17: "Laser mode requires PWM",
	20: "Unsupported command",
	21: "Modal group violation",
	22: "Undefined feed rate",
	23: "Invalid G-code ID",
	24: "Value word conflict",
	25: "Self-referencing arc",
	26: "No arc axis words",
	27: "Unused value words",
}

// Alarms maps GRBL alarm codes to their human-readable descriptions (§6).
var Alarms = map[int]string{
	1: "Hard limit triggered",
	2: "Soft limit alarm",
	3: "Abort during cycle",
	4: "Probe fail — not cleared",
	5: "Probe fail — not contacted",
	6: "Homing fail — reset",
	7: "Homing fail — door",
	8: "Homing fail — pull off",
	9: "Homing fail — no switch",
}

func errorString(code int) string {
	if s, ok := Errors[code]; ok {
		return s
	}
	return "Unknown error"
}

func alarmString(code int) string {
	if s, ok := Alarms[code]; ok {
		return s
	}
	return "Unknown alarm"
}
