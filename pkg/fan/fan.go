// Package fan regulates the cooling fan from the filtered thermistor sums.
//
// The thermistor is judged by diff = reference - signal. A small diff means
// the thermistor is missing, a large one means it is hot. Whenever the reading
// is implausible the fan is forced on: a broken sensor must never stop cooling.
package fan

import "github.com/itohio/irprobe/pkg/hal"

// Mode is latched once from the series-resistor strap.
type Mode uint8

const (
	// Standard reads the thermistor single-ended through a 4K7 series resistor.
	Standard Mode = iota
	// HighSensitivity reads it differentially through a 1K series resistor and
	// samples a reversed-input reference to cancel the converter offset.
	HighSensitivity
)

func (m Mode) String() string {
	if m == HighSensitivity {
		return "high-sensitivity"
	}
	return "standard"
}

// ModeFromStrap maps the strap input to a Mode. The strap is pulled up, so an
// open strap selects HighSensitivity and a strap tied low selects Standard.
func ModeFromStrap(high bool) Mode {
	if high {
		return HighSensitivity
	}
	return Standard
}

// Profile holds per-reading thresholds. Off is about 38C and On about 42C.
type Profile struct {
	Connected uint16 `yaml:"connected"`
	Off       uint16 `yaml:"off"`
	On        uint16 `yaml:"on"`
	Reference uint16 `yaml:"reference"` // fixed reference reading, also the power-up fill
}

var (
	StandardProfile        = Profile{Connected: 7, Off: 78, On: 92, Reference: 1023}
	HighSensitivityProfile = Profile{Connected: 30, Off: 340, On: 400, Reference: 512}
)

// ProfileFor returns the default profile for m.
func ProfileFor(m Mode) Profile {
	if m == HighSensitivity {
		return HighSensitivityProfile
	}
	return StandardProfile
}

// Thresholds are compared against filter sums.
type Thresholds struct {
	Connected uint16
	Off       uint16
	On        uint16
}

// Scaled returns p's thresholds for filters of the given depth.
func (p Profile) Scaled(depth int) Thresholds {
	d := uint16(depth)
	return Thresholds{
		Connected: p.Connected * d,
		Off:       p.Off * d,
		On:        p.On * d,
	}
}

// InitialReadings returns the fills for the signal and reference filters at
// power-up: a connected, cold thermistor, so the fan starts off.
func (p Profile) InitialReadings() (signal, reference uint16) {
	return p.Reference - p.Connected, p.Reference
}

// Event reports what a Check did to the fan.
type Event uint8

const (
	None Event = iota
	// Held means the reading was in the off band but the minimum on time has not elapsed.
	Held
	Cooled
	OverTemperature
	Disconnected
)

func (e Event) String() string {
	switch e {
	case Held:
		return "held"
	case Cooled:
		return "cooled"
	case OverTemperature:
		return "over-temperature"
	case Disconnected:
		return "disconnected"
	default:
		return "none"
	}
}

// Controller is the fan hysteresis state machine. It is also the only place
// the watchdog is refreshed.
type Controller struct {
	fan      hal.Pin
	watchdog hal.Watchdog
	th       Thresholds

	holdChecks uint16
	remaining  uint16
}

// NewController creates a controller. Once switched on, the fan stays on for
// at least minOnChecks calls to Check.
func NewController(fan hal.Pin, watchdog hal.Watchdog, th Thresholds, minOnChecks uint16) *Controller {
	if minOnChecks == 0 {
		minOnChecks = 1
	}
	return &Controller{
		fan:        fan,
		watchdog:   watchdog,
		th:         th,
		holdChecks: minOnChecks - 1,
	}
}

// On reports whether the fan line is driven.
func (c *Controller) On() bool {
	return c.fan.Get()
}

// Remaining returns the checks left before the fan may switch off.
func (c *Controller) Remaining() uint16 {
	return c.remaining
}

// Check runs one fan cycle over the signal and reference sums.
func (c *Controller) Check(signal, reference uint16) Event {
	ev := c.check(signal, reference)
	c.watchdog.Update()
	return ev
}

func (c *Controller) check(signal, reference uint16) Event {
	if c.fan.Get() {
		if signal >= reference {
			return None
		}
		diff := reference - signal
		if diff < c.th.Connected || diff > c.th.Off {
			return None
		}
		if c.remaining > 0 {
			c.remaining--
			return Held
		}
		c.fan.Set(false)
		return Cooled
	}

	var ev Event
	switch {
	case signal >= reference || reference-signal < c.th.Connected:
		ev = Disconnected
	case reference-signal >= c.th.On:
		ev = OverTemperature
	default:
		return None
	}
	c.fan.Set(true)
	c.remaining = c.holdChecks
	return ev
}
