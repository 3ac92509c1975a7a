// Package proximity turns filtered near/far/ambient sums into one of four
// output levels and drives the two output lines that encode them.
package proximity

// Level is the value presented to the host controller.
type Level uint8

const (
	Off Level = iota
	Approaching
	On
	Saturated
)

func (l Level) String() string {
	switch l {
	case Off:
		return "off"
	case Approaching:
		return "approaching"
	case On:
		return "on"
	case Saturated:
		return "saturated"
	default:
		return "unknown"
	}
}

// Mode is read from the mode-select input every iteration.
type Mode uint8

const (
	// Differential uses both emitters and reports Approaching.
	Differential Mode = iota
	// Simple uses the near emitter only and never reports Approaching,
	// so the host can tell which sensor type it is talking to.
	Simple
)

func (m Mode) String() string {
	if m == Simple {
		return "simple"
	}
	return "differential"
}

// ModeFromInput maps the mode-select line to a Mode: low selects Simple.
func ModeFromInput(high bool) Mode {
	if high {
		return Differential
	}
	return Simple
}

// Per-reading thresholds; they are scaled by the filter depth.
const (
	FarReading        = 10  // minimum far reading for the sensor to be working
	SimpleNearReading = 30  // minimum near reading for On in simple mode
	SaturatedReading  = 870 // readings at or above this are saturated
)

// Thresholds are compared against filter sums.
type Thresholds struct {
	Far        uint16
	SimpleNear uint16
	Saturated  uint16
}

// ScaledThresholds returns the default thresholds for filters of the given depth.
func ScaledThresholds(depth int) Thresholds {
	d := uint16(depth)
	return Thresholds{
		Far:        FarReading * d,
		SimpleNear: SimpleNearReading * d,
		Saturated:  SaturatedReading * d,
	}
}

// Reading is a consistent copy of the three infrared sums.
type Reading struct {
	Near    uint16
	Far     uint16
	Ambient uint16
}

// clampedSub returns a-b, or 0 when b >= a. Unclamped wraparound would read
// as a very strong reflection when there is no signal at all.
func clampedSub(a, b uint16) uint16 {
	if a > b {
		return a - b
	}
	return 0
}

// Classify returns the output level for r. It is a pure function of its inputs.
func Classify(r Reading, mode Mode, th Thresholds) Level {
	if r.Near >= th.Saturated || r.Far >= th.Saturated {
		return Saturated
	}

	near := clampedSub(r.Near, r.Ambient)
	far := clampedSub(r.Far, r.Ambient)

	if mode == Simple {
		if near >= th.SimpleNear {
			return On
		}
		return Off
	}

	switch {
	case near > far && far >= th.Far:
		return On
	case far >= th.Far && uint32(near)*6 >= uint32(far)*5:
		return Approaching
	default:
		return Off
	}
}
