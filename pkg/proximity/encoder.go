package proximity

import "github.com/itohio/irprobe/pkg/hal"

// Nominal host readings (0-1023 scale) produced by the output resistor network.
const (
	ApproachingContribution = 445 // approaching line via 13K
	OnContribution          = 578 // on line via 10K
	FullScale               = 1023
)

// Decode boundaries sit midway between the nominal readings.
const (
	approachingBoundary = ApproachingContribution / 2
	onBoundary          = (ApproachingContribution + OnContribution) / 2
	saturatedBoundary   = (OnContribution + FullScale) / 2
)

// Encoder drives the two output lines. Off is both low, Approaching raises
// the approaching line, On raises the on line and Saturated raises both.
//
// Each line is written separately and a line is always cleared before the
// other is set, so a host sampling between the two writes sees a lower level,
// never a spurious Saturated.
type Encoder struct {
	approaching hal.Pin
	on          hal.Pin
}

// NewEncoder creates an encoder over the two output lines.
func NewEncoder(approaching, on hal.Pin) *Encoder {
	return &Encoder{approaching: approaching, on: on}
}

// Drive sets the output lines for l.
func (e *Encoder) Drive(l Level) {
	switch l {
	case Off:
		e.on.Set(false)
		e.approaching.Set(false)
	case Approaching:
		e.on.Set(false)
		e.approaching.Set(true)
	case On:
		e.approaching.Set(false)
		e.on.Set(true)
	default:
		e.on.Set(true)
		e.approaching.Set(true)
	}
}

// Lines returns the level currently encoded on the output lines.
func (e *Encoder) Lines() Level {
	return FromLines(e.approaching.Get(), e.on.Get())
}

// FromLines returns the level encoded by the two line states.
func FromLines(approaching, on bool) Level {
	switch {
	case approaching && on:
		return Saturated
	case on:
		return On
	case approaching:
		return Approaching
	default:
		return Off
	}
}

// HostReading returns the nominal 0-1023 value the host sees for the two line states.
func HostReading(approaching, on bool) uint16 {
	var v uint16
	if approaching {
		v += ApproachingContribution
	}
	if on {
		v += OnContribution
	}
	return v
}

// Decode maps a host reading (0-1023) back to a level.
func Decode(reading uint16) Level {
	switch {
	case reading >= saturatedBoundary:
		return Saturated
	case reading >= onBoundary:
		return On
	case reading >= approachingBoundary:
		return Approaching
	default:
		return Off
	}
}
