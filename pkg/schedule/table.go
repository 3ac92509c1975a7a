// Package schedule multiplexes the single converter across the near, far,
// ambient and fan channels on a fixed 16/32 tick grid.
//
// Every timer tick consumes the conversion started on the previous tick, so
// each phase routes the reading that was sampled with the emitter and
// multiplexer state left behind two phases earlier. The table below is laid
// out with that pipeline in mind and must not be reordered.
package schedule

import "github.com/itohio/irprobe/pkg/hal"

// PhaseCount is the length of the inner cycle.
const PhaseCount = 16

// OuterBit selects the half of the 32 tick outer cycle. It only matters
// for high-sensitivity fan sampling.
const OuterBit = 0x10

// Phase is the position inside the inner cycle.
type Phase uint8

// PhaseOf returns the inner-cycle phase for a tick count.
func PhaseOf(tick uint16) Phase {
	return Phase(tick & (PhaseCount - 1))
}

// Outer reports whether tick falls in the second half of the outer cycle.
func Outer(tick uint16) bool {
	return tick&OuterBit != 0
}

// Channel names the filter a reading is routed to.
type Channel uint8

const (
	ChannelNone Channel = iota
	ChannelFan
	ChannelNear
	ChannelAmbient
	ChannelFar
)

func (c Channel) String() string {
	switch c {
	case ChannelFan:
		return "fan"
	case ChannelNear:
		return "near"
	case ChannelAmbient:
		return "ambient"
	case ChannelFar:
		return "far"
	default:
		return "none"
	}
}

// Emitters is a set of emitter line changes applied after the reading is routed.
type Emitters uint8

const (
	FarOn Emitters = 1 << iota
	FarOff
	NearOn
	NearOff
)

// MuxAction tells the phase how to reconfigure the converter input.
type MuxAction uint8

const (
	MuxKeep MuxAction = iota
	MuxPhototransistor
	MuxThermistor
)

// Step is the work done in one phase.
type Step struct {
	Channel  Channel
	Emitters Emitters
	Mux      MuxAction
}

// Table maps each phase to its step.
var Table = [PhaseCount]Step{
	0:  {Channel: ChannelFan, Emitters: FarOn},
	1:  {Channel: ChannelAmbient, Emitters: FarOff | NearOn},
	2:  {Channel: ChannelFar, Emitters: NearOff},
	3:  {Channel: ChannelNear, Emitters: FarOn},
	4:  {Channel: ChannelAmbient, Emitters: FarOff | NearOn},
	5:  {Channel: ChannelFar, Emitters: NearOff},
	6:  {Channel: ChannelNear, Emitters: FarOn},
	7:  {Channel: ChannelAmbient, Emitters: FarOff | NearOn},
	8:  {Channel: ChannelFar, Emitters: NearOff},
	9:  {Channel: ChannelNear, Emitters: FarOn},
	10: {Channel: ChannelAmbient, Emitters: FarOff | NearOn},
	11: {Channel: ChannelFar, Emitters: NearOff, Mux: MuxThermistor},
	12: {Channel: ChannelNear},
	// 13 and 14 discard readings while the converter settles on the thermistor.
	13: {},
	14: {},
	15: {Mux: MuxPhototransistor},
}

// ThermistorMux returns the thermistor input configured at phase 11.
// In high-sensitivity mode the inputs are swapped on alternate inner cycles:
// the reading taken with the reversed inputs is consumed in the next cycle,
// whose outer bit is set, and becomes the reference sample.
func ThermistorMux(highSensitivity, outer bool) hal.Mux {
	if !highSensitivity {
		return hal.MuxThermistor
	}
	if outer {
		return hal.MuxThermistorDirect
	}
	return hal.MuxThermistorReversed
}
