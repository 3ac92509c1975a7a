package schedule

import (
	"sync/atomic"

	"github.com/itohio/irprobe/pkg/filter"
	"github.com/itohio/irprobe/pkg/hal"
)

// bipolarBias converts a 10-bit two's complement code to offset binary.
const bipolarBias = 0x200

// Filters are the rolling averages fed by the scheduler.
type Filters struct {
	Near         *filter.Average
	Far          *filter.Average
	Ambient      *filter.Average
	FanSignal    *filter.Average
	FanReference *filter.Average
}

// Sums is a copy of every filter sum.
type Sums struct {
	Near         uint16
	Far          uint16
	Ambient      uint16
	FanSignal    uint16
	FanReference uint16
}

// Scheduler is the body of the sampling interrupt. Only Tick may mutate the
// filters and the tick counter; Ticks and Sums must be called with the
// sampling interrupt masked.
type Scheduler struct {
	adc     hal.ADC
	near    hal.Pin
	far     hal.Pin
	filters Filters

	highSensitivity bool
	running         atomic.Bool
	tick            uint16
}

// New creates a scheduler. highSensitivity selects differential thermistor
// sampling with an alternating reference reading.
func New(adc hal.ADC, nearEmitter, farEmitter hal.Pin, filters Filters, highSensitivity bool) *Scheduler {
	return &Scheduler{
		adc:             adc,
		near:            nearEmitter,
		far:             farEmitter,
		filters:         filters,
		highSensitivity: highSensitivity,
	}
}

// SetRunning enables or disables accumulation of readings.
func (s *Scheduler) SetRunning(running bool) {
	s.running.Store(running)
}

// Running reports whether readings are accumulated.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// HighSensitivity reports the latched fan sampling mode.
func (s *Scheduler) HighSensitivity() bool {
	return s.highSensitivity
}

// Tick runs one timer interrupt.
func (s *Scheduler) Tick() {
	v := s.adc.Result() & filter.MaxReading
	tick := s.tick
	s.adc.Hold()

	step := Table[PhaseOf(tick)]
	if s.running.Load() {
		s.route(step.Channel, v, Outer(tick))
	}
	s.drive(step.Emitters)

	switch step.Mux {
	case MuxPhototransistor:
		s.adc.Select(hal.MuxPhototransistor)
	case MuxThermistor:
		s.adc.Select(ThermistorMux(s.highSensitivity, Outer(tick)))
	}

	s.tick++
}

func (s *Scheduler) route(ch Channel, v uint16, outer bool) {
	switch ch {
	case ChannelNear:
		s.filters.Near.Update(v)
	case ChannelFar:
		s.filters.Far.Update(v)
	case ChannelAmbient:
		s.filters.Ambient.Update(v)
	case ChannelFan:
		if !s.highSensitivity {
			s.filters.FanSignal.Update(v)
			return
		}
		v ^= bipolarBias
		if outer {
			s.filters.FanReference.Update(v)
		} else {
			s.filters.FanSignal.Update(v)
		}
	}
}

// drive switches emitters off before switching any on so both are never lit together.
func (s *Scheduler) drive(e Emitters) {
	if e&FarOff != 0 {
		s.far.Set(false)
	}
	if e&NearOff != 0 {
		s.near.Set(false)
	}
	if e&FarOn != 0 {
		s.far.Set(true)
	}
	if e&NearOn != 0 {
		s.near.Set(true)
	}
}

// Ticks returns the interrupt count.
func (s *Scheduler) Ticks() uint16 {
	return s.tick
}

// Sums returns every filter sum.
func (s *Scheduler) Sums() Sums {
	return Sums{
		Near:         s.filters.Near.Sum(),
		Far:          s.filters.Far.Sum(),
		Ambient:      s.filters.Ambient.Sum(),
		FanSignal:    s.filters.FanSignal.Sum(),
		FanReference: s.filters.FanReference.Sum(),
	}
}
