//go:build tinygo

package main

import (
	"machine"

	"github.com/itohio/irprobe/pkg/hal"
)

// pipelinedADC emulates a free-running converter on top of the blocking
// machine.ADC: convert, called at the start of every tick, publishes the
// conversion taken on the previous tick and samples the selected input.
// Differential inputs are built from two single-ended reads.
type pipelinedADC struct {
	photo     machine.ADC
	therm     machine.ADC
	reference machine.ADC

	mux     hal.Mux
	result  uint16
	pending uint16
}

func newPipelinedADC() *pipelinedADC {
	a := &pipelinedADC{
		photo:     machine.ADC{Pin: PIN_PHOTOTRANSISTOR},
		therm:     machine.ADC{Pin: PIN_THERMISTOR},
		reference: machine.ADC{Pin: PIN_THERMISTOR_REFERENCE},
	}
	cfg := machine.ADCConfig{Resolution: ADC_RESOLUTION}
	a.photo.Configure(cfg)
	a.therm.Configure(cfg)
	a.reference.Configure(cfg)
	return a
}

func (a *pipelinedADC) Result() uint16 { return a.result }

// Hold is a no-op: the sample is already latched when convert returns.
func (a *pipelinedADC) Hold() {}

func (a *pipelinedADC) Select(m hal.Mux) { a.mux = m }

func (a *pipelinedADC) convert() {
	a.result = a.pending
	switch a.mux {
	case hal.MuxPhototransistor:
		a.pending = a.photo.Get() >> 6
	case hal.MuxThermistor:
		a.pending = a.therm.Get() >> 6
	case hal.MuxThermistorDirect:
		a.pending = bipolar(int32(a.therm.Get()) - int32(a.reference.Get()))
	case hal.MuxThermistorReversed:
		a.pending = bipolar(int32(a.reference.Get()) - int32(a.therm.Get()))
	}
}

// bipolar scales a 16-bit difference by the differential gain and returns
// it as a 10-bit two's complement code.
func bipolar(diff int32) uint16 {
	v := diff * DIFFERENTIAL_GAIN >> 6
	if v < -512 {
		v = -512
	}
	if v > 511 {
		v = 511
	}
	return uint16(v) & 0x3FF
}
