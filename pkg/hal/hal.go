// Package hal describes the few pieces of hardware the probe core touches.
// Firmware binds these to TinyGo's machine package; pkg/sim provides a host
// implementation used by tests, the bench mock and the simulator CLI.
package hal

// Pin is a single digital line. Each Set must be one atomic write so that
// the interrupt handler and the main loop never tear each other's updates.
// machine.Pin satisfies this interface.
type Pin interface {
	Set(high bool)
	Get() bool
}

// Mux selects the input routed to the analog-to-digital converter.
type Mux uint8

const (
	// MuxPhototransistor is the single-ended phototransistor input.
	MuxPhototransistor Mux = iota
	// MuxThermistor is the single-ended thermistor input (4K7 series resistor).
	MuxThermistor
	// MuxThermistorDirect is the differential thermistor input, +thermistor -reference.
	MuxThermistorDirect
	// MuxThermistorReversed is the differential thermistor input, +reference -thermistor.
	MuxThermistorReversed
)

func (m Mux) String() string {
	switch m {
	case MuxPhototransistor:
		return "phototransistor"
	case MuxThermistor:
		return "thermistor"
	case MuxThermistorDirect:
		return "thermistor+"
	case MuxThermistorReversed:
		return "thermistor-"
	default:
		return "unknown"
	}
}

// Differential reports whether the converter runs in bipolar mode for m.
// Bipolar results are 10-bit two's complement codes.
func (m Mux) Differential() bool {
	return m == MuxThermistorDirect || m == MuxThermistorReversed
}

// ADC is a free-running converter triggered by the sampling timer.
type ADC interface {
	// Result returns the last completed 10-bit conversion.
	Result() uint16
	// Hold waits until the conversion that has just started has latched its input.
	Hold()
	// Select routes m to the converter. It takes effect on the next conversion.
	Select(m Mux)
}

// State is an opaque interrupt mask returned by Interrupts.Disable.
type State uintptr

// Interrupts masks the sampling interrupt around multi-word reads.
type Interrupts interface {
	Disable() State
	Restore(State)
}

// Watchdog resets the device unless Update is called within its timeout.
type Watchdog interface {
	Update()
}
