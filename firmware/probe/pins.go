//go:build tinygo

package main

import "machine"

const (
	// Sampling configuration
	TIMER_FREQUENCY_HZ = 8000 // Must match probe.Settings.TimerFrequency
	POWER_ON_DELAY_MS  = 250  // Let the supply and the emitters settle before the timer starts

	// Watchdog: the fan check refreshes it every 1/16 s
	WATCHDOG_TIMEOUT_MS = 500

	// ADC configuration
	ADC_RESOLUTION    = 12 // machine.ADC.Get is scaled to 16 bits regardless
	DIFFERENTIAL_GAIN = 20 // Gain applied to the emulated differential thermistor inputs

	// Emitter pins
	PIN_NEAR_EMITTER = machine.D1
	PIN_FAR_EMITTER  = machine.D2

	// Output level network: 13K and 10K resistors into the host input
	PIN_APPROACHING = machine.D3
	PIN_ON          = machine.D4

	PIN_FAN = machine.D5

	// Inputs with pull-ups
	PIN_MODE_SELECT = machine.D6 // low selects simple mode
	PIN_STRAP       = machine.D7 // open selects the high-sensitivity fan profile

	// ADC pins
	PIN_PHOTOTRANSISTOR      = machine.A0
	PIN_THERMISTOR           = machine.A8
	PIN_THERMISTOR_REFERENCE = machine.A9
)
