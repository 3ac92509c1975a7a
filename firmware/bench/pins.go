//go:build tinygo

package main

import "machine"

const (
	// Sampling configuration
	SAMPLE_INTERVAL_MS          = 1 // ADC read interval in milliseconds
	NUM_SAMPLES                 = 4 // Number of samples to average
	IGNORE_SAMPLES_AFTER_CHANGE = 5 // Ignore this many samples after a mode change

	// ADC configuration
	ADC_REFERENCE_MV = 3300 // Reference voltage in millivolts (3.3V)
	ADC_RESOLUTION   = 12   // ADC resolution in bits (12-bit = 0-4095)

	// Probe mode-select line, driven open-drain style: low = simple
	PIN_MODE_SELECT = machine.D7

	// Probe fan line, read through a divider
	PIN_FAN_SENSE = machine.D8

	// Probe analog output, after the 13K/10K network
	PIN_OUTPUT_ADC = machine.A1

	// Serial configuration
	// Format "unix_micros,output,fan,mode\n"
	// Example: "1234567890123456,4095,1,1\n" = ~26 bytes max per line
	// 250 outputs/sec * 26 bytes/line = 6,500 bytes/sec
	// 115200 baud gives 11,520 bytes/sec
	UART_BAUD_RATE = 115200
)
