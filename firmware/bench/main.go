//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"machine"
	"time"
)

var (
	adcOutput machine.ADC
	uart      = machine.UART0

	// Mode-select line as driven by the host; the probe powers up in differential mode
	simple          bool
	ignoreCountdown int

	// ADC averaging - running sums and counts
	outputSum   uint32
	outputCount int
	fanOn       bool

	// Timing
	lastADCRead time.Time

	// Serial buffer for reading lines
	serialBuffer [4]byte
	serialPos    int
)

func main() {
	PIN_MODE_SELECT.Configure(machine.PinConfig{Mode: machine.PinOutput})
	PIN_MODE_SELECT.High()

	PIN_FAN_SENSE.Configure(machine.PinConfig{Mode: machine.PinInput})
	PIN_OUTPUT_ADC.Configure(machine.PinConfig{Mode: machine.PinInput})

	adcOutput = machine.ADC{Pin: PIN_OUTPUT_ADC}
	adcOutput.Configure(machine.ADCConfig{
		Reference:  ADC_REFERENCE_MV,
		Resolution: ADC_RESOLUTION,
	})

	uart.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	lastADCRead = time.Now()

	for {
		now := time.Now()

		processSerial()

		if now.Sub(lastADCRead) >= time.Duration(SAMPLE_INTERVAL_MS)*time.Millisecond {
			readOutput()
			lastADCRead = now
		}

		if outputCount >= NUM_SAMPLES {
			outputAveragedValues()
			outputSum = 0
			outputCount = 0
		}

		time.Sleep(100 * time.Microsecond)
	}
}

func readOutput() {
	if ignoreCountdown > 0 {
		ignoreCountdown--
		return
	}

	// machine.ADC.Get is scaled to 16 bits
	outputSum += uint32(adcOutput.Get() >> 4)
	outputCount++
	fanOn = PIN_FAN_SENSE.Get()
}

func outputAveragedValues() {
	n := outputCount
	if n == 0 {
		n = 1
	}
	outputAvg := uint16(outputSum / uint32(n))

	timestampMicros := time.Now().UnixNano() / 1000

	// Output format: "unix_micros,output,fan,mode\n", mode 0 = simple
	// Example: "1234567890123,2314,0,1\n"
	print(timestampMicros)
	print(",")
	print(outputAvg)
	print(",")
	if fanOn {
		print("1")
	} else {
		print("0")
	}
	print(",")
	if simple {
		print("0")
	} else {
		print("1")
	}
	print("\n")
}

func processSerial() {
	for uart.Buffered() > 0 {
		data, err := uart.ReadByte()
		if err != nil {
			break
		}

		if data == '\n' || data == '\r' {
			if serialPos == 1 {
				setMode(serialBuffer[0] == '0')
			}
			serialPos = 0
			continue
		}

		if data == ' ' || data == '\t' {
			continue
		}

		if data == '0' || data == '1' {
			if serialPos < len(serialBuffer) {
				serialBuffer[serialPos] = data
				serialPos++
			}
		} else {
			serialPos = 0
		}
	}
}

// setMode drives the probe's mode-select line. Samples taken while the
// probe's filters follow the change are dropped.
func setMode(s bool) {
	if s == simple {
		return
	}
	simple = s
	PIN_MODE_SELECT.Set(!s)

	ignoreCountdown = IGNORE_SAMPLES_AFTER_CHANGE
	outputSum = 0
	outputCount = 0
}
