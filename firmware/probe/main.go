//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"context"
	"machine"
	"runtime/interrupt"
	"time"

	"github.com/itohio/irprobe/pkg/hal"
	"github.com/itohio/irprobe/pkg/probe"
)

// interrupts masks the sampling timer around the main loop's snapshots.
type interrupts struct{}

func (interrupts) Disable() hal.State {
	return hal.State(interrupt.Disable())
}

func (interrupts) Restore(s hal.State) {
	interrupt.Restore(interrupt.State(s))
}

func main() {
	// Configure outputs, all low
	for _, p := range []machine.Pin{PIN_NEAR_EMITTER, PIN_FAR_EMITTER, PIN_APPROACHING, PIN_ON, PIN_FAN} {
		p.Configure(machine.PinConfig{Mode: machine.PinOutput})
		p.Low()
	}

	PIN_MODE_SELECT.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	PIN_STRAP.Configure(machine.PinConfig{Mode: machine.PinInputPullup})

	machine.InitADC()
	adc := newPipelinedADC()

	time.Sleep(POWER_ON_DELAY_MS * time.Millisecond)

	settings := probe.DefaultSettings()
	settings.TimerFrequency = TIMER_FREQUENCY_HZ

	dev, err := probe.New(probe.Hardware{
		ADC:         adc,
		Interrupts:  interrupts{},
		Watchdog:    machine.Watchdog,
		NearEmitter: PIN_NEAR_EMITTER,
		FarEmitter:  PIN_FAR_EMITTER,
		Approaching: PIN_APPROACHING,
		On:          PIN_ON,
		Fan:         PIN_FAN,
		ModeSelect:  PIN_MODE_SELECT,
		Strap:       PIN_STRAP,
	}, settings)
	if err != nil {
		// Invalid build-time settings; fail safe with the fan on.
		PIN_FAN.High()
		for {
			println("probe:", err.Error())
			time.Sleep(time.Second)
		}
	}

	machine.Watchdog.Configure(machine.WatchdogConfig{
		TimeoutMillis: WATCHDOG_TIMEOUT_MS,
	})
	machine.Watchdog.Start()

	go runTimer(TIMER_FREQUENCY_HZ, func() {
		adc.convert()
		dev.Tick()
	})

	dev.Run(context.Background())
}

// runTimer calls isr at freq with interrupts masked, keeping the cadence
// against the absolute schedule rather than the previous wakeup.
// It stands in for a hardware timer compare interrupt (TC3 on the SAMD21),
// which machine does not expose; goroutine wakeups jitter, so ticks can
// bunch up when the main loop is slow to yield.
func runTimer(freq int, isr func()) {
	period := time.Second / time.Duration(freq)
	next := time.Now()
	for {
		next = next.Add(period)
		if d := time.Until(next); d > 0 {
			time.Sleep(d)
		}
		st := interrupt.Disable()
		isr()
		interrupt.Restore(st)
	}
}
