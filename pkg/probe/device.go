// Package probe assembles the sampling scheduler, proximity classifier and
// fan controller into the probe's two execution contexts: Tick runs in the
// timer interrupt, Step and Run form the cooperative main loop.
//
// The interrupt is the only writer of the filters and the tick counter. The
// main loop reads them exclusively through Snapshot, which masks the
// interrupt for the few instructions it takes to copy the sums.
package probe

import (
	"context"
	"log/slog"
	"runtime"

	"github.com/itohio/irprobe/pkg/fan"
	"github.com/itohio/irprobe/pkg/filter"
	"github.com/itohio/irprobe/pkg/hal"
	"github.com/itohio/irprobe/pkg/proximity"
	"github.com/itohio/irprobe/pkg/schedule"
)

// Hardware binds the probe to its lines and peripherals.
type Hardware struct {
	ADC        hal.ADC
	Interrupts hal.Interrupts
	Watchdog   hal.Watchdog

	NearEmitter hal.Pin
	FarEmitter  hal.Pin
	Approaching hal.Pin // output line through the 13K resistor
	On          hal.Pin // output line through the 10K resistor
	Fan         hal.Pin
	ModeSelect  hal.Pin // input, low selects simple mode
	Strap       hal.Pin // input, sampled once: high selects high-sensitivity fan mode
}

func (hw Hardware) complete() bool {
	return hw.ADC != nil && hw.Interrupts != nil && hw.Watchdog != nil &&
		hw.NearEmitter != nil && hw.FarEmitter != nil &&
		hw.Approaching != nil && hw.On != nil && hw.Fan != nil &&
		hw.ModeSelect != nil && hw.Strap != nil
}

// Snapshot is a consistent copy of the interrupt-owned state.
type Snapshot struct {
	Sums  schedule.Sums
	Ticks uint16
}

// Reading returns the infrared part of the snapshot.
func (s Snapshot) Reading() proximity.Reading {
	return proximity.Reading{Near: s.Sums.Near, Far: s.Sums.Far, Ambient: s.Sums.Ambient}
}

// Option configures a Device.
type Option func(*Device)

// WithLogger logs output level and fan transitions at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(d *Device) {
		if l != nil {
			d.log = l
		}
	}
}

// Device is the probe firmware core.
type Device struct {
	hw       Hardware
	settings Settings
	mode     fan.Mode

	sched      *schedule.Scheduler
	encoder    *proximity.Encoder
	fan        *fan.Controller
	thresholds proximity.Thresholds

	interval     uint16
	lastFanCheck uint16
	level        proximity.Level

	log *slog.Logger
}

// New latches the fan mode from the strap, fills the filters and returns a
// device ready for its timer to be started. Readings are not accumulated
// until the main loop has seen SettleTicks interrupts.
func New(hw Hardware, s Settings, opts ...Option) (*Device, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if !hw.complete() {
		return nil, ErrMissingHardware
	}

	mode := fan.ModeFromStrap(hw.Strap.Get())
	profile := s.Profile(mode)
	signal, reference := profile.InitialReadings()

	// In standard mode nothing ever samples the reference filter, so it stays
	// at the fixed calibration baseline it is filled with here.
	filters := schedule.Filters{
		Near:         filter.New(s.IRSamplesAveraged, 0),
		Far:          filter.New(s.IRSamplesAveraged, 0),
		Ambient:      filter.New(s.IRSamplesAveraged, 0),
		FanSignal:    filter.New(s.FanSamplesAveraged, signal),
		FanReference: filter.New(s.FanSamplesAveraged, reference),
	}

	d := &Device{
		hw:         hw,
		settings:   s,
		mode:       mode,
		sched:      schedule.New(hw.ADC, hw.NearEmitter, hw.FarEmitter, filters, mode == fan.HighSensitivity),
		encoder:    proximity.NewEncoder(hw.Approaching, hw.On),
		fan:        fan.NewController(hw.Fan, hw.Watchdog, profile.Scaled(s.FanSamplesAveraged), s.FanMinOnChecks()),
		thresholds: s.Proximity(),
		interval:   s.FanInterval(),
		log:        slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(d)
	}

	hw.ADC.Select(hal.MuxPhototransistor)
	return d, nil
}

// Tick is the timer interrupt handler.
func (d *Device) Tick() {
	d.sched.Tick()
}

// Snapshot copies the filter sums and tick counter with the interrupt masked.
func (d *Device) Snapshot() Snapshot {
	st := d.hw.Interrupts.Disable()
	s := Snapshot{Sums: d.sched.Sums(), Ticks: d.sched.Ticks()}
	d.hw.Interrupts.Restore(st)
	return s
}

func (d *Device) ticks() uint16 {
	st := d.hw.Interrupts.Disable()
	t := d.sched.Ticks()
	d.hw.Interrupts.Restore(st)
	return t
}

// Step runs one main loop iteration and returns the level it drove.
func (d *Device) Step() proximity.Level {
	if !d.sched.Running() {
		// Readings from the first interrupts after the timer starts are unreliable.
		if d.ticks() < d.settings.SettleTicks {
			return d.level
		}
		d.sched.SetRunning(true)
		d.lastFanCheck = 0
		d.log.Debug("sampling started", "fan_mode", d.mode)
	}

	snap := d.Snapshot()
	mode := proximity.ModeFromInput(d.hw.ModeSelect.Get())
	level := proximity.Classify(snap.Reading(), mode, d.thresholds)
	d.encoder.Drive(level)
	if level != d.level {
		d.log.Debug("output level", "from", d.level, "to", level, "mode", mode,
			"near", snap.Sums.Near, "far", snap.Sums.Far, "ambient", snap.Sums.Ambient)
		d.level = level
	}

	// Advance by exactly one interval so loop jitter does not shift the cadence.
	if d.ticks()-d.lastFanCheck >= d.interval {
		d.checkFan()
		d.lastFanCheck += d.interval
	}
	return level
}

func (d *Device) checkFan() {
	snap := d.Snapshot()
	switch ev := d.fan.Check(snap.Sums.FanSignal, snap.Sums.FanReference); ev {
	case fan.OverTemperature, fan.Disconnected:
		d.log.Debug("fan on", "reason", ev, "signal", snap.Sums.FanSignal, "reference", snap.Sums.FanReference)
	case fan.Cooled:
		d.log.Debug("fan off", "signal", snap.Sums.FanSignal, "reference", snap.Sums.FanReference)
	}
}

// Run loops Step until ctx is done, yielding between iterations. Firmware
// passes a context that is never cancelled; a hung loop is recovered by the
// watchdog, which only the fan check refreshes.
func (d *Device) Run(ctx context.Context) {
	done := ctx.Done()
	for {
		select {
		case <-done:
			return
		default:
		}
		d.Step()
		runtime.Gosched()
	}
}

// FanMode returns the latched fan mode.
func (d *Device) FanMode() fan.Mode {
	return d.mode
}

// Running reports whether the settle period is over.
func (d *Device) Running() bool {
	return d.sched.Running()
}

// Level returns the level driven by the last Step.
func (d *Device) Level() proximity.Level {
	return d.level
}

// FanOn reports whether the fan line is driven.
func (d *Device) FanOn() bool {
	return d.fan.On()
}

// Settings returns the settings the device was built with.
func (d *Device) Settings() Settings {
	return d.settings
}
