// Package sim is a host-side probe board: pins, a pipelined converter, an
// interrupt lock, a watchdog and a plant model of the surface and the
// thermistor. It lets the probe core run unmodified in tests, the bench mock
// and the simulator CLI.
package sim

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/itohio/irprobe/pkg/hal"
	"github.com/itohio/irprobe/pkg/probe"
	"github.com/itohio/irprobe/pkg/proximity"
)

// Pin is an atomic digital line.
type Pin struct {
	high atomic.Bool
}

func (p *Pin) Set(high bool) { p.high.Store(high) }
func (p *Pin) Get() bool     { return p.high.Load() }

// Interrupts serialises the simulated interrupt with critical sections.
type Interrupts struct {
	mu sync.Mutex
}

func (i *Interrupts) Disable() hal.State {
	i.mu.Lock()
	return 0
}

func (i *Interrupts) Restore(hal.State) {
	i.mu.Unlock()
}

// Watchdog counts ticks since its last update.
type Watchdog struct {
	timeout uint32
	elapsed atomic.Uint32
	updates atomic.Uint64
}

// Update refreshes the watchdog.
func (w *Watchdog) Update() {
	w.elapsed.Store(0)
	w.updates.Add(1)
}

// Updates returns how many times the watchdog was refreshed.
func (w *Watchdog) Updates() uint64 {
	return w.updates.Load()
}

// Expired reports whether more than the timeout has passed since the last update.
func (w *Watchdog) Expired() bool {
	return w.timeout > 0 && w.elapsed.Load() > w.timeout
}

func (w *Watchdog) tick() {
	w.elapsed.Add(1)
}

// ADC models a converter triggered at the start of every tick. The interrupt
// reads the conversion started on the previous tick, so the emitter and
// multiplexer state it sees is the one left by the interrupt before that.
type ADC struct {
	plant *Plant
	near  *Pin
	far   *Pin

	mux     hal.Mux
	result  uint16
	pending uint16
}

// Result returns the completed conversion.
func (a *ADC) Result() uint16 { return a.result }

// Hold is immediate on the host.
func (a *ADC) Hold() {}

// Select routes m to the next conversion.
func (a *ADC) Select(m hal.Mux) { a.mux = m }

// Mux returns the selected input.
func (a *ADC) Mux() hal.Mux { return a.mux }

// Convert completes the in-flight conversion and samples the next one.
func (a *ADC) Convert() {
	a.result = a.pending
	switch a.mux {
	case hal.MuxPhototransistor:
		a.pending = a.plant.Phototransistor(a.near.Get(), a.far.Get())
	default:
		a.pending = a.plant.Thermistor(a.mux)
	}
}

// Board wires the simulated peripherals together.
type Board struct {
	Plant      *Plant
	ADC        *ADC
	Interrupts *Interrupts
	Watchdog   *Watchdog

	NearEmitter Pin
	FarEmitter  Pin
	Approaching Pin
	On          Pin
	Fan         Pin
	ModeSelect  Pin
	Strap       Pin

	ticks atomic.Uint64
}

// NewBoard creates a board. watchdogTicks is the watchdog timeout in ticks;
// zero disables expiry.
func NewBoard(cfg PlantConfig, watchdogTicks uint32) *Board {
	b := &Board{
		Plant:      NewPlant(cfg),
		Interrupts: &Interrupts{},
		Watchdog:   &Watchdog{timeout: watchdogTicks},
	}
	b.ADC = &ADC{plant: b.Plant, near: &b.NearEmitter, far: &b.FarEmitter}
	b.ModeSelect.Set(!cfg.Simple)
	b.Strap.Set(cfg.HighSensitivity)
	return b
}

// Hardware returns the probe binding for the board.
func (b *Board) Hardware() probe.Hardware {
	return probe.Hardware{
		ADC:         b.ADC,
		Interrupts:  b.Interrupts,
		Watchdog:    b.Watchdog,
		NearEmitter: &b.NearEmitter,
		FarEmitter:  &b.FarEmitter,
		Approaching: &b.Approaching,
		On:          &b.On,
		Fan:         &b.Fan,
		ModeSelect:  &b.ModeSelect,
		Strap:       &b.Strap,
	}
}

// Interrupt performs one timer period: the converter is triggered and the
// handler runs with the interrupt masked.
func (b *Board) Interrupt(handler func()) {
	st := b.Interrupts.Disable()
	b.ADC.Convert()
	handler()
	b.Interrupts.Restore(st)
	b.Watchdog.tick()
	b.ticks.Add(1)
}

// Ticks returns the number of interrupts run so far.
func (b *Board) Ticks() uint64 {
	return b.ticks.Load()
}

// Output returns the level encoded on the output lines.
func (b *Board) Output() proximity.Level {
	return proximity.FromLines(b.Approaching.Get(), b.On.Get())
}

// HostReading returns the 0-1023 value the host controller would read.
func (b *Board) HostReading() uint16 {
	return proximity.HostReading(b.Approaching.Get(), b.On.Get())
}

// SetSimple drives the mode-select line.
func (b *Board) SetSimple(simple bool) {
	b.ModeSelect.Set(!simple)
}

// RunTimer calls handler freq times per second of wall time until ctx is
// done. Host tickers cannot fire at the probe's rate, so due interrupts are
// issued in batches every period.
func RunTimer(ctx context.Context, freq int, period time.Duration, handler func()) error {
	if period <= 0 {
		period = time.Millisecond
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	start := time.Now()
	var issued int64
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			due := int64(now.Sub(start).Seconds()*float64(freq)) - issued
			for rep := int64(0); rep < due; rep++ {
				handler()
			}
			issued += due
		}
	}
}
