package probe_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/irprobe/pkg/fan"
	"github.com/itohio/irprobe/pkg/probe"
	"github.com/itohio/irprobe/pkg/proximity"
	"github.com/itohio/irprobe/pkg/sim"
)

// watchdogTicks is 500ms at the default timer rate.
const watchdogTicks = 4000

func newDevice(t *testing.T, cfg sim.PlantConfig, opts ...probe.Option) (*probe.Device, *sim.Board) {
	t.Helper()
	b := sim.NewBoard(cfg, watchdogTicks)
	d, err := probe.New(b.Hardware(), probe.DefaultSettings(), opts...)
	require.NoError(t, err)
	return d, b
}

// run issues n interrupts with one main loop pass after each.
func run(d *probe.Device, b *sim.Board, n int) {
	for rep := 0; rep < n; rep++ {
		b.Interrupt(d.Tick)
		d.Step()
	}
}

func TestNew_LatchesFanMode(t *testing.T) {
	cfg := sim.DefaultPlantConfig()
	d, b := newDevice(t, cfg)
	assert.Equal(t, fan.HighSensitivity, d.FanMode())

	b.Strap.Set(false)
	assert.Equal(t, fan.HighSensitivity, d.FanMode())

	cfg.HighSensitivity = false
	d, _ = newDevice(t, cfg)
	assert.Equal(t, fan.Standard, d.FanMode())
}

func TestNew_Errors(t *testing.T) {
	b := sim.NewBoard(sim.DefaultPlantConfig(), 0)

	s := probe.DefaultSettings()
	s.IRSamplesAveraged = 65
	_, err := probe.New(b.Hardware(), s)
	assert.ErrorIs(t, err, probe.ErrFilterDepth)

	hw := b.Hardware()
	hw.Fan = nil
	_, err = probe.New(hw, probe.DefaultSettings())
	assert.ErrorIs(t, err, probe.ErrMissingHardware)
}

func TestStep_SettleGate(t *testing.T) {
	cfg := sim.DefaultPlantConfig()
	cfg.Distance = 1
	d, b := newDevice(t, cfg)

	run(d, b, 3)
	assert.False(t, d.Running())
	assert.Equal(t, proximity.Off, d.Level())
	assert.Zero(t, d.Snapshot().Sums.Near)

	run(d, b, 1)
	assert.True(t, d.Running())
}

func TestStep_Levels(t *testing.T) {
	tests := []struct {
		name     string
		distance float32
		simple   bool
		want     proximity.Level
	}{
		{"contact", 0, false, proximity.Saturated},
		{"close", 1, false, proximity.On},
		{"approaching", 2.7, false, proximity.Approaching},
		{"between", 3.2, false, proximity.Off},
		{"far", 20, false, proximity.Off},
		{"simple close", 3, true, proximity.On},
		{"simple far", 8, true, proximity.Off},
		{"simple contact", 0, true, proximity.Saturated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := sim.DefaultPlantConfig()
			cfg.Distance = tt.distance
			cfg.Simple = tt.simple
			d, b := newDevice(t, cfg)

			run(d, b, 2000)
			assert.Equal(t, tt.want, d.Level())
			assert.Equal(t, tt.want, b.Output())
		})
	}
}

func TestStep_ModeSelectIsLive(t *testing.T) {
	cfg := sim.DefaultPlantConfig()
	cfg.Distance = 3.5
	d, b := newDevice(t, cfg)

	run(d, b, 2000)
	assert.Equal(t, proximity.Off, d.Level())

	b.SetSimple(true)
	run(d, b, 1)
	assert.Equal(t, proximity.On, d.Level())
}

func TestStep_FollowsSurface(t *testing.T) {
	d, b := newDevice(t, sim.DefaultPlantConfig())

	var seen []proximity.Level
	for _, mm := range []float32{10, 2.7, 1, 0, 1, 10} {
		b.Plant.SetDistance(mm)
		run(d, b, 500)
		seen = append(seen, d.Level())
	}
	assert.Equal(t, []proximity.Level{
		proximity.Off, proximity.Approaching, proximity.On, proximity.Saturated, proximity.On, proximity.Off,
	}, seen)
}

func TestStep_FanCheckCadence(t *testing.T) {
	d, b := newDevice(t, sim.DefaultPlantConfig())

	run(d, b, 499)
	assert.Zero(t, b.Watchdog.Updates())

	run(d, b, 1)
	assert.Equal(t, uint64(1), b.Watchdog.Updates())

	run(d, b, 1500)
	assert.Equal(t, uint64(4), b.Watchdog.Updates())
	assert.False(t, b.Watchdog.Expired())
	assert.False(t, d.FanOn())
}

func TestStep_FanCheckCatchesUp(t *testing.T) {
	d, b := newDevice(t, sim.DefaultPlantConfig())
	run(d, b, 4)

	// A stalled main loop resumes one check per pass until it is back on cadence.
	for rep := 0; rep < 1600; rep++ {
		b.Interrupt(d.Tick)
	}
	assert.False(t, b.Watchdog.Expired())
	d.Step()
	d.Step()
	d.Step()
	assert.Equal(t, uint64(3), b.Watchdog.Updates())
	d.Step()
	assert.Equal(t, uint64(3), b.Watchdog.Updates())
}

func TestStep_WatchdogExpiresWithoutMainLoop(t *testing.T) {
	d, b := newDevice(t, sim.DefaultPlantConfig())
	run(d, b, 1000)
	for rep := 0; rep < watchdogTicks+1; rep++ {
		b.Interrupt(d.Tick)
	}
	assert.True(t, b.Watchdog.Expired())
}

func TestStep_FanHysteresis(t *testing.T) {
	for _, hs := range []bool{true, false} {
		cfg := sim.DefaultPlantConfig()
		cfg.HighSensitivity = hs
		t.Run(fan.ModeFromStrap(hs).String(), func(t *testing.T) {
			d, b := newDevice(t, cfg)

			run(d, b, 3000)
			assert.False(t, d.FanOn())

			b.Plant.SetTemperature(60)
			run(d, b, 3000)
			require.True(t, d.FanOn())

			// Two seconds of checks at sixteen per second before it may stop.
			b.Plant.SetTemperature(25)
			run(d, b, 8000)
			assert.True(t, d.FanOn())
			run(d, b, 12000)
			assert.False(t, d.FanOn())
		})
	}
}

func TestStep_DisconnectedThermistorRunsFan(t *testing.T) {
	for _, hs := range []bool{true, false} {
		cfg := sim.DefaultPlantConfig()
		cfg.HighSensitivity = hs
		cfg.ThermistorConnected = false
		t.Run(fan.ModeFromStrap(hs).String(), func(t *testing.T) {
			d, b := newDevice(t, cfg)
			run(d, b, 3000)
			assert.True(t, d.FanOn())
			assert.True(t, b.Fan.Get())
		})
	}
}

func TestStep_LogsTransitions(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	cfg := sim.DefaultPlantConfig()
	cfg.Distance = 1
	d, b := newDevice(t, cfg, probe.WithLogger(log))
	run(d, b, 100)

	assert.Contains(t, buf.String(), "sampling started")
	assert.Contains(t, buf.String(), "to=on")
}

func TestRun_StopsOnCancel(t *testing.T) {
	cfg := sim.DefaultPlantConfig()
	cfg.Distance = 1
	d, b := newDevice(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()
	go func() {
		_ = sim.RunTimer(ctx, 8000, time.Millisecond, func() { b.Interrupt(d.Tick) })
	}()

	assert.Eventually(t, func() bool { return b.Output() == proximity.On }, 2*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
}
