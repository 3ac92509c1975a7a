package bench

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/run"

	"github.com/itohio/irprobe/pkg/config"
	"github.com/itohio/irprobe/pkg/probe"
	"github.com/itohio/irprobe/pkg/proximity"
	"github.com/itohio/irprobe/pkg/sim"
)

// Mock runs the probe firmware core on a simulated board and samples its
// output the way the bench logger does. The plant follows the configured sweep.
type Mock struct {
	cfg      *config.MockConfig
	settings probe.Settings
	log      *slog.Logger

	samples   chan RawSample
	mu        sync.RWMutex
	cancel    context.CancelFunc
	done      chan struct{}
	connected bool

	board  *sim.Board
	device *probe.Device
}

// NewMock creates a new mocked bench. A nil cfg uses the default scenario.
func NewMock(cfg *config.MockConfig, settings probe.Settings, log *slog.Logger) *Mock {
	if cfg == nil {
		def := config.Default().Mock
		cfg = &def
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &Mock{
		cfg:      cfg,
		settings: settings,
		log:      log,
		samples:  make(chan RawSample, DefaultBufferSize),
	}
}

// Connect powers up the simulated probe and starts sampling it.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return fmt.Errorf("already connected")
	}

	// Watchdog timeout of half a second, as on the probe.
	board := sim.NewBoard(m.cfg.Plant, uint32(m.settings.TimerFrequency/2))
	dev, err := probe.New(board.Hardware(), m.settings, probe.WithLogger(m.log))
	if err != nil {
		return fmt.Errorf("failed to start probe: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.board = board
	m.device = dev
	m.cancel = cancel
	m.done = make(chan struct{})
	m.connected = true

	var g run.Group
	g.Add(func() error {
		return sim.RunTimer(ctx, int(m.settings.TimerFrequency), m.cfg.TimerPeriod, func() {
			board.Interrupt(dev.Tick)
		})
	}, func(error) { cancel() })
	g.Add(func() error {
		dev.Run(ctx)
		return nil
	}, func(error) { cancel() })
	g.Add(func() error {
		m.generateSamples(ctx)
		return nil
	}, func(error) { cancel() })

	go func() {
		defer close(m.done)
		if err := g.Run(); err != nil {
			m.log.Error("mock stopped", "err", err)
		}
	}()

	m.log.Info("mock probe connected", "fan_mode", dev.FanMode(), "simple", m.cfg.Plant.Simple)
	return nil
}

// Close stops the simulated probe.
func (m *Mock) Close() error {
	m.mu.Lock()
	if !m.connected {
		m.mu.Unlock()
		return nil
	}
	m.cancel()
	done := m.done
	m.connected = false
	m.mu.Unlock()

	<-done
	close(m.samples)

	return nil
}

// Samples returns the channel for reading samples.
func (m *Mock) Samples() <-chan RawSample {
	return m.samples
}

// SetSimple drives the simulated mode-select line.
func (m *Mock) SetSimple(simple bool) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.connected {
		return fmt.Errorf("not connected")
	}
	m.board.SetSimple(simple)
	return nil
}

// IsConnected returns whether the device is currently connected.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// Board returns the simulated board, or nil before Connect.
func (m *Mock) Board() *sim.Board {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.board
}

// generateSamples advances the sweep and emits a sample every SampleRate.
func (m *Mock) generateSamples(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.SampleRate)
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.cfg.Sweep.Apply(m.board.Plant, now.Sub(start))
			select {
			case m.samples <- m.generateSample(now):
			case <-ctx.Done():
				return
			default:
				// Channel full, skip
			}
		}
	}
}

// generateSample reads the probe output lines as the bench logger would.
func (m *Mock) generateSample(now time.Time) RawSample {
	return RawSample{
		Timestamp: now,
		Output:    outputCounts(m.board.HostReading()),
		Fan:       m.board.Fan.Get(),
		Simple:    !m.board.ModeSelect.Get(),
	}
}

// outputCounts rescales a 10-bit host reading to the bench logger converter.
func outputCounts(reading uint16) uint16 {
	return uint16((uint32(reading)*MaxOutput + proximity.FullScale/2) / proximity.FullScale)
}
