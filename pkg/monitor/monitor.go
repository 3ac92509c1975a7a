// Package monitor keeps a time window of decoded probe samples and tracks
// trigger, saturation and fan-run events inside it.
package monitor

import (
	"sync"
	"time"

	"github.com/itohio/irprobe/pkg/config"
	"github.com/itohio/irprobe/pkg/proximity"
	"github.com/itohio/irprobe/pkg/sample"
)

var _ ProbeMonitor = (*Monitor)(nil)

// Kind identifies what an event tracks.
type Kind uint8

const (
	// Trigger spans samples at On or above.
	Trigger Kind = iota
	// Saturation spans samples at Saturated.
	Saturation
	// FanRun spans samples with the fan line driven.
	FanRun
)

// Kinds lists every event kind.
var Kinds = [...]Kind{Trigger, Saturation, FanRun}

func (k Kind) String() string {
	switch k {
	case Trigger:
		return "trigger"
	case Saturation:
		return "saturation"
	case FanRun:
		return "fan"
	default:
		return "unknown"
	}
}

func (k Kind) active(s sample.Sample) bool {
	switch k {
	case Trigger:
		return s.Level >= proximity.On
	case Saturation:
		return s.Level == proximity.Saturated
	case FanRun:
		return s.Fan
	}
	return false
}

// Event is a run of consecutive samples for which its kind holds.
type Event struct {
	Kind       Kind
	StartIndex int       // Start sample index in buffer, 0 if the event began before the window
	EndIndex   int       // End sample index in buffer (updated while the event is open)
	StartTime  time.Time // Time of the first sample of the event
	EndTime    time.Time // Time of the last sample of the event
	Open       bool      // still in progress
}

// Duration returns the time between the first and last sample of the event.
func (e Event) Duration() time.Duration {
	return e.EndTime.Sub(e.StartTime)
}

// ProbeMonitor processes samples, maintains the window, and detects events.
type ProbeMonitor interface {
	ProcessSamples(input <-chan sample.Sample)
	Samples() []sample.Sample                                 // Current window, oldest first
	Events() []Event                                          // Events within the window, in start order
	OnUpdate(func(samples []sample.Sample, events []Event)) // Register callback for updates
}

// Monitor implements ProbeMonitor.
type Monitor struct {
	samples []sample.Sample // oldest first, removed by timestamp
	events  []Event

	mu sync.RWMutex

	callbacks []func(samples []sample.Sample, events []Event)
	cbMu      sync.RWMutex

	windowDuration   time.Duration
	minEventDuration time.Duration

	// Set when the input channel closes, prevents further callbacks
	shutdown bool
}

// New creates a new Monitor.
func New(cfg *config.Config) *Monitor {
	return &Monitor{
		windowDuration:   time.Duration(cfg.Monitor.WindowSeconds * float64(time.Second)),
		minEventDuration: cfg.Monitor.MinEventDuration,
	}
}

// ProcessSamples consumes samples until input closes. After that no
// callbacks are sent until ResetShutdown.
func (m *Monitor) ProcessSamples(input <-chan sample.Sample) {
	for s := range input {
		m.processSample(s)
	}
	m.mu.Lock()
	m.shutdown = true
	m.mu.Unlock()
}

// processSample adds a sample to the window and updates the events.
func (m *Monitor) processSample(s sample.Sample) {
	m.mu.Lock()
	m.samples = append(m.samples, s)
	m.trim(s.Timestamp.Add(-m.windowDuration))
	m.updateEvents()
	shouldNotify := !m.shutdown
	m.mu.Unlock()

	if shouldNotify {
		m.notifyCallbacks()
	}
}

// trim drops samples at or before cutoff and the events that ended with them.
func (m *Monitor) trim(cutoff time.Time) {
	n := 0
	for n < len(m.samples)-1 && !m.samples[n].Timestamp.After(cutoff) {
		n++
	}
	if n == 0 {
		return
	}
	m.samples = m.samples[n:]

	events := m.events[:0]
	for _, e := range m.events {
		e.StartIndex -= n
		e.EndIndex -= n
		if e.EndIndex < 0 {
			continue
		}
		if e.StartIndex < 0 {
			e.StartIndex = 0
		}
		events = append(events, e)
	}
	m.events = events
}

// updateEvents opens, extends or closes an event of every kind for the newest sample.
func (m *Monitor) updateEvents() {
	last := len(m.samples) - 1
	s := m.samples[last]

	for _, k := range Kinds {
		open := m.openEvent(k)
		switch {
		case k.active(s) && open >= 0:
			m.events[open].EndIndex = last
			m.events[open].EndTime = s.Timestamp
		case k.active(s):
			m.events = append(m.events, Event{
				Kind:       k,
				StartIndex: last,
				EndIndex:   last,
				StartTime:  s.Timestamp,
				EndTime:    s.Timestamp,
				Open:       true,
			})
		case open >= 0:
			m.events[open].Open = false
			if m.events[open].Duration() < m.minEventDuration {
				// Glitch
				m.events = append(m.events[:open], m.events[open+1:]...)
			}
		}
	}
}

func (m *Monitor) openEvent(k Kind) int {
	for i := len(m.events) - 1; i >= 0; i-- {
		if m.events[i].Kind == k && m.events[i].Open {
			return i
		}
	}
	return -1
}

// Samples returns a copy of the current samples buffer.
func (m *Monitor) Samples() []sample.Sample {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]sample.Sample, len(m.samples))
	copy(result, m.samples)
	return result
}

// Events returns a copy of the current events.
func (m *Monitor) Events() []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Event, len(m.events))
	copy(result, m.events)
	return result
}

// Count returns the number of events of kind k within the window.
func (m *Monitor) Count(k Kind) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, e := range m.events {
		if e.Kind == k {
			n++
		}
	}
	return n
}

// OnUpdate registers a callback function that will be called when samples are updated.
// The callback should copy data quickly and return as fast as possible.
func (m *Monitor) OnUpdate(callback func(samples []sample.Sample, events []Event)) {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	m.callbacks = append(m.callbacks, callback)
}

// ResetShutdown resets the shutdown flag, allowing callbacks to be sent again.
// This should be called before starting a new measurement chain.
func (m *Monitor) ResetShutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdown = false
}

// Reset clears the window.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples = nil
	m.events = nil
}

// notifyCallbacks invokes all registered callbacks with copies of the current data.
func (m *Monitor) notifyCallbacks() {
	samples := m.Samples()
	events := m.Events()

	m.cbMu.RLock()
	callbacks := make([]func(samples []sample.Sample, events []Event), len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.cbMu.RUnlock()

	for _, cb := range callbacks {
		if cb != nil {
			cb(samples, events)
		}
	}
}
