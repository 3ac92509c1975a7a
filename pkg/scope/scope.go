package scope

import (
	"image/color"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/irprobe/pkg/config"
	"github.com/itohio/irprobe/pkg/monitor"
	"github.com/itohio/irprobe/pkg/proximity"
	"github.com/itohio/irprobe/pkg/sample"
)

// ScopeWidget is a custom Fyne widget that displays the probe output trace,
// the level decode boundaries, the fan line and detected events.
type ScopeWidget struct {
	widget.BaseWidget

	cfg *config.Config

	// Data (protected by mu)
	mu      sync.RWMutex
	samples []sample.Sample
	events  []monitor.Event

	// Display buffer (reused for downsampling)
	displaySamples []sample.Sample

	xMin, xMax time.Time

	maxDisplayPoints int
}

// New creates a new ScopeWidget instance.
func New(cfg *config.Config) *ScopeWidget {
	s := &ScopeWidget{
		cfg:              cfg,
		displaySamples:   make([]sample.Sample, 0, 1000),
		maxDisplayPoints: 1000, // Limit points for efficient rendering
	}
	s.updateTimeScale()
	s.ExtendBaseWidget(s)
	s.Refresh()
	return s
}

// UpdateData updates the widget with new monitor data.
// This should be called from the monitor callback using fyne.Do().
func (s *ScopeWidget) UpdateData(samples []sample.Sample, events []monitor.Event) {
	s.mu.Lock()
	s.displaySamples = sample.DownsampleSamples(s.displaySamples, samples, s.maxDisplayPoints)
	s.samples = samples
	s.events = events
	s.updateTimeScale()
	s.mu.Unlock()

	// Refresh outside the lock, the renderer takes it again
	s.Refresh()
}

func (s *ScopeWidget) window() time.Duration {
	return time.Duration(s.cfg.Monitor.WindowSeconds * float64(time.Second))
}

// updateTimeScale keeps at least one window on the X axis. The Y axis is
// fixed to the host's 0-1023 scale.
func (s *ScopeWidget) updateTimeScale() {
	if len(s.displaySamples) == 0 {
		s.xMin = time.Now()
		s.xMax = s.xMin.Add(s.window())
		return
	}

	s.xMin = s.displaySamples[0].Timestamp
	s.xMax = s.displaySamples[len(s.displaySamples)-1].Timestamp
	if s.xMax.Sub(s.xMin) < s.window() {
		s.xMax = s.xMin.Add(s.window())
	}
}

// Latest returns the most recent sample, if any.
func (s *ScopeWidget) Latest() (sample.Sample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.samples) == 0 {
		return sample.Sample{}, false
	}
	return s.samples[len(s.samples)-1], true
}

// CreateRenderer creates the widget renderer.
func (s *ScopeWidget) CreateRenderer() fyne.WidgetRenderer {
	grid := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255}) // Dark background
	return &scopeRenderer{
		scope:   s,
		grid:    grid,
		objects: []fyne.CanvasObject{grid},
	}
}

// levelColor is the trace colour used for samples at l.
func levelColor(l proximity.Level) color.Color {
	switch l {
	case proximity.Approaching:
		return color.RGBA{R: 255, G: 215, B: 0, A: 255}
	case proximity.On:
		return color.RGBA{R: 255, G: 120, B: 0, A: 255}
	case proximity.Saturated:
		return color.RGBA{R: 230, G: 30, B: 30, A: 255}
	default:
		return color.RGBA{R: 120, G: 200, B: 120, A: 255}
	}
}
