package scope

import (
	"fmt"
	"image/color"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"

	"github.com/itohio/irprobe/pkg/monitor"
	"github.com/itohio/irprobe/pkg/proximity"
	"github.com/itohio/irprobe/pkg/sample"
)

const (
	marginLeft   = 60
	marginRight  = 20
	marginTop    = 20
	marginBottom = 40
	fanBand      = 6
)

// boundaries are the readings at which the host decodes a higher level.
var boundaries = []struct {
	reading uint16
	level   proximity.Level
}{
	{proximity.ApproachingContribution / 2, proximity.Approaching},
	{(proximity.ApproachingContribution + proximity.OnContribution) / 2, proximity.On},
	{(proximity.OnContribution + proximity.FullScale) / 2, proximity.Saturated},
}

// plot maps samples to widget coordinates.
type plot struct {
	x, y, width, height float32
	xMin, xMax          time.Time
}

func (p plot) xPos(t time.Time) float32 {
	span := p.xMax.Sub(p.xMin).Seconds()
	if span <= 0 {
		return p.x
	}
	return p.x + float32(t.Sub(p.xMin).Seconds()/span)*p.width
}

func (p plot) yPos(reading float64) float32 {
	return p.y + p.height - float32(reading/proximity.FullScale)*p.height
}

// scopeRenderer renders the scope widget.
type scopeRenderer struct {
	scope *ScopeWidget

	grid    *canvas.Rectangle
	objects []fyne.CanvasObject

	lastSize fyne.Size
}

// MinSize returns the minimum size of the widget.
func (r *scopeRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 300)
}

// Layout arranges the widget components.
func (r *scopeRenderer) Layout(size fyne.Size) {
	r.grid.Resize(size)

	if r.lastSize != size {
		r.lastSize = size
		r.scope.BaseWidget.Refresh()
	}
}

// Refresh redraws the trace.
func (r *scopeRenderer) Refresh() {
	r.scope.mu.RLock()
	samples := r.scope.displaySamples
	events := r.scope.events
	full := r.scope.samples
	xMin, xMax := r.scope.xMin, r.scope.xMax
	r.scope.mu.RUnlock()

	size := r.scope.Size()
	if size.Width == 0 || size.Height == 0 {
		return
	}

	p := plot{
		x:      marginLeft,
		y:      marginTop,
		width:  size.Width - marginLeft - marginRight,
		height: size.Height - marginTop - marginBottom,
		xMin:   xMin,
		xMax:   xMax,
	}

	r.objects = []fyne.CanvasObject{r.grid}
	r.drawGrid(p)
	r.drawBoundaries(p)
	r.drawFan(p, samples)
	r.drawTrace(p, samples)
	r.drawEvents(p, events, full)
	r.drawStatus(p, samples, events)
}

func (r *scopeRenderer) line(c color.Color, width float32, x1, y1, x2, y2 float32) {
	l := canvas.NewLine(c)
	l.Position1 = fyne.NewPos(x1, y1)
	l.Position2 = fyne.NewPos(x2, y2)
	l.StrokeWidth = width
	r.objects = append(r.objects, l)
}

func (r *scopeRenderer) text(s string, c color.Color, size float32, align fyne.TextAlign, x, y float32) {
	t := canvas.NewText(s, c)
	t.TextSize = size
	t.Alignment = align
	t.Move(fyne.NewPos(x, y))
	r.objects = append(r.objects, t)
}

// drawGrid draws the oscilloscope-style grid.
func (r *scopeRenderer) drawGrid(p plot) {
	gridColor := color.RGBA{R: 40, G: 40, B: 40, A: 255}
	labelColor := color.RGBA{R: 150, G: 150, B: 150, A: 255}

	const numHLines = 8
	for i := 0; i < numHLines+1; i++ {
		y := p.y + float32(i)*p.height/numHLines
		r.line(gridColor, 1, p.x, y, p.x+p.width, y)
		value := proximity.FullScale * float64(numHLines-i) / numHLines
		r.text(fmt.Sprintf("%.0f", value), labelColor, 10, fyne.TextAlignTrailing, p.x-5, y-6)
	}

	const numVLines = 10
	span := p.xMax.Sub(p.xMin)
	for i := 0; i < numVLines+1; i++ {
		x := p.x + float32(i)*p.width/numVLines
		r.line(gridColor, 1, x, p.y, x, p.y+p.height)
		r.text(formatTime(span*time.Duration(i)/numVLines), labelColor, 10, fyne.TextAlignCenter, x-20, p.y+p.height+5)
	}
}

// drawBoundaries marks the decode boundaries of the host controller.
func (r *scopeRenderer) drawBoundaries(p plot) {
	for _, b := range boundaries {
		y := p.yPos(float64(b.reading))
		c := levelColor(b.level)
		r.line(c, 0.5, p.x, y, p.x+p.width, y)
		r.text(b.level.String(), c, 9, fyne.TextAlignLeading, p.x+4, y-12)
	}
}

// drawFan shades a band under the plot while the fan line is driven.
func (r *scopeRenderer) drawFan(p plot, samples []sample.Sample) {
	y := p.y + p.height - fanBand/2
	fanColor := color.RGBA{R: 80, G: 160, B: 255, A: 255}
	for i := 0; i+1 < len(samples); i++ {
		if samples[i].Fan {
			r.line(fanColor, fanBand, p.xPos(samples[i].Timestamp), y, p.xPos(samples[i+1].Timestamp), y)
		}
	}
}

// drawTrace draws the reading, coloured by the level it decodes to.
func (r *scopeRenderer) drawTrace(p plot, samples []sample.Sample) {
	for i := 0; i+1 < len(samples); i++ {
		a, b := samples[i], samples[i+1]
		r.line(levelColor(b.Level), 1.5, p.xPos(a.Timestamp), p.yPos(a.Reading), p.xPos(b.Timestamp), p.yPos(b.Reading))
	}
}

// drawEvents draws a vertical marker at the start of every trigger and saturation.
func (r *scopeRenderer) drawEvents(p plot, events []monitor.Event, samples []sample.Sample) {
	for _, e := range events {
		if e.Kind == monitor.FanRun || e.StartIndex >= len(samples) {
			continue
		}
		c := levelColor(proximity.On)
		if e.Kind == monitor.Saturation {
			c = levelColor(proximity.Saturated)
		}
		x := p.xPos(e.StartTime)
		r.line(c, 1, x, p.y, x, p.y+p.height)
		r.text(formatTime(e.Duration()), c, 10, fyne.TextAlignLeading, x+3, p.y+2)
	}
}

// drawStatus prints the current level, fan state and event counts.
func (r *scopeRenderer) drawStatus(p plot, samples []sample.Sample, events []monitor.Event) {
	if len(samples) == 0 {
		return
	}
	last := samples[len(samples)-1]

	var counts [len(monitor.Kinds)]int
	for _, e := range events {
		counts[e.Kind]++
	}
	fan := "off"
	if last.Fan {
		fan = "on"
	}
	status := fmt.Sprintf("%s  %.0f  fan %s  triggers %d  saturations %d",
		last.Level, last.Reading, fan, counts[monitor.Trigger], counts[monitor.Saturation])
	r.text(status, color.RGBA{R: 200, G: 200, B: 200, A: 255}, 11, fyne.TextAlignLeading, p.x+p.width/2, p.y+p.height+20)
}

// Objects returns all canvas objects for rendering.
func (r *scopeRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

// Destroy cleans up resources.
func (r *scopeRenderer) Destroy() {}

func formatTime(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
