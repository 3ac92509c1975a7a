package sim

import (
	"math/rand"
	"sync"

	"github.com/chewxy/math32"
	"github.com/itohio/irprobe/pkg/filter"
	"github.com/itohio/irprobe/pkg/hal"
)

const kelvin = 273.15

// PlantConfig describes the simulated optics, surface and thermistor.
// Distances are in millimetres, optical values in converter counts.
type PlantConfig struct {
	NearAmplitude float32 `yaml:"near_amplitude"` // near emitter reflection at zero distance
	NearDecay     float32 `yaml:"near_decay"`     // e-folding distance of the near reflection
	FarAmplitude  float32 `yaml:"far_amplitude"`
	FarDecay      float32 `yaml:"far_decay"`
	Reflectivity  float32 `yaml:"reflectivity"` // surface reflectivity multiplier
	Ambient       float32 `yaml:"ambient"`      // background light reading
	Noise         float32 `yaml:"noise"`        // peak uniform noise added to each conversion
	Distance      float32 `yaml:"distance"`

	Temperature           float32 `yaml:"temperature"` // thermistor temperature, C
	ThermistorConnected   bool    `yaml:"thermistor_connected"`
	R25                   float32 `yaml:"r25"`  // thermistor resistance at 25C
	Beta                  float32 `yaml:"beta"` // thermistor beta
	SeriesStandard        float32 `yaml:"series_standard"`
	SeriesHighSensitivity float32 `yaml:"series_high_sensitivity"`
	ReferenceRatio        float32 `yaml:"reference_ratio"`   // reference node voltage as a fraction of supply
	DifferentialGain      float32 `yaml:"differential_gain"` // counts per unit of supply in differential mode

	HighSensitivity bool  `yaml:"high_sensitivity"` // strap left open
	Simple          bool  `yaml:"simple"`           // mode-select tied low
	Seed            int64 `yaml:"seed"`
}

// DefaultPlantConfig returns a plant whose near and far reflections cross at
// about 2.5mm, with a 100K NTC that reaches the fan-on threshold near 42C.
func DefaultPlantConfig() PlantConfig {
	return PlantConfig{
		NearAmplitude:         1200,
		NearDecay:             1.2,
		FarAmplitude:          400,
		FarDecay:              2.5,
		Reflectivity:          1,
		Ambient:               20,
		Noise:                 0,
		Distance:              20,
		Temperature:           25,
		ThermistorConnected:   true,
		R25:                   100000,
		Beta:                  4138,
		SeriesStandard:        4700,
		SeriesHighSensitivity: 1000,
		ReferenceRatio:        0.99883,
		DifferentialGain:      10240,
		HighSensitivity:       true,
		Simple:                false,
		Seed:                  1,
	}
}

// Plant is the physical world seen by the converter. It is safe for
// concurrent use.
type Plant struct {
	mu  sync.Mutex
	cfg PlantConfig
	rng *rand.Rand
}

// NewPlant creates a plant from cfg.
func NewPlant(cfg PlantConfig) *Plant {
	return &Plant{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
}

// SetDistance moves the surface.
func (p *Plant) SetDistance(mm float32) {
	p.mu.Lock()
	p.cfg.Distance = mm
	p.mu.Unlock()
}

// SetAmbient sets the background light reading.
func (p *Plant) SetAmbient(counts float32) {
	p.mu.Lock()
	p.cfg.Ambient = counts
	p.mu.Unlock()
}

// SetTemperature sets the thermistor temperature.
func (p *Plant) SetTemperature(c float32) {
	p.mu.Lock()
	p.cfg.Temperature = c
	p.mu.Unlock()
}

// SetThermistorConnected plugs or unplugs the thermistor.
func (p *Plant) SetThermistorConnected(connected bool) {
	p.mu.Lock()
	p.cfg.ThermistorConnected = connected
	p.mu.Unlock()
}

// Config returns the current plant state.
func (p *Plant) Config() PlantConfig {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg
}

// Reflection returns the noiseless near and far emitter contributions at the current distance.
func (p *Plant) Reflection() (near, far float32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reflection()
}

func (p *Plant) reflection() (near, far float32) {
	d := math32.Max(p.cfg.Distance, 0)
	near = p.cfg.Reflectivity * p.cfg.NearAmplitude * math32.Exp(-d/p.cfg.NearDecay)
	far = p.cfg.Reflectivity * p.cfg.FarAmplitude * math32.Exp(-d/p.cfg.FarDecay)
	return near, far
}

// Phototransistor returns a single-ended conversion with the given emitters lit.
func (p *Plant) Phototransistor(nearOn, farOn bool) uint16 {
	p.mu.Lock()
	defer p.mu.Unlock()

	near, far := p.reflection()
	v := p.cfg.Ambient
	if nearOn {
		v += near
	}
	if farOn {
		v += far
	}
	return unipolar(v + p.noise())
}

// Resistance returns the thermistor resistance, or +Inf when disconnected.
func (p *Plant) Resistance() float32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resistance()
}

func (p *Plant) resistance() float32 {
	if !p.cfg.ThermistorConnected {
		return math32.Inf(1)
	}
	inv := 1/(p.cfg.Temperature+kelvin) - 1/(25+kelvin)
	return p.cfg.R25 * math32.Exp(p.cfg.Beta*inv)
}

// divider returns the thermistor node voltage as a fraction of supply.
func divider(r, series float32) float32 {
	if math32.IsInf(r, 1) {
		return 1
	}
	return r / (r + series)
}

// Thermistor returns the conversion for one of the thermistor inputs.
// Differential inputs yield 10-bit two's complement codes.
func (p *Plant) Thermistor(m hal.Mux) uint16 {
	p.mu.Lock()
	defer p.mu.Unlock()

	r := p.resistance()
	switch m {
	case hal.MuxThermistorDirect, hal.MuxThermistorReversed:
		v := p.cfg.DifferentialGain * (divider(r, p.cfg.SeriesHighSensitivity) - p.cfg.ReferenceRatio)
		if m == hal.MuxThermistorReversed {
			v = -v
		}
		return bipolar(v + p.noise())
	default:
		return unipolar(filter.MaxReading*divider(r, p.cfg.SeriesStandard) + p.noise())
	}
}

func (p *Plant) noise() float32 {
	if p.cfg.Noise == 0 {
		return 0
	}
	return (p.rng.Float32()*2 - 1) * p.cfg.Noise
}

func unipolar(v float32) uint16 {
	v = math32.Round(v)
	switch {
	case v <= 0:
		return 0
	case v >= filter.MaxReading:
		return filter.MaxReading
	}
	return uint16(v)
}

func bipolar(v float32) uint16 {
	v = math32.Round(v)
	switch {
	case v < -512:
		v = -512
	case v > 511:
		v = 511
	}
	return uint16(int16(v)) & filter.MaxReading
}
