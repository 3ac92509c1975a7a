package sim

import (
	"time"

	"github.com/chewxy/math32"
)

// Sweep moves the surface and heats the thermistor along triangle waves.
// A zero period parks the surface at MaxDistance or the thermistor at
// MinTemperature.
type Sweep struct {
	MinDistance    float32       `yaml:"min_distance"`
	MaxDistance    float32       `yaml:"max_distance"`
	DistancePeriod time.Duration `yaml:"distance_period"`

	MinTemperature    float32       `yaml:"min_temperature"`
	MaxTemperature    float32       `yaml:"max_temperature"`
	TemperaturePeriod time.Duration `yaml:"temperature_period"`
}

// DefaultSweep lowers the probe from 8mm to contact every ten seconds and
// cycles the hot end through the fan thresholds every minute.
func DefaultSweep() Sweep {
	return Sweep{
		MinDistance:       0,
		MaxDistance:       8,
		DistancePeriod:    10 * time.Second,
		MinTemperature:    25,
		MaxTemperature:    55,
		TemperaturePeriod: time.Minute,
	}
}

// At returns the surface distance and thermistor temperature at t.
func (s Sweep) At(t time.Duration) (distance, temperature float32) {
	distance = s.MaxDistance - (s.MaxDistance-s.MinDistance)*triangle(t, s.DistancePeriod)
	temperature = s.MinTemperature + (s.MaxTemperature-s.MinTemperature)*triangle(t, s.TemperaturePeriod)
	return distance, temperature
}

// Apply sets the plant to the sweep state at t.
func (s Sweep) Apply(p *Plant, t time.Duration) {
	d, c := s.At(t)
	p.SetDistance(d)
	p.SetTemperature(c)
}

// triangle rises from 0 to 1 over the first half of period and falls back over the second.
func triangle(t, period time.Duration) float32 {
	if period <= 0 {
		return 0
	}
	phase := float32(t%period) / float32(period)
	return 1 - math32.Abs(2*phase-1)
}
