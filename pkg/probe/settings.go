package probe

import (
	"fmt"
	"math"

	"github.com/itohio/irprobe/pkg/fan"
	"github.com/itohio/irprobe/pkg/filter"
	"github.com/itohio/irprobe/pkg/proximity"
)

// MaxDepth keeps depth*1023 within the 16-bit filter sums.
const MaxDepth = 64

// Settings are the compile-time tuning constants of the probe. Thresholds
// are given per reading and scaled by the filter depths.
type Settings struct {
	TimerFrequency     uint16 // sampling interrupt rate, Hz
	IRSamplesAveraged  int
	FanSamplesAveraged int
	FanCheckFrequency  uint16 // fan checks per second
	FanOnSeconds       uint16 // minimum fan run time
	SettleTicks        uint16 // ticks ignored after the timer starts

	FarReading        uint16
	SimpleNearReading uint16
	SaturatedReading  uint16

	Standard        fan.Profile
	HighSensitivity fan.Profile
}

// DefaultSettings returns the tuning shipped with the probe.
func DefaultSettings() Settings {
	return Settings{
		TimerFrequency:     8000,
		IRSamplesAveraged:  8,
		FanSamplesAveraged: 16,
		FanCheckFrequency:  16,
		FanOnSeconds:       2,
		SettleTicks:        4,
		FarReading:         proximity.FarReading,
		SimpleNearReading:  proximity.SimpleNearReading,
		SaturatedReading:   proximity.SaturatedReading,
		Standard:           fan.StandardProfile,
		HighSensitivity:    fan.HighSensitivityProfile,
	}
}

// Validate checks that s can be represented by the 16-bit sums and that the
// fan bands are ordered.
func (s Settings) Validate() error {
	if s.TimerFrequency == 0 {
		return ErrTimerFrequency
	}
	if s.FanCheckFrequency == 0 || s.FanCheckFrequency > s.TimerFrequency {
		return ErrFanCheckFrequency
	}
	for _, d := range []int{s.IRSamplesAveraged, s.FanSamplesAveraged} {
		if d < 1 || d > MaxDepth {
			return fmt.Errorf("%w: got %d", ErrFilterDepth, d)
		}
	}
	if s.FanOnSeconds == 0 {
		return ErrFanOnTime
	}
	if checks := uint32(s.FanOnSeconds) * uint32(s.FanCheckFrequency); checks > math.MaxUint16 {
		return fmt.Errorf("%w: got %d", ErrFanOnChecks, checks)
	}
	if s.SaturatedReading > filter.MaxReading || s.FarReading >= s.SaturatedReading || s.SimpleNearReading >= s.SaturatedReading {
		return ErrProximityBand
	}
	for name, p := range map[string]fan.Profile{"standard": s.Standard, "high-sensitivity": s.HighSensitivity} {
		if p.Connected > p.Off || p.Off >= p.On || p.On > p.Reference || p.Reference > filter.MaxReading {
			return fmt.Errorf("%w: %s profile %+v", ErrFanBand, name, p)
		}
	}
	return nil
}

// Proximity returns the classifier thresholds for the IR filter depth.
func (s Settings) Proximity() proximity.Thresholds {
	d := uint16(s.IRSamplesAveraged)
	return proximity.Thresholds{
		Far:        s.FarReading * d,
		SimpleNear: s.SimpleNearReading * d,
		Saturated:  s.SaturatedReading * d,
	}
}

// Profile returns the fan profile for m.
func (s Settings) Profile(m fan.Mode) fan.Profile {
	if m == fan.HighSensitivity {
		return s.HighSensitivity
	}
	return s.Standard
}

// FanInterval returns the number of ticks between fan checks.
func (s Settings) FanInterval() uint16 {
	return s.TimerFrequency / s.FanCheckFrequency
}

// FanMinOnChecks returns the minimum number of fan checks the fan runs for.
// Validate guarantees the product fits.
func (s Settings) FanMinOnChecks() uint16 {
	return s.FanOnSeconds * s.FanCheckFrequency
}
