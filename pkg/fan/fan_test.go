package fan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePin struct{ high bool }

func (p *fakePin) Set(high bool) { p.high = high }
func (p *fakePin) Get() bool     { return p.high }

type fakeWatchdog struct{ updates int }

func (w *fakeWatchdog) Update() { w.updates++ }

const depth = 16

// sums returns signal/reference sums giving the per-reading difference diff.
func sums(p Profile, diff int) (uint16, uint16) {
	ref := uint16(p.Reference) * depth
	return uint16(int(ref) - diff*depth), ref
}

func newController(p Profile) (*Controller, *fakePin, *fakeWatchdog) {
	pin := &fakePin{}
	wd := &fakeWatchdog{}
	return NewController(pin, wd, p.Scaled(depth), 2*16), pin, wd
}

func TestModeFromStrap(t *testing.T) {
	assert.Equal(t, HighSensitivity, ModeFromStrap(true))
	assert.Equal(t, Standard, ModeFromStrap(false))
	assert.Equal(t, HighSensitivityProfile, ProfileFor(HighSensitivity))
	assert.Equal(t, StandardProfile, ProfileFor(Standard))
}

func TestProfile_Scaled(t *testing.T) {
	assert.Equal(t, Thresholds{Connected: 112, Off: 1248, On: 1472}, StandardProfile.Scaled(16))
	assert.Equal(t, Thresholds{Connected: 480, Off: 5440, On: 6400}, HighSensitivityProfile.Scaled(16))
}

func TestProfile_InitialReadingsKeepFanOff(t *testing.T) {
	for _, p := range []Profile{StandardProfile, HighSensitivityProfile} {
		c, pin, _ := newController(p)
		sig, ref := p.InitialReadings()
		assert.Equal(t, None, c.Check(sig*depth, ref*depth))
		assert.False(t, pin.high)
	}
}

func TestCheck_FanOff(t *testing.T) {
	for _, p := range []Profile{StandardProfile, HighSensitivityProfile} {
		tests := []struct {
			name   string
			diff   int
			want   Event
			wantOn bool
		}{
			{name: "signal above reference", diff: -5, want: Disconnected, wantOn: true},
			{name: "signal equals reference", diff: 0, want: Disconnected, wantOn: true},
			{name: "below connected", diff: int(p.Connected) - 1, want: Disconnected, wantOn: true},
			{name: "at connected", diff: int(p.Connected), want: None},
			{name: "between off and on", diff: int(p.Off+p.On) / 2, want: None},
			{name: "just below on", diff: int(p.On) - 1, want: None},
			{name: "at on", diff: int(p.On), want: OverTemperature, wantOn: true},
			{name: "hot", diff: int(p.On) + 50, want: OverTemperature, wantOn: true},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				c, pin, wd := newController(p)
				sig, ref := sums(p, tt.diff)
				assert.Equal(t, tt.want, c.Check(sig, ref))
				assert.Equal(t, tt.wantOn, pin.high)
				assert.Equal(t, 1, wd.updates)
				if tt.wantOn {
					assert.Equal(t, uint16(31), c.Remaining())
				}
			})
		}
	}
}

func TestCheck_MinimumOnTime(t *testing.T) {
	for _, p := range []Profile{StandardProfile, HighSensitivityProfile} {
		c, pin, wd := newController(p)

		sig, ref := sums(p, int(p.On)+10)
		require.Equal(t, OverTemperature, c.Check(sig, ref))

		// Immediately cool: the fan must stay on for 2s x 16Hz checks in total.
		sig, ref = sums(p, int(p.Off)-10)
		for i := 0; i < 31; i++ {
			assert.Equal(t, Held, c.Check(sig, ref), "check %d", i)
			assert.True(t, pin.high)
		}
		assert.Equal(t, Cooled, c.Check(sig, ref))
		assert.False(t, pin.high)
		assert.Equal(t, 33, wd.updates)
	}
}

func TestCheck_FanOnOutsideBand(t *testing.T) {
	for _, p := range []Profile{StandardProfile, HighSensitivityProfile} {
		c, pin, _ := newController(p)
		sig, ref := sums(p, int(p.On)+10)
		require.Equal(t, OverTemperature, c.Check(sig, ref))

		// Still hot, disconnected or reversed: no debounce progress.
		for _, diff := range []int{int(p.Off) + 1, int(p.Connected) - 1, 0, -3} {
			sig, ref = sums(p, diff)
			for rep := 0; rep < 100; rep++ {
				assert.Equal(t, None, c.Check(sig, ref))
			}
		}
		assert.True(t, pin.high)
		assert.Equal(t, uint16(31), c.Remaining())

		sig, ref = sums(p, int(p.Off))
		assert.Equal(t, Held, c.Check(sig, ref))
		assert.Equal(t, uint16(30), c.Remaining())
	}
}

func TestCheck_DisconnectedForcesOn(t *testing.T) {
	for _, p := range []Profile{StandardProfile, HighSensitivityProfile} {
		c, pin, _ := newController(p)

		// A disconnected thermistor while the fan runs keeps it running forever.
		sig, ref := sums(p, -1)
		require.Equal(t, Disconnected, c.Check(sig, ref))
		for rep := 0; rep < 500; rep++ {
			c.Check(sig, ref)
		}
		assert.True(t, pin.high)
	}
}

func TestEvent_String(t *testing.T) {
	assert.Equal(t, "none", None.String())
	assert.Equal(t, "held", Held.String())
	assert.Equal(t, "cooled", Cooled.String())
	assert.Equal(t, "over-temperature", OverTemperature.String())
	assert.Equal(t, "disconnected", Disconnected.String())
}
