package proximity

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

var th8 = ScaledThresholds(8)

func TestScaledThresholds(t *testing.T) {
	assert.Equal(t, Thresholds{Far: 80, SimpleNear: 240, Saturated: 6960}, th8)
	assert.Equal(t, Thresholds{Far: 160, SimpleNear: 480, Saturated: 13920}, ScaledThresholds(16))
}

func TestModeFromInput(t *testing.T) {
	assert.Equal(t, Simple, ModeFromInput(false))
	assert.Equal(t, Differential, ModeFromInput(true))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		r    Reading
		mode Mode
		want Level
	}{
		{name: "far below threshold", r: Reading{Near: 240}, mode: Differential, want: Off},
		{name: "near above far", r: Reading{Near: 300, Far: 100}, mode: Differential, want: On},
		{name: "approaching", r: Reading{Near: 90, Far: 100}, mode: Differential, want: Approaching},
		{name: "near just above far", r: Reading{Near: 100, Far: 90}, mode: Differential, want: On},
		{name: "near too weak for approaching", r: Reading{Near: 74, Far: 90}, mode: Differential, want: Off},
		{name: "approaching ratio boundary", r: Reading{Near: 75, Far: 90}, mode: Differential, want: Approaching},
		{name: "far at threshold and near equal", r: Reading{Near: 80, Far: 80}, mode: Differential, want: Approaching},
		{name: "far at threshold near above", r: Reading{Near: 81, Far: 80}, mode: Differential, want: On},
		{name: "ambient cancels far", r: Reading{Near: 300, Far: 150, Ambient: 100}, mode: Differential, want: Off},
		{name: "ambient above both clamps to zero", r: Reading{Near: 50, Far: 60, Ambient: 1000}, mode: Differential, want: Off},
		{name: "near saturated", r: Reading{Near: 6960}, mode: Differential, want: Saturated},
		{name: "far saturated", r: Reading{Far: 6960, Ambient: 6000}, mode: Differential, want: Saturated},
		{name: "just below saturation", r: Reading{Near: 6959, Far: 100}, mode: Differential, want: On},
		{name: "simple below threshold", r: Reading{Near: 200}, mode: Simple, want: Off},
		{name: "simple above threshold", r: Reading{Near: 260}, mode: Simple, want: On},
		{name: "simple at threshold", r: Reading{Near: 240}, mode: Simple, want: On},
		{name: "simple ignores far", r: Reading{Near: 100, Far: 90}, mode: Simple, want: Off},
		{name: "simple ambient cancels", r: Reading{Near: 300, Ambient: 100}, mode: Simple, want: Off},
		{name: "simple saturated", r: Reading{Near: 7000}, mode: Simple, want: Saturated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.r, tt.mode, th8))
		})
	}
}

func randomReading(rng *rand.Rand) Reading {
	return Reading{
		Near:    uint16(rng.Intn(8 * 1024)),
		Far:     uint16(rng.Intn(8 * 1024)),
		Ambient: uint16(rng.Intn(8 * 1024)),
	}
}

func TestClassify_Idempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for rep := 0; rep < 2000; rep++ {
		r := randomReading(rng)
		for _, mode := range []Mode{Differential, Simple} {
			first := Classify(r, mode, th8)
			for rep := 0; rep < 3; rep++ {
				assert.Equal(t, first, Classify(r, mode, th8))
			}
		}
	}
}

func TestClassify_MonotonicInNear(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for rep := 0; rep < 300; rep++ {
		far := uint16(rng.Intn(8 * 1024))
		ambient := uint16(rng.Intn(2000))
		for _, mode := range []Mode{Differential, Simple} {
			prev := Off
			for near := 0; near <= 8*1023; near += 7 {
				l := Classify(Reading{Near: uint16(near), Far: far, Ambient: ambient}, mode, th8)
				if !assert.GreaterOrEqual(t, l, prev, "far=%d ambient=%d near=%d mode=%v", far, ambient, near, mode) {
					return
				}
				prev = l
			}
		}
	}
}

func TestClassify_SaturationOverrides(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	for rep := 0; rep < 1000; rep++ {
		r := randomReading(rng)
		r.Near = th8.Saturated + uint16(rng.Intn(1000))
		assert.Equal(t, Saturated, Classify(r, Differential, th8))
		assert.Equal(t, Saturated, Classify(r, Simple, th8))
	}
}

func TestClassify_SimpleNeverApproaching(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for rep := 0; rep < 5000; rep++ {
		assert.NotEqual(t, Approaching, Classify(randomReading(rng), Simple, th8))
	}
}

func TestLevel_String(t *testing.T) {
	assert.Equal(t, "off", Off.String())
	assert.Equal(t, "approaching", Approaching.String())
	assert.Equal(t, "on", On.String())
	assert.Equal(t, "saturated", Saturated.String())
	assert.Equal(t, "unknown", Level(9).String())
}
