package filter

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func total(values []uint16) int {
	var s int
	for _, v := range values {
		s += int(v)
	}
	return s
}

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		depth     int
		fill      uint16
		wantDepth int
		wantSum   uint16
	}{
		{name: "zeroed ir buffer", depth: 8, fill: 0, wantDepth: 8, wantSum: 0},
		{name: "standard fan reference", depth: 16, fill: 1023, wantDepth: 16, wantSum: 16368},
		{name: "high sensitivity fan reference", depth: 16, fill: 512, wantDepth: 16, wantSum: 8192},
		{name: "invalid depth", depth: 0, fill: 7, wantDepth: 1, wantSum: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(tt.depth, tt.fill)
			assert.Equal(t, tt.wantDepth, a.Depth())
			assert.Equal(t, tt.wantSum, a.Sum())
		})
	}
}

func TestUpdate_ReturnsEvicted(t *testing.T) {
	a := New(4, 0)

	for i := 0; i < 4; i++ {
		assert.Equal(t, uint16(0), a.Update(uint16(100+i)))
	}
	assert.Equal(t, uint16(100+101+102+103), a.Sum())

	// Wrapped: the oldest reading goes first.
	assert.Equal(t, uint16(100), a.Update(7))
	assert.Equal(t, uint16(101), a.Update(8))
	assert.Equal(t, uint16(102+103+7+8), a.Sum())
	assert.Equal(t, []uint16{102, 103, 7, 8}, a.Readings(nil))
}

func TestUpdate_SumInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for _, depth := range []int{1, 3, 8, 16, 64} {
		a := New(depth, uint16(rng.Intn(MaxReading+1)))
		buf := make([]uint16, 0, depth)

		for rep := 0; rep < 5000; rep++ {
			buf = a.Readings(buf)
			require.Equal(t, total(buf), int(a.Sum()), "depth %d before update", depth)

			a.Update(uint16(rng.Intn(MaxReading + 1)))

			buf = a.Readings(buf)
			require.Equal(t, total(buf), int(a.Sum()), "depth %d after update", depth)
		}
	}
}

func TestUpdate_FullScale(t *testing.T) {
	a := New(64, 0)
	for rep := 0; rep < 64; rep++ {
		a.Update(MaxReading)
	}
	assert.Equal(t, uint16(64*MaxReading), a.Sum())

	for rep := 0; rep < 64; rep++ {
		a.Update(0)
	}
	assert.Equal(t, uint16(0), a.Sum())
}

func TestReset(t *testing.T) {
	a := New(8, 0)
	a.Update(500)
	a.Update(600)

	a.Reset(10)
	assert.Equal(t, uint16(80), a.Sum())
	assert.Equal(t, uint16(10), a.Mean())
	assert.Equal(t, uint16(10), a.Update(0))
}

func TestReadings_ReusesDestination(t *testing.T) {
	a := New(4, 1)
	dst := make([]uint16, 0, 8)

	got := a.Readings(dst)
	assert.Len(t, got, 4)
	assert.Equal(t, cap(dst), cap(got))
}
