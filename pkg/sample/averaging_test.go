package sample

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/irprobe/pkg/bench"
	"github.com/itohio/irprobe/pkg/config"
	"github.com/itohio/irprobe/pkg/proximity"
)

func TestNewAveragingConverter_BasicAveraging(t *testing.T) {
	cfg := config.Default()
	converter := NewAveragingConverter(cfg, 3, 10)

	in := make(chan bench.RawSample, 10)
	out := converter(in)

	now := time.Now()
	for i := 0; i < 5; i++ {
		in <- bench.RawSample{
			Timestamp: now.Add(time.Duration(i) * time.Millisecond),
			Output:    uint16(2200 + i*10),
		}
	}

	// Wait a bit for ticker to fire
	time.Sleep(150 * time.Millisecond)
	close(in)

	var samples []Sample
	for s := range out {
		samples = append(samples, s)
	}

	assert.Greater(t, len(samples), 0, "Should receive at least one averaged sample")
	for _, s := range samples {
		// Window of the last three: 2220, 2230, 2240.
		assert.InDelta(t, 2230*1023.0/4095, s.Reading, 0.5)
		assert.Equal(t, proximity.On, s.Level)
	}
}

func TestNewAveragingConverter_EmptyChannel(t *testing.T) {
	converter := NewAveragingConverter(config.Default(), 3, 10)

	in := make(chan bench.RawSample)
	out := converter(in)
	close(in)

	_, ok := <-out
	assert.False(t, ok, "Output channel should be closed")
}

func TestNewAveragingConverter_InvalidWindowSize(t *testing.T) {
	converter := NewAveragingConverter(config.Default(), 0, 10)

	in := make(chan bench.RawSample, 5)
	out := converter(in)

	in <- bench.RawSample{Timestamp: time.Now(), Output: 1781}
	time.Sleep(150 * time.Millisecond)
	close(in)

	var samples []Sample
	for s := range out {
		samples = append(samples, s)
	}

	assert.Greater(t, len(samples), 0)
	assert.Equal(t, proximity.Approaching, samples[0].Level)
}

func TestAverageAndConvertSamples(t *testing.T) {
	cfg := config.Default()
	now := time.Now()

	assert.Equal(t, Sample{}, averageAndConvertSamples(nil, cfg))

	// A transition from off to on averages to an approaching reading but
	// keeps the level of the latest sample.
	got := averageAndConvertSamples([]bench.RawSample{
		{Timestamp: now, Output: 0},
		{Timestamp: now.Add(time.Millisecond), Output: 2314, Fan: true},
	}, cfg)
	assert.Equal(t, now.Add(time.Millisecond), got.Timestamp)
	assert.InDelta(t, 289, got.Reading, 0.5)
	assert.Equal(t, proximity.On, got.Level)
	assert.True(t, got.Fan)
}

func TestNewAveragingConverterForSamples(t *testing.T) {
	converter := NewAveragingConverterForSamples(3, 10)

	in := make(chan Sample, 10)
	out := converter(in)

	now := time.Now()
	for i := 0; i < 5; i++ {
		in <- Sample{
			Timestamp: now.Add(time.Duration(i) * time.Millisecond),
			Reading:   float64(570 + i),
			Level:     proximity.On,
		}
	}

	time.Sleep(150 * time.Millisecond)
	close(in)

	var samples []Sample
	for s := range out {
		samples = append(samples, s)
	}

	assert.Greater(t, len(samples), 0)
	for _, s := range samples {
		assert.InDelta(t, 573, s.Reading, 0.001)
		assert.Equal(t, proximity.On, s.Level)
	}
}

func TestAverageConvertedSamples(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		samples []Sample
		want    Sample
	}{
		{
			name:    "empty samples",
			samples: []Sample{},
			want:    Sample{},
		},
		{
			name:    "single sample",
			samples: []Sample{{Timestamp: now, Reading: 445, Level: proximity.Approaching}},
			want:    Sample{Timestamp: now, Reading: 445, Level: proximity.Approaching},
		},
		{
			name: "multiple samples",
			samples: []Sample{
				{Timestamp: now, Reading: 445, Level: proximity.Approaching},
				{Timestamp: now.Add(time.Millisecond), Reading: 578, Level: proximity.On},
				{Timestamp: now.Add(2 * time.Millisecond), Reading: 578, Level: proximity.On, Fan: true},
			},
			want: Sample{
				Timestamp: now.Add(2 * time.Millisecond),
				Reading:   (445 + 578 + 578) / 3.0,
				Level:     proximity.On,
				Fan:       true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := averageConvertedSamples(tt.samples)
			assert.Equal(t, tt.want.Timestamp, got.Timestamp)
			assert.InDelta(t, tt.want.Reading, got.Reading, 0.001)
			assert.Equal(t, tt.want.Level, got.Level)
			assert.Equal(t, tt.want.Fan, got.Fan)
		})
	}
}

func TestNewAveragingConverter_FlushesOnClose(t *testing.T) {
	converter := NewAveragingConverter(config.Default(), 3, 10)

	in := make(chan bench.RawSample, 4)
	out := converter(in)

	now := time.Now()
	for i, output := range []uint16{2314, 0, 0, 2314} {
		in <- bench.RawSample{Timestamp: now.Add(time.Duration(i) * time.Millisecond), Output: output}
	}
	close(in)

	var last Sample
	n := 0
	for s := range out {
		last = s
		n++
	}

	// The probe has just switched on: the window still averages low but the
	// flushed sample reports the new level.
	require.GreaterOrEqual(t, n, 1)
	assert.Equal(t, now.Add(3*time.Millisecond), last.Timestamp)
	assert.InDelta(t, 2314*1023.0/4095/3, last.Reading, 0.5)
	assert.Equal(t, proximity.On, last.Level)
}
