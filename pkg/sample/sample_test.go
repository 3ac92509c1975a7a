package sample

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/itohio/irprobe/pkg/bench"
	"github.com/itohio/irprobe/pkg/config"
	"github.com/itohio/irprobe/pkg/proximity"
)

func TestToHostScale(t *testing.T) {
	tests := []struct {
		name      string
		output    uint16
		fullScale uint16
		want      float64
	}{
		{"zero", 0, 4095, 0},
		{"full scale", 4095, 4095, 1023},
		{"half", 2048, 4095, 511.6},
		{"10-bit logger", 578, 1023, 578},
		{"unset full scale", 4095, 0, 1023},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, toHostScale(tt.output, tt.fullScale), 0.1)
		})
	}
}

func TestConvertSample(t *testing.T) {
	cfg := config.Default()
	now := time.Now()

	// Nominal outputs of the resistor network as seen by a 12-bit logger.
	tests := []struct {
		name    string
		output  uint16
		want    proximity.Level
		reading float64
	}{
		{"off", 0, proximity.Off, 0},
		{"approaching", 1781, proximity.Approaching, 445},
		{"on", 2314, proximity.On, 578},
		{"saturated", 4095, proximity.Saturated, 1023},
		{"noisy on", 2200, proximity.On, 549.6},
		{"just below approaching", 880, proximity.Off, 219.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := convertSample(bench.RawSample{Timestamp: now, Output: tt.output, Fan: true}, cfg)
			assert.Equal(t, now, got.Timestamp)
			assert.Equal(t, tt.want, got.Level)
			assert.InDelta(t, tt.reading, got.Reading, 0.5)
			assert.True(t, got.Fan)
			assert.False(t, got.Simple)
		})
	}
}

func TestNewConverter_ChannelProcessing(t *testing.T) {
	cfg := config.Default()
	converter := NewConverter(cfg, 10)

	in := make(chan bench.RawSample, 5)
	out := converter(in)

	now := time.Now()
	outputs := []uint16{0, 1781, 2314}
	for i, o := range outputs {
		in <- bench.RawSample{
			Timestamp: now.Add(time.Duration(i) * time.Millisecond),
			Output:    o,
			Simple:    i == 2,
		}
	}
	close(in)

	var samples []Sample
	for s := range out {
		samples = append(samples, s)
	}

	assert.Len(t, samples, 3, "Should receive 3 samples")
	for i, s := range samples {
		assert.Equal(t, now.Add(time.Duration(i)*time.Millisecond), s.Timestamp)
		assert.Equal(t, proximity.Level(i), s.Level)
	}
	assert.True(t, samples[2].Simple)
}

func TestNewConverter_EmptyChannel(t *testing.T) {
	converter := NewConverter(config.Default(), 10)

	in := make(chan bench.RawSample)
	out := converter(in)
	close(in)

	_, ok := <-out
	assert.False(t, ok, "Output channel should be closed")
}
