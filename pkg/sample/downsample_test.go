package sample

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/irprobe/pkg/proximity"
)

func TestDownsampleSamples_NoDownsampling(t *testing.T) {
	now := time.Now()
	samples := []Sample{
		{Timestamp: now, Reading: 0},
		{Timestamp: now.Add(time.Millisecond), Reading: 445, Level: proximity.Approaching},
		{Timestamp: now.Add(2 * time.Millisecond), Reading: 578, Level: proximity.On},
	}

	result := DownsampleSamples(nil, samples, 10)
	require.Equal(t, 3, len(result))
	assert.Equal(t, samples, result)

	dst := make([]Sample, 0, 10)
	result = DownsampleSamples(dst, samples, 10)
	require.Equal(t, 3, len(result))
	assert.Equal(t, samples, result)
	assert.Equal(t, cap(dst), cap(result))
}

func TestDownsampleSamples_WithDownsampling(t *testing.T) {
	now := time.Now()
	samples := make([]Sample, 100)
	for i := range samples {
		samples[i] = Sample{
			Timestamp: now.Add(time.Duration(i) * time.Millisecond),
			Reading:   float64(i),
		}
	}

	dst := make([]Sample, 0, 20)
	result := DownsampleSamples(dst, samples, 10)
	require.Equal(t, 10, len(result))

	// Without level changes every bucket keeps its first sample.
	for i, s := range result {
		assert.Equal(t, samples[i*10], s)
	}
	assert.Equal(t, cap(dst), cap(result))
}

func TestDownsampleSamples_KeepsShortTriggers(t *testing.T) {
	now := time.Now()
	samples := make([]Sample, 100)
	for i := range samples {
		samples[i] = Sample{Timestamp: now.Add(time.Duration(i) * time.Millisecond)}
	}
	samples[37] = Sample{Timestamp: samples[37].Timestamp, Reading: 578, Level: proximity.On}
	samples[38] = Sample{Timestamp: samples[38].Timestamp, Reading: 1023, Level: proximity.Saturated}

	result := DownsampleSamples(nil, samples, 10)
	require.Len(t, result, 10)
	assert.Equal(t, proximity.Saturated, result[3].Level)
	assert.Equal(t, samples[38].Timestamp, result[3].Timestamp)
	for i, s := range result {
		if i != 3 {
			assert.Equal(t, proximity.Off, s.Level, "bucket %d", i)
		}
	}
}

func TestDownsampleSamples_DestinationReuse(t *testing.T) {
	now := time.Now()
	samples1 := []Sample{
		{Timestamp: now, Reading: 1},
		{Timestamp: now.Add(time.Millisecond), Reading: 2},
	}
	samples2 := []Sample{
		{Timestamp: now, Reading: 3},
		{Timestamp: now.Add(time.Millisecond), Reading: 4},
		{Timestamp: now.Add(2 * time.Millisecond), Reading: 5},
	}

	dst := make([]Sample, 0, 10)
	result1 := DownsampleSamples(dst, samples1, 10)
	require.Equal(t, 2, len(result1))

	result2 := DownsampleSamples(result1, samples2, 10)
	require.Equal(t, 3, len(result2))
	assert.Equal(t, cap(result1), cap(result2))
}

func TestDownsampleSamples_EmptyInput(t *testing.T) {
	result := DownsampleSamples(nil, []Sample{}, 10)
	require.Equal(t, 0, len(result))
}

func TestDownsampleSamples_UnevenBuckets(t *testing.T) {
	samples := make([]Sample, 25)
	for i := range samples {
		samples[i].Reading = float64(i)
	}
	result := DownsampleSamples(nil, samples, 10)
	assert.Len(t, result, 10)
	assert.Equal(t, float64(0), result[0].Reading)
	assert.Equal(t, float64(22), result[9].Reading)
}
