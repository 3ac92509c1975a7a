// Package sample turns bench logger readings into decoded probe samples.
package sample

import (
	"log"
	"math"
	"time"

	"github.com/itohio/irprobe/pkg/bench"
	"github.com/itohio/irprobe/pkg/config"
	"github.com/itohio/irprobe/pkg/proximity"
)

// Sample represents a processed measurement of the probe output.
type Sample struct {
	Timestamp time.Time
	Reading   float64         // Output on the host's 0-1023 scale
	Level     proximity.Level // Level decoded from Reading
	Fan       bool
	Simple    bool
}

// Converter is a function type that converts RawSample channel to Sample channel.
type Converter func(in <-chan bench.RawSample) <-chan Sample

// NewConverter creates a converter function that transforms RawSample to Sample.
func NewConverter(cfg *config.Config, bufSize int) Converter {
	if bufSize <= 0 {
		bufSize = 100
	}

	return func(in <-chan bench.RawSample) <-chan Sample {
		out := make(chan Sample, bufSize)

		go func() {
			defer close(out)

			for raw := range in {
				select {
				case out <- convertSample(raw, cfg):
				case <-time.After(time.Second):
					log.Printf("Converter output channel full, dropping sample")
				}
			}
		}()

		return out
	}
}

// convertSample converts a RawSample to Sample using configuration.
func convertSample(raw bench.RawSample, cfg *config.Config) Sample {
	reading := toHostScale(raw.Output, cfg.Bench.ADCFullScale)
	return Sample{
		Timestamp: raw.Timestamp,
		Reading:   reading,
		Level:     decode(reading),
		Fan:       raw.Fan,
		Simple:    raw.Simple,
	}
}

// toHostScale rescales a bench logger reading to the 0-1023 scale the
// probe's host controller uses.
func toHostScale(output, fullScale uint16) float64 {
	if fullScale == 0 {
		fullScale = bench.MaxOutput
	}
	return float64(output) * proximity.FullScale / float64(fullScale)
}

func decode(reading float64) proximity.Level {
	return proximity.Decode(uint16(math.Round(reading)))
}
