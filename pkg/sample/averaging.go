package sample

import (
	"log"
	"time"

	"github.com/itohio/irprobe/pkg/bench"
	"github.com/itohio/irprobe/pkg/config"
)

// averagingPeriod is the output rate of the averaging converters.
const averagingPeriod = 100 * time.Millisecond

// NewAveragingConverter creates a converter that averages the last windowSize
// bench readings and emits one Sample every averagingPeriod.
func NewAveragingConverter(cfg *config.Config, windowSize int, bufSize int) Converter {
	return func(in <-chan bench.RawSample) <-chan Sample {
		return averageWindow(in, windowSize, bufSize, func(window []bench.RawSample) Sample {
			return averageAndConvertSamples(window, cfg)
		})
	}
}

// NewAveragingConverterForSamples is NewAveragingConverter for samples that
// are already decoded.
func NewAveragingConverterForSamples(windowSize int, bufSize int) func(in <-chan Sample) <-chan Sample {
	return func(in <-chan Sample) <-chan Sample {
		return averageWindow(in, windowSize, bufSize, averageConvertedSamples)
	}
}

// averageWindow keeps a sliding window over in and emits average(window) on
// every period tick and once more when in closes.
func averageWindow[T any](in <-chan T, windowSize, bufSize int, average func([]T) Sample) <-chan Sample {
	if windowSize <= 0 {
		windowSize = 1
	}
	if bufSize <= 0 {
		bufSize = 100
	}
	out := make(chan Sample, bufSize)

	go func() {
		defer close(out)

		window := make([]T, 0, windowSize+1)
		ticker := time.NewTicker(averagingPeriod)
		defer ticker.Stop()

		for {
			select {
			case v, ok := <-in:
				if !ok {
					if len(window) > 0 {
						select {
						case out <- average(window):
						default:
						}
					}
					return
				}
				window = append(window, v)
				if len(window) > windowSize {
					window = window[1:]
				}

			case <-ticker.C:
				if len(window) == 0 {
					continue
				}
				select {
				case out <- average(window):
				default:
					log.Printf("Averaging converter output channel full")
				}
			}
		}
	}()

	return out
}

// averageAndConvertSamples averages a slice of RawSamples and converts to Sample.
// The level is decoded from the most recent sample, not the average, so a
// transition never shows up as an intermediate level. Timestamp and line
// states are also taken from the most recent sample.
func averageAndConvertSamples(samples []bench.RawSample, cfg *config.Config) Sample {
	if len(samples) == 0 {
		return Sample{}
	}

	var sum uint32
	for _, s := range samples {
		sum += uint32(s.Output)
	}

	s := convertSample(samples[len(samples)-1], cfg)
	s.Reading = toHostScale(uint16(float64(sum)/float64(len(samples))+0.5), cfg.Bench.ADCFullScale)
	return s
}

// averageConvertedSamples averages the readings of a slice of Samples and
// keeps the level and line states of the most recent one.
func averageConvertedSamples(samples []Sample) Sample {
	if len(samples) == 0 {
		return Sample{}
	}

	var sum float64
	for _, s := range samples {
		sum += s.Reading
	}

	avg := samples[len(samples)-1]
	avg.Reading = sum / float64(len(samples))
	return avg
}
