package main

import "github.com/itohio/irprobe/pkg/bench"

// tee copies every value from in to both outputs. Both outputs are closed
// once in is closed and drained; a slow reader on either side stalls both.
func tee(in <-chan bench.RawSample, bufSize int) (<-chan bench.RawSample, <-chan bench.RawSample) {
	a := make(chan bench.RawSample, bufSize)
	b := make(chan bench.RawSample, bufSize)

	go func() {
		defer close(a)
		defer close(b)
		for s := range in {
			a <- s
			b <- s
		}
	}()

	return a, b
}
