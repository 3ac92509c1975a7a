// Package filter implements the fixed-depth rolling average used for every
// sampled channel.
package filter

// MaxReading is the largest value a 10-bit conversion produces.
const MaxReading = 1023

// Average keeps the last Depth readings and their sum. The sum is updated
// incrementally so reading it is O(1) regardless of depth.
//
// Sum always equals the total of the stored readings as long as every
// reading fed to Update is at most MaxReading and Depth*MaxReading fits in
// 16 bits.
type Average struct {
	readings []uint16
	sum      uint16
	index    int
}

// New returns an Average of the given depth with every slot set to fill.
// A depth below 1 is treated as 1.
func New(depth int, fill uint16) *Average {
	if depth <= 0 {
		depth = 1
	}
	a := &Average{readings: make([]uint16, depth)}
	a.Reset(fill)
	return a
}

// Reset sets every slot to fill and rewinds the index.
func (a *Average) Reset(fill uint16) {
	a.sum = 0
	for i := range a.readings {
		a.readings[i] = fill
		a.sum += fill
	}
	a.index = 0
}

// Update replaces the oldest reading with v and returns the reading it evicted.
func (a *Average) Update(v uint16) uint16 {
	old := a.readings[a.index]
	// Unsigned wraparound cancels out: the result is exact whenever the
	// true sum fits in 16 bits.
	a.sum = a.sum - old + v
	a.readings[a.index] = v
	a.index++
	if a.index == len(a.readings) {
		a.index = 0
	}
	return old
}

// Sum returns the total of the stored readings.
func (a *Average) Sum() uint16 {
	return a.sum
}

// Depth returns the number of readings averaged.
func (a *Average) Depth() int {
	return len(a.readings)
}

// Mean returns Sum/Depth rounded down.
func (a *Average) Mean() uint16 {
	return a.sum / uint16(len(a.readings))
}

// Readings copies the stored readings into dst, oldest first, and returns it.
// dst is reused when it has enough capacity.
func (a *Average) Readings(dst []uint16) []uint16 {
	n := len(a.readings)
	if cap(dst) >= n {
		dst = dst[:n]
	} else {
		dst = make([]uint16, n)
	}
	for i := 0; i < n; i++ {
		dst[i] = a.readings[(a.index+i)%n]
	}
	return dst
}
