package sample

// DownsampleSamples downsamples a slice of samples to a maximum number of points.
// Each output point stands for a bucket of consecutive samples and is the
// bucket's sample with the highest level, so short triggers stay visible.
// Destination-based: reuses dst if it has sufficient capacity, otherwise allocates new.
// Returns the destination slice (may be dst if reused, or a new slice if dst was too small).
// If len(samples) <= maxPoints, copies all samples to dst (or allocates if dst is nil/too small).
func DownsampleSamples(dst []Sample, samples []Sample, maxPoints int) []Sample {
	if len(samples) <= maxPoints {
		if cap(dst) >= len(samples) {
			dst = dst[:len(samples)]
			copy(dst, samples)
			return dst
		}
		result := make([]Sample, len(samples))
		copy(result, samples)
		return result
	}

	if cap(dst) >= maxPoints {
		dst = dst[:0]
	} else {
		dst = make([]Sample, 0, maxPoints)
	}

	step := float64(len(samples)) / float64(maxPoints)

	for i := 0; i < maxPoints; i++ {
		start := int(float64(i) * step)
		end := int(float64(i+1) * step)
		if end > len(samples) {
			end = len(samples)
		}
		if start >= end {
			continue
		}

		pick := start
		for j := start + 1; j < end; j++ {
			if samples[j].Level > samples[pick].Level {
				pick = j
			}
		}
		dst = append(dst, samples[pick])
	}

	return dst
}
