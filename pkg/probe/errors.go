package probe

// Error is a settings validation error.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	ErrTimerFrequency    = Error("timer frequency must be positive")
	ErrFanCheckFrequency = Error("fan check frequency must be positive and below the timer frequency")
	ErrFilterDepth       = Error("filter depth must be between 1 and 64")
	ErrFanOnTime         = Error("fan on time must be positive")
	ErrFanOnChecks       = Error("fan on time times check frequency must fit 16 bits")
	ErrFanBand           = Error("fan thresholds must satisfy connected <= off < on <= reference")
	ErrProximityBand     = Error("proximity thresholds must be below the saturation reading")
	ErrMissingHardware   = Error("hardware binding is incomplete")
)
