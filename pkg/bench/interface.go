// Package bench talks to the bench logger that watches a probe: the probe's
// analog output, its fan line and the mode-select line the logger drives.
package bench

// Device defines the interface for bench devices (real or mocked).
type Device interface {
	Connect() error
	Close() error
	Samples() <-chan RawSample
	SetSimple(simple bool) error
	IsConnected() bool
}

// Ensure Serial implements Device.
var _ Device = (*Serial)(nil)

// Ensure Mock implements Device.
var _ Device = (*Mock)(nil)
