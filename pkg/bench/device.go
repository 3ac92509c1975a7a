package bench

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the standard baud rate for the XIAO bench logger.
	DefaultBaudRate = 115200
	// DefaultBufferSize is the default size for the samples channel buffer.
	DefaultBufferSize = 100
	// MaxOutput is the bench logger converter full scale.
	MaxOutput = 4095
)

// RawSample represents a raw measurement sample from the bench logger.
type RawSample struct {
	Timestamp time.Time
	Output    uint16 // 12-bit reading of the probe output (0-4095)
	Fan       bool   // fan line driven
	Simple    bool   // mode-select line held low
}

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial represents a connection to the bench logger.
type Serial struct {
	port     string
	baudRate int
	bufSize  int

	conn      serial.Port
	samples   chan RawSample
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
}

// New creates a new Serial instance with the specified port, baud rate, and buffer size.
func New(port string, baudRate int, bufSize int) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Serial{
		port:     port,
		baudRate: baudRate,
		bufSize:  bufSize,
		samples:  make(chan RawSample, bufSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{Name: name, Description: name})
	}
	return result, nil
}

// Connect connects to the serial port and starts reading samples.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return fmt.Errorf("already connected")
	}

	port, err := serial.Open(d.port, &serial.Mode{BaudRate: d.baudRate})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	d.conn = port
	d.connected = true

	go d.readSamples(port)

	return nil
}

// Close closes the connection and stops reading samples.
func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}

	d.cancel()

	if d.conn != nil {
		if err := d.conn.Close(); err != nil {
			log.Printf("Error closing serial port: %v", err)
		}
		d.conn = nil
	}

	d.connected = false
	close(d.samples)

	return nil
}

// Samples returns the channel for reading samples.
func (d *Serial) Samples() <-chan RawSample {
	return d.samples
}

// SetSimple asks the bench logger to pull the probe's mode-select line low
// (simple mode) or release it (differential mode).
func (d *Serial) SetSimple(simple bool) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.connected {
		return fmt.Errorf("not connected")
	}

	if _, err := io.WriteString(d.conn, modeCommand(simple)); err != nil {
		return fmt.Errorf("failed to send mode command: %w", err)
	}

	return nil
}

// IsConnected returns whether the device is currently connected.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// modeCommand encodes the mode-select level: "0" drives it low.
func modeCommand(simple bool) string {
	if simple {
		return "0\n"
	}
	return "1\n"
}

// readSamples reads lines from r and parses them into RawSample until r
// fails or the device is closed.
func (d *Serial) readSamples(r io.Reader) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("Panic in readSamples: %v", rec)
		}
	}()

	scanner := bufio.NewScanner(r)
	for {
		select {
		case <-d.ctx.Done():
			return
		default:
		}

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				log.Printf("Error reading from serial port: %v", err)
			}
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		sample, err := parseLine(line)
		if err != nil {
			log.Printf("Failed to parse line '%s': %v", line, err)
			continue
		}

		select {
		case d.samples <- sample:
		case <-d.ctx.Done():
			return
		default:
			log.Printf("Samples channel full, dropping sample")
		}
	}
}

// parseLine parses a line from the bench logger into a RawSample.
// Format: unix_micros,output,fan,mode
// Example: 1234567890123,2310,1,1
// A mode of 0 means the mode-select line is low.
func parseLine(line string) (RawSample, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 4 {
		return RawSample{}, fmt.Errorf("invalid line format: expected 4 comma-separated values, got %d", len(parts))
	}

	timestampMicros, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return RawSample{}, fmt.Errorf("invalid timestamp: %w", err)
	}

	output, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil {
		return RawSample{}, fmt.Errorf("invalid output: %w", err)
	}
	if output > MaxOutput {
		return RawSample{}, fmt.Errorf("output out of range: %d (max %d)", output, MaxOutput)
	}

	fan, err := parseFlag(parts[2])
	if err != nil {
		return RawSample{}, fmt.Errorf("invalid fan state: %w", err)
	}
	mode, err := parseFlag(parts[3])
	if err != nil {
		return RawSample{}, fmt.Errorf("invalid mode: %w", err)
	}

	return RawSample{
		Timestamp: time.UnixMicro(timestampMicros),
		Output:    uint16(output),
		Fan:       fan,
		Simple:    !mode,
	}, nil
}

func parseFlag(s string) (bool, error) {
	switch s {
	case "0":
		return false, nil
	case "1":
		return true, nil
	}
	return false, fmt.Errorf("expected 0 or 1, got %q", s)
}
