package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/itohio/irprobe/pkg/fan"
	"github.com/itohio/irprobe/pkg/probe"
	"github.com/itohio/irprobe/pkg/sim"
)

// Config represents the application configuration.
type Config struct {
	Serial  SerialConfig  `yaml:"serial"`
	Probe   ProbeConfig   `yaml:"probe"`
	Bench   BenchConfig   `yaml:"bench"`
	Monitor MonitorConfig `yaml:"monitor"`
	Mock    MockConfig    `yaml:"mock"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// ProbeConfig mirrors the probe firmware tuning. Thresholds are per reading.
type ProbeConfig struct {
	TimerFrequency     uint16 `yaml:"timer_frequency"`
	IRSamplesAveraged  int    `yaml:"ir_samples_averaged"`
	FanSamplesAveraged int    `yaml:"fan_samples_averaged"`
	FanCheckFrequency  uint16 `yaml:"fan_check_frequency"`
	FanOnSeconds       uint16 `yaml:"fan_on_seconds"`
	SettleTicks        uint16 `yaml:"settle_ticks"`

	FarReading        uint16 `yaml:"far_reading"`
	SimpleNearReading uint16 `yaml:"simple_near_reading"`
	SaturatedReading  uint16 `yaml:"saturated_reading"`

	Standard        fan.Profile `yaml:"standard_fan"`
	HighSensitivity fan.Profile `yaml:"high_sensitivity_fan"`
}

// BenchConfig describes the bench logger the probe output is wired to.
type BenchConfig struct {
	ADCFullScale   uint16 `yaml:"adc_full_scale"`  // bench logger converter full scale
	AverageSamples int    `yaml:"average_samples"` // Number of samples to average (0 = disabled, default)
}

// MonitorConfig contains event detection parameters.
type MonitorConfig struct {
	WindowSeconds    float64       `yaml:"window_seconds"`
	MinEventDuration time.Duration `yaml:"min_event_duration"` // Events shorter than this are dropped as glitches
}

// MockConfig contains mock device configuration.
type MockConfig struct {
	Plant       sim.PlantConfig `yaml:"plant"`
	Sweep       sim.Sweep       `yaml:"sweep"`
	SampleRate  time.Duration   `yaml:"sample_rate"`  // Bench logger sample period
	TimerPeriod time.Duration   `yaml:"timer_period"` // Host period the probe interrupts are batched on
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	s := probe.DefaultSettings()
	return &Config{
		Serial: SerialConfig{
			Port:     "COM3", // Default for Windows, should be "/dev/ttyACM0" on Linux/Mac
			BaudRate: 115200,
		},
		Probe: ProbeConfig{
			TimerFrequency:     s.TimerFrequency,
			IRSamplesAveraged:  s.IRSamplesAveraged,
			FanSamplesAveraged: s.FanSamplesAveraged,
			FanCheckFrequency:  s.FanCheckFrequency,
			FanOnSeconds:       s.FanOnSeconds,
			SettleTicks:        s.SettleTicks,
			FarReading:         s.FarReading,
			SimpleNearReading:  s.SimpleNearReading,
			SaturatedReading:   s.SaturatedReading,
			Standard:           s.Standard,
			HighSensitivity:    s.HighSensitivity,
		},
		Bench: BenchConfig{
			ADCFullScale:   4095,
			AverageSamples: 0,
		},
		Monitor: MonitorConfig{
			WindowSeconds:    10,
			MinEventDuration: 5 * time.Millisecond,
		},
		Mock: MockConfig{
			Plant:       sim.DefaultPlantConfig(),
			Sweep:       sim.DefaultSweep(),
			SampleRate:  2 * time.Millisecond,
			TimerPeriod: time.Millisecond,
		},
	}
}

// Settings returns the probe settings described by the configuration.
func (c *Config) Settings() probe.Settings {
	p := c.Probe
	return probe.Settings{
		TimerFrequency:     p.TimerFrequency,
		IRSamplesAveraged:  p.IRSamplesAveraged,
		FanSamplesAveraged: p.FanSamplesAveraged,
		FanCheckFrequency:  p.FanCheckFrequency,
		FanOnSeconds:       p.FanOnSeconds,
		SettleTicks:        p.SettleTicks,
		FarReading:         p.FarReading,
		SimpleNearReading:  p.SimpleNearReading,
		SaturatedReading:   p.SaturatedReading,
		Standard:           p.Standard,
		HighSensitivity:    p.HighSensitivity,
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Settings().Validate(); err != nil {
		return nil, fmt.Errorf("invalid probe settings: %w", err)
	}

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}

	if c.Probe.TimerFrequency == 0 {
		c.Probe.TimerFrequency = def.Probe.TimerFrequency
	}
	if c.Probe.IRSamplesAveraged == 0 {
		c.Probe.IRSamplesAveraged = def.Probe.IRSamplesAveraged
	}
	if c.Probe.FanSamplesAveraged == 0 {
		c.Probe.FanSamplesAveraged = def.Probe.FanSamplesAveraged
	}
	if c.Probe.FanCheckFrequency == 0 {
		c.Probe.FanCheckFrequency = def.Probe.FanCheckFrequency
	}
	if c.Probe.FanOnSeconds == 0 {
		c.Probe.FanOnSeconds = def.Probe.FanOnSeconds
	}
	if c.Probe.SaturatedReading == 0 {
		c.Probe.SaturatedReading = def.Probe.SaturatedReading
	}
	if c.Probe.Standard == (fan.Profile{}) {
		c.Probe.Standard = def.Probe.Standard
	}
	if c.Probe.HighSensitivity == (fan.Profile{}) {
		c.Probe.HighSensitivity = def.Probe.HighSensitivity
	}

	if c.Bench.ADCFullScale == 0 {
		c.Bench.ADCFullScale = def.Bench.ADCFullScale
	}

	if c.Monitor.WindowSeconds == 0 {
		c.Monitor.WindowSeconds = def.Monitor.WindowSeconds
	}

	if c.Mock.SampleRate == 0 {
		c.Mock.SampleRate = def.Mock.SampleRate
	}
	if c.Mock.TimerPeriod == 0 {
		c.Mock.TimerPeriod = def.Mock.TimerPeriod
	}
}
