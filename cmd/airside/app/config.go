package app

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/skylink/internal/actuator"
	"github.com/roman-kulish/skylink/internal/command"
	"github.com/roman-kulish/skylink/internal/link"
	"github.com/roman-kulish/skylink/internal/logging"
	"github.com/roman-kulish/skylink/internal/sensor"
	"github.com/roman-kulish/skylink/internal/sensor/hw"
	"github.com/roman-kulish/skylink/internal/telemetry"
)

const (
	defaultPowerInterval       = 250 * time.Millisecond
	defaultEnvironmentInterval = 50 * time.Millisecond
)

// Config represents the air side configuration
type Config struct {
	Settings    Settings        `yaml:"settings"`
	Link        link.Config     `yaml:"link"`
	GPS         SerialDevice    `yaml:"gps"`
	Power       I2CSensor       `yaml:"power"`
	Environment I2CSensor       `yaml:"environment"`
	Relay       RelayConfig     `yaml:"relay"`
	Camera      SerialDevice    `yaml:"camera"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Sensors     FailureConfig   `yaml:"sensors"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"`
}

// SerialDevice is an optional peripheral on its own serial port
type SerialDevice struct {
	Enabled     bool `yaml:"enabled"`
	link.Config `yaml:",inline"`
}

// I2CSensor is an optional sensor on an I²C bus
type I2CSensor struct {
	Enabled  bool          `yaml:"enabled"`
	Bus      string        `yaml:"i2cBus"`
	Address  int           `yaml:"address"`
	Interval time.Duration `yaml:"interval"`
}

// RelayConfig names the GPIO pin driving the high power relay
type RelayConfig struct {
	Pin string `yaml:"pin"`
}

// TelemetryConfig represents downlink settings
type TelemetryConfig struct {
	Interval         time.Duration `yaml:"interval"`
	CommandQueueSize int           `yaml:"commandQueueSize"`
}

// FailureConfig decides what sensors do after a failed reading
type FailureConfig struct {
	FailurePolicy          string `yaml:"failurePolicy"`
	MaxConsecutiveFailures int    `yaml:"maxConsecutiveFailures"`
}

// NewConfig returns the configuration with every default applied
func NewConfig() *Config {
	return &Config{
		Settings: Settings{
			LogLevel:  "info",
			LogFormat: logging.FormatText,
		},
		Link: link.Config{
			BaudRate:    link.RadioBaudRate,
			ReadTimeout: link.DefaultReadTimeout,
		},
		GPS: SerialDevice{
			Enabled: true,
			Config: link.Config{
				BaudRate:    link.GPSBaudRate,
				ReadTimeout: link.DefaultReadTimeout,
			},
		},
		Power: I2CSensor{
			Enabled:  true,
			Address:  hw.DefaultPowerMonitorAddress,
			Interval: defaultPowerInterval,
		},
		Environment: I2CSensor{
			Enabled:  true,
			Address:  hw.DefaultBarometerAddress,
			Interval: defaultEnvironmentInterval,
		},
		Camera: SerialDevice{
			Config: link.Config{
				BaudRate:    actuator.RunCamBaudRate,
				ReadTimeout: link.DefaultReadTimeout,
			},
		},
		Telemetry: TelemetryConfig{
			Interval:         telemetry.DefaultInterval,
			CommandQueueSize: command.DefaultQueueSize,
		},
	}
}

// LoadConfig reads a YAML configuration file on top of the defaults
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	config := NewConfig()
	if err = yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err = config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the configuration for values the node cannot run with
func (c *Config) Validate() error {
	var errs []error

	if c.Link.Device == "" {
		errs = append(errs, errors.New("link: device is required"))
	}
	if c.Link.BaudRate <= 0 {
		errs = append(errs, fmt.Errorf("link: invalid baud rate %d", c.Link.BaudRate))
	}
	if c.GPS.Enabled && c.GPS.Device == "" {
		errs = append(errs, errors.New("gps: device is required"))
	}
	if c.Camera.Enabled && c.Camera.Device == "" {
		errs = append(errs, errors.New("camera: device is required"))
	}
	if c.Relay.Pin == "" {
		errs = append(errs, errors.New("relay: pin is required"))
	}
	if c.Telemetry.Interval <= 0 {
		errs = append(errs, fmt.Errorf("telemetry: invalid interval %s", c.Telemetry.Interval))
	}
	if c.Telemetry.CommandQueueSize <= 0 {
		errs = append(errs, fmt.Errorf("telemetry: invalid command queue size %d", c.Telemetry.CommandQueueSize))
	}
	for name, s := range map[string]I2CSensor{"power": c.Power, "environment": c.Environment} {
		if s.Enabled && s.Interval <= 0 {
			errs = append(errs, fmt.Errorf("%s: invalid interval %s", name, s.Interval))
		}
	}
	if _, err := sensor.ParseFailurePolicy(c.Sensors.FailurePolicy); err != nil {
		errs = append(errs, fmt.Errorf("sensors: %w", err))
	}
	if c.Sensors.MaxConsecutiveFailures < 0 {
		errs = append(errs, fmt.Errorf("sensors: invalid max consecutive failures %d", c.Sensors.MaxConsecutiveFailures))
	}
	if _, err := logging.ParseLevel(c.Settings.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("settings: %w", err))
	}

	return errors.Join(errs...)
}

// SensorOptions translates the failure settings into source options
func (c *Config) SensorOptions() []sensor.Option {
	policy, _ := sensor.ParseFailurePolicy(c.Sensors.FailurePolicy)
	return []sensor.Option{
		sensor.WithFailurePolicy(policy),
		sensor.WithMaxConsecutiveFailures(c.Sensors.MaxConsecutiveFailures),
	}
}
