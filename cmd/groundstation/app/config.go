package app

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/skylink/internal/link"
	"github.com/roman-kulish/skylink/internal/logging"
	"github.com/roman-kulish/skylink/internal/mqtt"
)

const (
	storageDir = "data"

	defaultNode           = "skylink"
	defaultBatchSize      = 20
	defaultFlushInterval  = time.Second
	defaultHealthInterval = 5 * time.Second
	defaultLinkTimeout    = 3 * time.Second
	defaultMQTTPort       = 1883
)

// Config represents the ground station configuration
type Config struct {
	Settings Settings      `yaml:"settings"`
	Link     link.Config   `yaml:"link"`
	Storage  StorageConfig `yaml:"storage"`
	MQTT     MQTTConfig    `yaml:"mqtt"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"`
	Node      string `yaml:"node"`

	// LinkTimeout is how long the link stays healthy without a valid packet
	LinkTimeout time.Duration `yaml:"linkTimeout"`
}

// StorageConfig represents storage settings
type StorageConfig struct {
	DataDirectory string        `yaml:"dataDirectory"`
	MaxBatchSize  int           `yaml:"maxBatchSize"`
	FlushInterval time.Duration `yaml:"flushInterval"`
}

// MQTTConfig enables republishing telemetry to a broker
type MQTTConfig struct {
	Enabled        bool          `yaml:"enabled"`
	mqtt.Config    `yaml:",inline"`
	HealthInterval time.Duration `yaml:"healthInterval"`
}

// NewConfig returns the configuration with every default applied
func NewConfig() *Config {
	return &Config{
		Settings: Settings{
			LogLevel:    "info",
			LogFormat:   logging.FormatText,
			Node:        defaultNode,
			LinkTimeout: defaultLinkTimeout,
		},
		Link: link.Config{
			BaudRate:    link.RadioBaudRate,
			ReadTimeout: link.DefaultReadTimeout,
		},
		Storage: StorageConfig{
			DataDirectory: storageDir,
			MaxBatchSize:  defaultBatchSize,
			FlushInterval: defaultFlushInterval,
		},
		MQTT: MQTTConfig{
			Config:         mqtt.Config{Port: defaultMQTTPort},
			HealthInterval: defaultHealthInterval,
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

	if config.MQTT.Node == "" {
		config.MQTT.Node = config.Settings.Node
	}
	if config.MQTT.ClientID == "" {
		config.MQTT.ClientID = "skylink-ground-" + config.Settings.Node
	}

	if err = config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the configuration for values the station cannot run with
func (c *Config) Validate() error {
	var errs []error

	if c.Settings.Node == "" {
		errs = append(errs, errors.New("settings: node is required"))
	}
	if c.Settings.LinkTimeout <= 0 {
		errs = append(errs, fmt.Errorf("settings: invalid link timeout %s", c.Settings.LinkTimeout))
	}
	if _, err := logging.ParseLevel(c.Settings.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("settings: %w", err))
	}
	if c.Link.Device == "" {
		errs = append(errs, errors.New("link: device is required"))
	}
	if c.Link.BaudRate <= 0 {
		errs = append(errs, fmt.Errorf("link: invalid baud rate %d", c.Link.BaudRate))
	}
	if c.Storage.MaxBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("storage: invalid max batch size %d", c.Storage.MaxBatchSize))
	}
	if c.Storage.FlushInterval <= 0 {
		errs = append(errs, fmt.Errorf("storage: invalid flush interval %s", c.Storage.FlushInterval))
	}
	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			errs = append(errs, errors.New("mqtt: broker is required"))
		}
		if c.MQTT.Port <= 0 || c.MQTT.Port > 65535 {
			errs = append(errs, fmt.Errorf("mqtt: invalid port %d", c.MQTT.Port))
		}
		if c.MQTT.HealthInterval <= 0 {
			errs = append(errs, fmt.Errorf("mqtt: invalid health interval %s", c.MQTT.HealthInterval))
		}
	}

	return errors.Join(errs...)
}
