package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/roman-kulish/skylink/internal/actuator"
	"github.com/roman-kulish/skylink/internal/command"
	"github.com/roman-kulish/skylink/internal/link"
)

func TestLoadConfig(t *testing.T) {
	c, err := LoadConfig(filepath.Join("testdata", "config.yaml"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if c.Settings.LogFormat != "json" {
		t.Errorf("Expected json log format, got %s", c.Settings.LogFormat)
	}
	if c.Link.Device != "/dev/ttyAMA0" || c.Link.ReadTimeout != link.DefaultReadTimeout {
		t.Errorf("Unexpected link config: %+v", c.Link)
	}
	if c.GPS.Device != "/dev/ttyUSB0" || c.GPS.BaudRate != link.GPSBaudRate {
		t.Errorf("Expected GPS defaults kept, got %+v", c.GPS)
	}
	if c.Power.Address != 0x41 || c.Power.Interval != defaultPowerInterval {
		t.Errorf("Unexpected power config: %+v", c.Power)
	}
	if c.Environment.Enabled {
		t.Error("Expected environment sensor disabled")
	}
	if c.Camera.BaudRate != actuator.RunCamBaudRate {
		t.Errorf("Expected camera baud %d, got %d", actuator.RunCamBaudRate, c.Camera.BaudRate)
	}
	if c.Telemetry.Interval != 500*time.Millisecond {
		t.Errorf("Expected 500ms interval, got %s", c.Telemetry.Interval)
	}
	if c.Telemetry.CommandQueueSize != command.DefaultQueueSize {
		t.Errorf("Expected default queue size, got %d", c.Telemetry.CommandQueueSize)
	}
	if c.Sensors.MaxConsecutiveFailures != 20 {
		t.Errorf("Expected 20, got %d", c.Sensors.MaxConsecutiveFailures)
	}
	if got := len(c.SensorOptions()); got != 2 {
		t.Errorf("Expected 2 sensor options, got %d", got)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing link", "relay:\n  pin: GPIO17\ngps:\n  enabled: false\n", "link: device is required"},
		{"missing relay", "link:\n  device: /dev/ttyAMA0\ngps:\n  enabled: false\n", "relay: pin is required"},
		{"bad policy", "link:\n  device: /dev/ttyAMA0\nrelay:\n  pin: GPIO17\ngps:\n  enabled: false\nsensors:\n  failurePolicy: retry\n", "unknown failure policy"},
		{"bad level", "link:\n  device: /dev/ttyAMA0\nrelay:\n  pin: GPIO17\ngps:\n  enabled: false\nsettings:\n  logLevel: loud\n", "invalid log level"},
		{"camera without device", "link:\n  device: /dev/ttyAMA0\nrelay:\n  pin: GPIO17\ngps:\n  enabled: false\ncamera:\n  enabled: true\n", "camera: device is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0o600); err != nil {
				t.Fatal(err)
			}

			_, err := LoadConfig(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error, got nil")
	}
}
