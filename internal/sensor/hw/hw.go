// Package hw binds the sensor readers to I²C hardware through periph.
package hw

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

const (
	// DefaultPowerMonitorAddress is the INA219 address with A0 and A1 low
	DefaultPowerMonitorAddress = 0x40
	// DefaultBarometerAddress is the secondary BMP address (SDO high)
	DefaultBarometerAddress = 0x77
)

var ErrNotInitialized = errors.New("sensor not initialized")

// OpenBus initializes the host drivers and opens an I²C bus. An empty name
// selects the first bus available, usually /dev/i2c-1.
func OpenBus(name string) (i2c.BusCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("initializing host: %w", err)
	}

	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("opening I²C bus %q: %w", name, err)
	}

	return bus, nil
}
