package hw

import (
	"context"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ina219"

	"github.com/roman-kulish/skylink/internal/telemetry"
)

// PowerMonitor reads bus voltage and current from an INA219
type PowerMonitor struct {
	bus  i2c.Bus
	opts ina219.Opts

	mu  sync.Mutex
	dev *ina219.Dev
}

// NewPowerMonitor creates a power monitor on bus. The device is not touched
// until Init.
func NewPowerMonitor(bus i2c.Bus, addr int) *PowerMonitor {
	opts := ina219.DefaultOpts
	opts.Address = addr

	return &PowerMonitor{bus: bus, opts: opts}
}

func (m *PowerMonitor) Init(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dev, err := ina219.New(m.bus, &m.opts)
	if err != nil {
		return fmt.Errorf("ina219 at %#x: %w", m.opts.Address, err)
	}

	m.dev = dev
	return nil
}

func (m *PowerMonitor) Read(context.Context) (telemetry.Power, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dev == nil {
		return telemetry.Power{}, ErrNotInitialized
	}

	p, err := m.dev.Sense()
	if err != nil {
		return telemetry.Power{}, fmt.Errorf("sensing power: %w", err)
	}

	return toPower(p), nil
}

func toPower(p ina219.PowerMonitor) telemetry.Power {
	return telemetry.Power{
		Voltage: float64(p.Voltage) / float64(physic.MilliVolt),
		Current: float64(p.Current) / float64(physic.MilliAmpere),
	}
}
