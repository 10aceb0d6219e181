package hw

import (
	"context"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"

	"github.com/roman-kulish/skylink/internal/telemetry"
)

// BarometerOpts favours pressure resolution: the altitude estimate on the
// ground comes from pressure, temperature only compensates it.
var BarometerOpts = bmxx80.Opts{
	Temperature: bmxx80.O1x,
	Pressure:    bmxx80.O8x,
	Filter:      bmxx80.F4,
}

// Barometer reads pressure and temperature from a BMx280
type Barometer struct {
	bus  i2c.Bus
	addr uint16

	mu  sync.Mutex
	dev *bmxx80.Dev
}

func NewBarometer(bus i2c.Bus, addr uint16) *Barometer {
	return &Barometer{bus: bus, addr: addr}
}

func (b *Barometer) Init(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	opts := BarometerOpts
	dev, err := bmxx80.NewI2C(b.bus, b.addr, &opts)
	if err != nil {
		return fmt.Errorf("bmxx80 at %#x: %w", b.addr, err)
	}

	b.dev = dev
	return nil
}

func (b *Barometer) Read(context.Context) (telemetry.Environment, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.dev == nil {
		return telemetry.Environment{}, ErrNotInitialized
	}

	var env physic.Env
	if err := b.dev.Sense(&env); err != nil {
		return telemetry.Environment{}, fmt.Errorf("sensing environment: %w", err)
	}

	return toEnvironment(env), nil
}

// Close halts the device
func (b *Barometer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.dev == nil {
		return nil
	}

	err := b.dev.Halt()
	b.dev = nil
	if err != nil {
		return fmt.Errorf("halting barometer: %w", err)
	}
	return nil
}

func toEnvironment(env physic.Env) telemetry.Environment {
	return telemetry.Environment{
		Pressure:    float64(env.Pressure) / float64(physic.Pascal),
		Temperature: env.Temperature.Celsius(),
	}
}
