package actuator

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Relay switches the high power rail through a GPIO driven relay
type Relay struct {
	mu    sync.Mutex
	pin   gpio.PinOut
	level gpio.Level
}

// OpenRelay looks up a GPIO pin by name, e.g. "GPIO17", and drives it low
func OpenRelay(name string) (*Relay, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("initializing host: %w", err)
	}

	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("relay pin %q not found", name)
	}

	return NewRelay(pin)
}

// NewRelay takes ownership of pin and drives it low
func NewRelay(pin gpio.PinOut) (*Relay, error) {
	r := Relay{pin: pin}
	if err := r.set(gpio.Low); err != nil {
		return nil, err
	}
	return &r, nil
}

// High energizes the relay
func (r *Relay) High() error {
	return r.set(gpio.High)
}

// Low releases the relay
func (r *Relay) Low() error {
	return r.set(gpio.Low)
}

// Level returns the last level written to the pin
func (r *Relay) Level() gpio.Level {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.level
}

func (r *Relay) set(l gpio.Level) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.pin.Out(l); err != nil {
		return fmt.Errorf("setting relay pin %s %s: %w", r.pin, l, err)
	}

	r.level = l
	return nil
}
