package telemetry

import (
	"sync"

	"github.com/roman-kulish/skylink/internal/slot"
)

// Assembler builds telemetry packets from the latest sensor readings.
// Each slot is read independently, so fields of one packet may come from
// slightly different instants.
type Assembler struct {
	position    *slot.Slot[Position]
	environment *slot.Slot[Environment]
	power       *slot.Slot[Power]

	mu       sync.Mutex
	sequence uint8
}

// NewAssembler creates an Assembler reading from the given slots. A nil slot
// is treated as a sensor which is not fitted.
func NewAssembler(position *slot.Slot[Position], environment *slot.Slot[Environment], power *slot.Slot[Power]) *Assembler {
	if position == nil {
		position = slot.New[Position]()
	}
	if environment == nil {
		environment = slot.New[Environment]()
	}
	if power == nil {
		power = slot.New[Power]()
	}

	return &Assembler{
		position:    position,
		environment: environment,
		power:       power,
	}
}

// Next snapshots the slots into a packet carrying the current sequence
// number, then advances the sequence number.
func (a *Assembler) Next() *Packet {
	a.mu.Lock()
	seq := a.sequence
	a.sequence++ // wraps at 255
	a.mu.Unlock()

	return &Packet{
		Version:     Version,
		Sequence:    seq,
		Position:    a.position.Pointer(),
		Environment: a.environment.Pointer(),
		Power:       a.power.Pointer(),
	}
}

// Sequence returns the sequence number the next packet will carry
func (a *Assembler) Sequence() uint8 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sequence
}
