package telemetry

import (
	"testing"

	"github.com/roman-kulish/skylink/internal/frame"
	"github.com/roman-kulish/skylink/internal/slot"
)

func TestAssembler_AllSlotsEmpty(t *testing.T) {
	a := NewAssembler(slot.New[Position](), slot.New[Environment](), slot.New[Power]())

	p := a.Next()
	if p.Position != nil || p.Environment != nil || p.Power != nil {
		t.Fatalf("Expected no sub-records, got %+v", p)
	}

	payload, err := p.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if len(payload) == 0 {
		t.Fatal("Expected non-empty payload")
	}

	data := frame.EncodeDownlink(payload)
	if _, err = frame.DecodeDownlink(data); err != nil {
		t.Errorf("Expected a valid frame, got %v", err)
	}
}

func TestAssembler_NilSlots(t *testing.T) {
	a := NewAssembler(nil, nil, nil)
	if p := a.Next(); p.Version != Version {
		t.Errorf("Version = %d, want %d", p.Version, Version)
	}
}

func TestAssembler_Snapshot(t *testing.T) {
	pos := slot.New[Position]()
	env := slot.New[Environment]()
	pow := slot.New[Power]()
	a := NewAssembler(pos, env, pow)

	env.Set(Environment{Pressure: 100000, Temperature: 18})
	env.Set(Environment{Pressure: 99000, Temperature: 17})
	pow.Set(Power{Voltage: 12000, Current: 500})

	p := a.Next()
	if p.Position != nil {
		t.Errorf("Expected absent position, got %+v", p.Position)
	}
	if p.Environment == nil || p.Environment.Pressure != 99000 {
		t.Errorf("Expected latest environment reading, got %+v", p.Environment)
	}
	if p.Power == nil || p.Power.Voltage != 12000 {
		t.Errorf("Expected power reading, got %+v", p.Power)
	}

	// later writes do not leak into an already built packet
	pow.Set(Power{Voltage: 1, Current: 1})
	if p.Power.Voltage != 12000 {
		t.Errorf("Packet changed after slot update: %+v", p.Power)
	}
}

func TestAssembler_SequenceWraparound(t *testing.T) {
	a := NewAssembler(nil, nil, nil)

	if first := a.Next().Sequence; first != 0 {
		t.Fatalf("Expected first sequence 0, got %d", first)
	}

	zeros := 0
	for i := 0; i < 256; i++ {
		if a.Next().Sequence == 0 {
			zeros++
		}
	}

	if zeros != 1 {
		t.Errorf("Expected sequence 0 exactly once in 256 packets, got %d", zeros)
	}
	if seq := a.Sequence(); seq != 1 {
		t.Errorf("Expected next sequence 1, got %d", seq)
	}
}
