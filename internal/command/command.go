package command

import (
	"errors"
	"fmt"
)

// DefaultQueueSize is the capacity of the queue between the receiver and
// the dispatcher
const DefaultQueueSize = 100

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrNotImplemented = errors.New("command not implemented")
	ErrNoActuator     = errors.New("actuator not fitted")
)

// Command is an uplink command code sent from the ground
type Command uint8

const (
	// EnableHighPower switches the high power components on via the relay
	EnableHighPower Command = 70
	// RequestStatus is reserved for a status report, not wired yet
	RequestStatus Command = 71
	// DisableHighPower switches the high power components off via the relay
	DisableHighPower Command = 80
	// StartRecording starts recording on the onboard camera
	StartRecording Command = 90
	// StopRecording stops recording on the onboard camera
	StopRecording Command = 100
)

var names = map[Command]string{
	EnableHighPower:  "enable-high-power",
	RequestStatus:    "request-status",
	DisableHighPower: "disable-high-power",
	StartRecording:   "start-recording",
	StopRecording:    "stop-recording",
}

// Parse maps a code received over the uplink to a Command. Codes outside the
// enumeration return ErrUnknownCommand.
func Parse(code byte) (Command, error) {
	c := Command(code)
	if _, ok := names[c]; !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownCommand, code)
	}
	return c, nil
}

// ParseName maps a command name, as returned by String, to a Command
func ParseName(name string) (Command, error) {
	for c, n := range names {
		if n == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
}

func (c Command) String() string {
	if n, ok := names[c]; ok {
		return n
	}
	return fmt.Sprintf("command(%d)", uint8(c))
}
