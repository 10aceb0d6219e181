package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/roman-kulish/skylink/internal/command"
	"github.com/roman-kulish/skylink/internal/frame"
)

var operatorCommands = map[string]command.Command{
	"high-power on":  command.EnableHighPower,
	"high-power off": command.DisableHighPower,
	"record start":   command.StartRecording,
	"record stop":    command.StopRecording,
	"status":         command.RequestStatus,
}

// ParseOperatorCommand accepts the console shorthands, the command names
// and raw numeric codes. Raw codes are sent as is, even when the node does
// not know them.
func ParseOperatorCommand(line string) (command.Command, error) {
	line = strings.Join(strings.Fields(strings.ToLower(line)), " ")
	if line == "" {
		return 0, errors.New("empty command")
	}

	if c, ok := operatorCommands[line]; ok {
		return c, nil
	}

	if c, err := command.ParseName(line); err == nil {
		return c, nil
	}

	code, err := strconv.ParseUint(line, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", command.ErrUnknownCommand, line)
	}
	return command.Command(code), nil
}

// CommandRecorder persists the commands sent to the node
type CommandRecorder interface {
	StoreCommand(ctx context.Context, sessionID int64, sentAt time.Time, code uint8, name string) error
}

// Uplink sends commands to the node. It is safe for concurrent use by the
// console and MQTT command sources.
type Uplink struct {
	mu        sync.Mutex
	w         io.Writer
	recorder  CommandRecorder
	sessionID int64
	logger    *slog.Logger
}

func NewUplink(w io.Writer, recorder CommandRecorder, sessionID int64, logger *slog.Logger) *Uplink {
	return &Uplink{
		w:         w,
		recorder:  recorder,
		sessionID: sessionID,
		logger:    logger.With(slog.String("task", "uplink")),
	}
}

// Send writes the uplink frame for cmd and records it
func (u *Uplink) Send(ctx context.Context, cmd command.Command) error {
	f := frame.EncodeUplink(byte(cmd))

	u.mu.Lock()
	_, err := u.w.Write(f[:])
	u.mu.Unlock()

	if err != nil {
		return fmt.Errorf("writing uplink frame: %w", err)
	}

	u.logger.Info("command sent", slog.String("command", cmd.String()))

	if u.recorder != nil {
		if err = u.recorder.StoreCommand(ctx, u.sessionID, time.Now(), uint8(cmd), cmd.String()); err != nil {
			u.logger.Warn("recording command", slog.Any("error", err))
		}
	}
	return nil
}

// SendLine parses an operator command and sends it
func (u *Uplink) SendLine(ctx context.Context, line string) error {
	cmd, err := ParseOperatorCommand(line)
	if err != nil {
		return err
	}
	return u.Send(ctx, cmd)
}

// ReadConsole sends one command per input line until r is exhausted or the
// context is cancelled. Bad lines are logged and skipped.
func (u *Uplink) ReadConsole(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if err := u.SendLine(ctx, line); err != nil {
			if errors.Is(err, command.ErrUnknownCommand) {
				u.logger.Warn("unknown operator command", slog.String("input", line))
				continue
			}
			return err
		}
	}
	return scanner.Err()
}
