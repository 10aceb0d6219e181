package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/dustin/go-humanize"
	"periph.io/x/conn/v3/i2c"

	"github.com/roman-kulish/skylink/internal/actuator"
	"github.com/roman-kulish/skylink/internal/command"
	"github.com/roman-kulish/skylink/internal/frame"
	"github.com/roman-kulish/skylink/internal/gps"
	"github.com/roman-kulish/skylink/internal/link"
	"github.com/roman-kulish/skylink/internal/sensor"
	"github.com/roman-kulish/skylink/internal/sensor/hw"
	"github.com/roman-kulish/skylink/internal/slot"
	"github.com/roman-kulish/skylink/internal/telemetry"
)

// Run brings the node up and blocks until the context is cancelled or the
// radio link is lost
func Run(ctx context.Context, config *Config, version string, logger *slog.Logger) error {
	maxPayload := frame.MaxPayloadBytes(config.Link.BaudRate, config.Telemetry.Interval)

	logger.Info("skylink air side starting",
		slog.String("version", version),
		slog.Group("link",
			slog.String("device", config.Link.Device),
			slog.Int("baud", config.Link.BaudRate),
			slog.Duration("interval", config.Telemetry.Interval),
			slog.String("maxPayload", humanize.Bytes(uint64(maxPayload))),
		))

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				logger.Warn("closing resource", slog.Any("error", err))
			}
		}
	}()

	radio, err := link.Open(config.Link)
	if err != nil {
		logAvailablePorts(logger)
		return fmt.Errorf("opening radio link: %w", err)
	}
	closers = append(closers, radio)

	relay, err := actuator.OpenRelay(config.Relay.Pin)
	if err != nil {
		return fmt.Errorf("opening relay: %w", err)
	}

	position := slot.New[telemetry.Position]()
	environment := slot.New[telemetry.Environment]()
	power := slot.New[telemetry.Power]()

	o := NewOrchestrator(WithLogger(logger))
	sensorOpts := slices.Clip(append(config.SensorOptions(), sensor.WithLogger(logger)))

	if config.GPS.Enabled {
		port, err := link.Open(config.GPS.Config)
		if err != nil {
			logger.Error("gps unavailable, position will be omitted", slog.Any("error", err))
		} else {
			closers = append(closers, port)
			o.AddSensor("gps", sensor.NewPositionSource(port, gps.NewFixParser(), position, sensorOpts...))
		}
	}

	buses := make(map[string]i2c.BusCloser)
	openBus := func(name string) (i2c.Bus, error) {
		if bus, ok := buses[name]; ok {
			return bus, nil
		}
		bus, err := hw.OpenBus(name)
		if err != nil {
			return nil, err
		}
		buses[name] = bus
		closers = append(closers, bus)
		return bus, nil
	}

	if config.Power.Enabled {
		if bus, err := openBus(config.Power.Bus); err != nil {
			logger.Error("power monitor unavailable, power will be omitted", slog.Any("error", err))
		} else {
			monitor := hw.NewPowerMonitor(bus, config.Power.Address)
			o.AddSensor("power", sensor.NewPoller("power", monitor, power,
				append(sensorOpts, sensor.WithInterval(config.Power.Interval))...))
		}
	}

	if config.Environment.Enabled {
		if bus, err := openBus(config.Environment.Bus); err != nil {
			logger.Error("barometer unavailable, environment will be omitted", slog.Any("error", err))
		} else {
			barometer := hw.NewBarometer(bus, uint16(config.Environment.Address))
			closers = append(closers, barometer)
			o.AddSensor("environment", sensor.NewPoller("environment", barometer, environment,
				append(sensorOpts, sensor.WithInterval(config.Environment.Interval))...))
		}
	}

	dispatcherOpts := []func(*command.Dispatcher){command.WithDispatcherLogger(logger)}
	if camera := openCamera(config.Camera, logger, &closers); camera != nil {
		dispatcherOpts = append(dispatcherOpts, command.WithRecorder(camera))
	}

	transmitter := telemetry.NewTransmitter(
		telemetry.NewAssembler(position, environment, power),
		link.NewWriter(radio, frame.MaxDownlinkFrameSize),
		telemetry.WithLogger(logger),
		telemetry.WithInterval(config.Telemetry.Interval),
		telemetry.WithMaxPayloadBytes(maxPayload),
	)

	commands := make(chan command.Command, config.Telemetry.CommandQueueSize)
	receiver := command.NewReceiver(command.WithReceiverLogger(logger))
	dispatcher := command.NewDispatcher(relay, dispatcherOpts...)

	o.AddCritical("transmitter", transmitter)
	o.AddCritical("receiver", TaskFunc(func(ctx context.Context) error {
		return receiver.Run(ctx, radio, commands)
	}))
	o.AddCritical("dispatcher", TaskFunc(func(ctx context.Context) error {
		return dispatcher.Run(ctx, commands)
	}))

	err = o.Run(ctx)

	if lowErr := relay.Low(); lowErr != nil {
		err = errors.Join(err, fmt.Errorf("releasing relay: %w", lowErr))
	}

	return err
}

// openCamera returns nil when the camera is disabled or cannot be reached;
// recording commands are then ignored
func openCamera(config SerialDevice, logger *slog.Logger, closers *[]io.Closer) *actuator.RunCam {
	if !config.Enabled {
		return nil
	}

	port, err := link.Open(config.Config)
	if err != nil {
		logger.Error("camera unavailable, recording commands will be ignored", slog.Any("error", err))
		return nil
	}
	*closers = append(*closers, port)

	camera := actuator.NewRunCam(port)

	info, err := camera.ReadInfo()
	if err != nil {
		logger.Warn("camera did not identify itself", slog.Any("error", err))
		return camera
	}

	logger.Info("camera connected",
		slog.Int("protocol", int(info.ProtocolVersion)),
		slog.Bool("recording", info.Supports(actuator.FeatureStartRecording|actuator.FeatureStopRecording)))

	return camera
}

func logAvailablePorts(logger *slog.Logger) {
	ports, err := link.Ports()
	if err != nil {
		logger.Warn("listing serial ports", slog.Any("error", err))
		return
	}
	logger.Info("available serial ports", slog.Any("ports", ports))
}
