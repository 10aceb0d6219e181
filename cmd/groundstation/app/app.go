package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/skylink/internal/link"
	"github.com/roman-kulish/skylink/internal/mqtt"
	"github.com/roman-kulish/skylink/internal/storage"
)

// Run receives telemetry until the context is cancelled or the radio link
// is lost. Operator commands are read from console.
func Run(ctx context.Context, config *Config, version string, console io.Reader, logger *slog.Logger) error {
	logger.Info("skylink ground station starting",
		slog.String("version", version),
		slog.String("node", config.Settings.Node),
		slog.Group("link",
			slog.String("device", config.Link.Device),
			slog.Int("baud", config.Link.BaudRate),
		))

	store, dbPath, err := createStorage(&config.Storage)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing storage", slog.Any("error", err))
		}
	}()

	snapshot, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	sessionID, err := store.CreateSession(ctx, config.Settings.Node, snapshot)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	logger.Info("session created", slog.Int64("session", sessionID), slog.String("path", dbPath))

	radio, err := link.Open(config.Link)
	if err != nil {
		logAvailablePorts(logger)
		return fmt.Errorf("opening radio link: %w", err)
	}
	defer radio.Close()

	downlink := NewDownlink(logger)
	uplink := NewUplink(radio, store, sessionID, logger)

	var publisher Publisher
	var client *mqtt.Client
	if config.MQTT.Enabled {
		client = mqtt.NewClient(config.MQTT.Config, logger)
		client.OnCommand(func(name string) {
			if err := uplink.SendLine(ctx, name); err != nil {
				logger.Warn("mqtt command rejected", slog.String("command", name), slog.Any("error", err))
			}
		})
		defer client.Disconnect()
		publisher = client
	}

	g, gctx := errgroup.WithContext(ctx)
	packets := make(chan storage.ReceivedPacket, config.Storage.MaxBatchSize)

	g.Go(func() error {
		defer close(packets)
		return downlink.Run(gctx, radio, packets)
	})

	recorder := NewRecorder(store, sessionID, publisher, config.Storage.MaxBatchSize, config.Storage.FlushInterval, logger)
	g.Go(func() error {
		return recorder.Run(gctx, packets)
	})

	if client != nil {
		g.Go(func() error {
			if err := client.Connect(gctx); err != nil {
				// telemetry keeps being stored without the broker
				logger.Error("mqtt unavailable", slog.Any("error", err))
				return nil
			}
			return reportHealth(gctx, client, downlink, config.MQTT.HealthInterval, config.Settings.LinkTimeout, logger)
		})
	}

	// The console read cannot be interrupted, so it is not waited for
	go func() {
		if err := uplink.ReadConsole(gctx, console); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("console closed", slog.Any("error", err))
		}
	}()

	err = g.Wait()

	stats := downlink.Stats()
	logger.Info("ground station stopped",
		slog.String("frames", humanize.Comma(int64(stats.Frames))),
		slog.String("rejected", humanize.Comma(int64(stats.Rejected))),
		slog.String("lost", humanize.Comma(int64(stats.Lost))),
		slog.String("discarded", humanize.Bytes(uint64(stats.Discarded))),
	)

	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil
	}
	return err
}

func createStorage(config *StorageConfig) (*storage.SqliteStore, string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get current working directory: %w", err)
	}

	dbPath := config.DataDirectory
	if dbPath == "" {
		dbPath = storageDir
	}
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(wd, dbPath)
	}

	stat, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("storage directory '%s' does not exist: %w", dbPath, err)
		}
		return nil, "", fmt.Errorf("checking storage directory: %w", err)
	}
	if !stat.IsDir() {
		return nil, "", fmt.Errorf("invalid storage directory '%s'", dbPath)
	}

	dbPath = filepath.Join(dbPath, fmt.Sprintf("skylink_session_%s.sqlite", time.Now().UTC().Format("20060102_150405")))
	return storage.NewSqliteStore(dbPath), dbPath, nil
}

func logAvailablePorts(logger *slog.Logger) {
	ports, err := link.Ports()
	if err != nil {
		logger.Warn("listing serial ports", slog.Any("error", err))
		return
	}
	logger.Info("available serial ports", slog.Any("ports", ports))
}
