package app

import (
	"context"
	"fmt"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"time"

	"github.com/roman-kulish/skylink/internal/storage"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	if _, err := os.Stat(config.DBPath); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("database file '%s' does not exist: %w", config.DBPath, err)
	}

	store := storage.NewSqliteStore(config.DBPath)
	defer store.Close()

	session, err := store.Session(ctx, config.SessionID)
	if err != nil {
		logSessions(ctx, store, logger)
		return fmt.Errorf("reading session %d: %w", config.SessionID, err)
	}

	stats, err := store.SessionStats(ctx, config.SessionID)
	if err != nil {
		return fmt.Errorf("reading session stats: %w", err)
	}

	track, err := readTrack(ctx, store, config, logger)
	if err != nil {
		return err
	}
	if track.Empty() {
		return fmt.Errorf("session %d has no positions to render", config.SessionID)
	}

	logger.Info("finished reading positions",
		slog.Group("stats",
			slog.Int("positions", len(track.Points)),
			slog.Int64("packets", stats.Packets),
			slog.String("start", track.TimestampStart.In(config.TimeZone).Format(time.DateTime)),
			slog.String("end", track.TimestampEnd.In(config.TimeZone).Format(time.DateTime)),
			slog.String("distance", formatDistance(track.Distance)),
		))

	renderer, err := NewTrackRenderer(RenderConfig{
		Width:         config.Width,
		Height:        config.Height,
		Location:      config.TimeZone,
		ColorTheme:    config.Theme,
		NoAnnotations: config.NoAnnotations,
	})
	if err != nil {
		return fmt.Errorf("creating track renderer: %w", err)
	}

	logger.Info("rendering track",
		slog.Group("image",
			slog.String("destination", config.OutputFile),
			slog.String("format", string(config.Format)),
			slog.String("theme", string(config.Theme)),
			slog.Int("width", config.Width),
			slog.Int("height", config.Height),
		))

	img, err := renderer.Render(track, TrackInfo{
		Node:      session.Node,
		SessionID: session.ID,
		Packets:   stats.Packets,
	})
	if err != nil {
		return fmt.Errorf("rendering track: %w", err)
	}

	out, err := os.Create(config.OutputFile)
	if err != nil {
		return err
	}
	defer out.Close()

	switch config.Format {
	case ImagePNG:
		err = png.Encode(out, img)
	case ImageJPEG:
		err = jpeg.Encode(out, img, &jpeg.Options{
			Quality: 98,
		})
	}
	if err != nil {
		return fmt.Errorf("encoding image: %w", err)
	}
	return out.Close()
}

func readTrack(ctx context.Context, store *storage.SqliteStore, config *Config, logger *slog.Logger) (*TrackData, error) {
	var opts []storage.TrackOption
	var filters []any

	switch {
	case config.StartTime != nil && config.EndTime != nil:
		opts = append(opts, storage.WithTimeRange(*config.StartTime, *config.EndTime))
		filters = append(filters,
			slog.String("start", config.StartTime.Format(time.DateTime)),
			slog.String("end", config.EndTime.Format(time.DateTime)))

	case config.StartTime != nil:
		opts = append(opts, storage.WithStartTime(*config.StartTime))
		filters = append(filters, slog.String("start", config.StartTime.Format(time.DateTime)))

	case config.EndTime != nil:
		opts = append(opts, storage.WithEndTime(*config.EndTime))
		filters = append(filters, slog.String("end", config.EndTime.Format(time.DateTime)))
	}

	if config.MinSatellites > 0 {
		opts = append(opts, storage.WithMinSatellites(uint8(config.MinSatellites)))
		filters = append(filters, slog.Uint64("minSatellites", uint64(config.MinSatellites)))
	}

	if config.Verbose {
		logger.Info("reader configuration", filters...)
	}

	reader, err := store.ReadTrack(ctx, config.SessionID, opts...)
	if err != nil {
		return nil, fmt.Errorf("reading track: %w", err)
	}
	defer reader.Close()

	track := NewTrackData()
	for reader.Next(ctx) {
		track.Update(reader.Current())
	}
	if err = reader.Error(); err != nil {
		return nil, fmt.Errorf("reading track: %w", err)
	}
	return track, nil
}

func logSessions(ctx context.Context, store *storage.SqliteStore, logger *slog.Logger) {
	sessions, err := store.Sessions(ctx)
	if err != nil {
		return
	}
	for _, s := range sessions {
		logger.Info("available session",
			slog.Int64("id", s.ID),
			slog.String("node", s.Node),
			slog.String("start", s.StartTime.Format(time.DateTime)))
	}
}
