package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/roman-kulish/skylink/internal/mqtt"
)

// linkHealth reports the link as healthy while valid packets keep arriving
// within timeout
func linkHealth(stats DownlinkStats, now time.Time, timeout time.Duration) mqtt.LinkHealth {
	return mqtt.LinkHealth{
		LastSeen: stats.LastSeen,
		Frames:   stats.Frames,
		Rejected: stats.Rejected,
		Lost:     stats.Lost,
		Healthy:  !stats.LastSeen.IsZero() && now.Sub(stats.LastSeen) <= timeout,
	}
}

type healthPublisher interface {
	PublishHealth(health mqtt.LinkHealth) error
}

// reportHealth publishes the link health every interval until ctx is done
func reportHealth(ctx context.Context, pub healthPublisher, d *Downlink, interval, timeout time.Duration, logger *slog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var healthy bool
	for {
		select {
		case <-ctx.Done():
			return nil

		case now := <-ticker.C:
			h := linkHealth(d.Stats(), now, timeout)
			if h.Healthy != healthy {
				healthy = h.Healthy
				logger.Info("link health changed", slog.Bool("healthy", healthy))
			}

			if err := pub.PublishHealth(h); err != nil && !errors.Is(err, mqtt.ErrNotConnected) {
				logger.Warn("publishing link health", slog.Any("error", err))
			}
		}
	}
}
