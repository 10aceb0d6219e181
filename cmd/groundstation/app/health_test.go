package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/roman-kulish/skylink/internal/logging"
	"github.com/roman-kulish/skylink/internal/mqtt"
)

func TestLinkHealth(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		lastSeen time.Time
		want     bool
	}{
		{"never seen", time.Time{}, false},
		{"recent", now.Add(-time.Second), true},
		{"at timeout", now.Add(-3 * time.Second), true},
		{"stale", now.Add(-4 * time.Second), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := DownlinkStats{Frames: 10, Rejected: 2, Lost: 1, LastSeen: tt.lastSeen}

			h := linkHealth(stats, now, 3*time.Second)
			if h.Healthy != tt.want {
				t.Errorf("Expected healthy %v, got %v", tt.want, h.Healthy)
			}
			if h.Frames != 10 || h.Rejected != 2 || h.Lost != 1 {
				t.Errorf("Unexpected counters: %+v", h)
			}
		})
	}
}

type mockHealthPublisher struct {
	mu      sync.Mutex
	reports []mqtt.LinkHealth
}

func (p *mockHealthPublisher) PublishHealth(h mqtt.LinkHealth) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reports = append(p.reports, h)
	return mqtt.ErrNotConnected
}

func (p *mockHealthPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.reports)
}

func TestReportHealth(t *testing.T) {
	pub := &mockHealthPublisher{}
	d := NewDownlink(logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- reportHealth(ctx, pub, d, 5*time.Millisecond, time.Second, logging.Discard())
	}()

	deadline := time.Now().Add(time.Second)
	for pub.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if pub.count() < 2 {
		t.Errorf("Expected at least 2 reports, got %d", pub.count())
	}
	if pub.reports[0].Healthy {
		t.Error("Expected link without packets to be unhealthy")
	}
}
