package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"repogator.app/relay/common/logger"
	"repogator.app/relay/internal/model"
	"repogator.app/relay/internal/store"
)

// Sweeper deletes terminal events older than the retention window.
// Received and processing events are never touched.
type Sweeper struct {
	events   store.EventStore
	window   time.Duration
	interval time.Duration

	stopOnce  sync.Once
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func NewSweeper(events store.EventStore, window, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Sweeper{
		events:    events,
		window:    window,
		interval:  interval,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// SweepOnce runs a single purge and returns the number of deleted events.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	deleted, err := s.events.PurgeOlderThan(ctx, s.window, model.TerminalStatuses)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		slog.InfoContext(ctx, "purged terminal events", "count", deleted, "window", s.window)
	}
	return deleted, nil
}

// Run sweeps immediately and then on every interval until Stop or ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	defer close(s.stoppedCh)

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "relay.dispatch.sweeper"})

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.SweepOnce(ctx); err != nil {
			slog.ErrorContext(ctx, "retention sweep failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
		}
	}
}

func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	<-s.stoppedCh
}
