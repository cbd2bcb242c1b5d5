package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"repogator.app/relay/common/logger"
)

type StaleReleaserConfig struct {
	Stream    string
	Group     string
	MinIdle   time.Duration
	BatchSize int64
}

// StaleReleaser acks pending entries that a crashed consumer never
// acknowledged. They are not redelivered: the recovery scan re-enqueues every
// event the store still considers incomplete, so replaying the old entries
// would only produce stale duplicates.
type StaleReleaser struct {
	client *redis.Client
	cfg    StaleReleaserConfig
}

func NewStaleReleaser(client *redis.Client, cfg StaleReleaserConfig) *StaleReleaser {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &StaleReleaser{client: client, cfg: cfg}
}

// Release acks every pending entry idle for at least MinIdle and returns how
// many were released.
func (r *StaleReleaser) Release(ctx context.Context) (int, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "relay.queue.stale",
	})

	released := 0
	start := "-"
	for {
		pending, err := r.client.XPendingExt(ctx, &redis.XPendingExtArgs{
			Stream: r.cfg.Stream,
			Group:  r.cfg.Group,
			Idle:   r.cfg.MinIdle,
			Start:  start,
			End:    "+",
			Count:  r.cfg.BatchSize,
		}).Result()
		if err != nil {
			return released, fmt.Errorf("xpending: %w", err)
		}
		if len(pending) == 0 {
			break
		}

		ids := make([]string, 0, len(pending))
		for _, p := range pending {
			ids = append(ids, p.ID)
			slog.DebugContext(ctx, "releasing stale message",
				"message_id", p.ID,
				"original_consumer", p.Consumer,
				"idle_time", p.Idle,
				"retry_count", p.RetryCount)
		}

		n, err := r.client.XAck(ctx, r.cfg.Stream, r.cfg.Group, ids...).Result()
		if err != nil {
			return released, fmt.Errorf("xack stale: %w", err)
		}
		released += int(n)

		if int64(len(pending)) < r.cfg.BatchSize {
			break
		}
		// Exclusive start: continue after the last id seen.
		start = "(" + pending[len(pending)-1].ID
	}

	if released > 0 {
		slog.InfoContext(ctx, "released stale pending messages",
			"count", released,
			"min_idle", r.cfg.MinIdle)
	}
	return released, nil
}
