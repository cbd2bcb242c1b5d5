package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

var errNoEventID = errors.New("item has no event id")

// redisProducer appends items to the dispatch stream. Entries are never
// trimmed; XACK retires them from the group's pending list.
type redisProducer struct {
	client *redis.Client
	stream string
}

func NewRedisProducer(client *redis.Client, stream string) Producer {
	return &redisProducer{client: client, stream: stream}
}

func (p *redisProducer) Push(ctx context.Context, item Item) error {
	if item.EventID == 0 {
		return errNoEventID
	}
	if item.Attempt <= 0 {
		item.Attempt = 1
	}

	entryID, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		ID:     "*",
		Values: EncodeItem(item),
	}).Result()
	if err != nil {
		return fmt.Errorf("pushing event %d to %s: %w", item.EventID, p.stream, err)
	}

	slog.DebugContext(ctx, "event queued",
		"stream", p.stream,
		"entry_id", entryID,
		"event_id", item.EventID,
		"attempt", item.Attempt,
		"credentials_snapshot", item.Credentials != nil)
	return nil
}
