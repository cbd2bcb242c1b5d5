package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"repogator.app/relay/common/logger"
)

type ConsumerConfig struct {
	Stream    string        // Redis stream name
	Group     string        // Redis consumer group name
	Consumer  string        // Redis consumer name, unique per process
	DLQStream string        // Undecodable entries are copied here
	Block     time.Duration // How long one XREADGROUP call blocks
}

type RedisConsumer struct {
	client *redis.Client
	cfg    ConsumerConfig

	closeOnce sync.Once
	closed    chan struct{}
}

func NewRedisConsumer(ctx context.Context, client *redis.Client, cfg ConsumerConfig) (*RedisConsumer, error) {
	if cfg.Block <= 0 {
		cfg.Block = 2 * time.Second
	}

	consumer := &RedisConsumer{
		client: client,
		cfg:    cfg,
		closed: make(chan struct{}),
	}

	if err := consumer.ensureGroup(ctx); err != nil {
		return nil, err
	}

	return consumer, nil
}

func (c *RedisConsumer) ensureGroup(ctx context.Context) error {
	// Start from "0" so entries added before the group existed are still delivered.
	err := c.client.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("creating consumer group: %w", err)
	}
	return nil
}

// Pop reads new entries only. Entries another consumer left pending are never
// redelivered here; the event store decides what still needs work.
func (c *RedisConsumer) Pop(ctx context.Context) (*Item, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "relay.queue.consumer",
	})

	for {
		select {
		case <-c.closed:
			return nil, ErrClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.cfg.Group,
			Consumer: c.cfg.Consumer,
			Streams:  []string{c.cfg.Stream, ">"},
			Count:    1,
			Block:    c.cfg.Block,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("reading from stream: %w", err)
		}

		// One stream, at most one entry.
		for _, stream := range streams {
			for _, msg := range stream.Messages {
				item, parseErr := ParseMessage(msg)
				if parseErr != nil {
					c.deadLetter(ctx, msg, parseErr)
					continue
				}
				return &item, nil
			}
		}
	}
}

func (c *RedisConsumer) Ack(ctx context.Context, item *Item) error {
	if item == nil || item.MessageID == "" {
		return nil
	}
	return c.ack(ctx, item.MessageID)
}

func (c *RedisConsumer) ack(ctx context.Context, messageID string) error {
	if err := c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, messageID).Err(); err != nil {
		return fmt.Errorf("xack (stream=%s): %w", c.cfg.Stream, err)
	}
	slog.DebugContext(ctx, "message acknowledged", "stream", c.cfg.Stream, "message_id", messageID)
	return nil
}

// Close makes pending and future Pop calls return ErrClosed. A Pop blocked in
// Redis notices within one block interval.
func (c *RedisConsumer) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

// deadLetter copies an undecodable entry to the DLQ stream and acks it so it
// is not read again.
func (c *RedisConsumer) deadLetter(ctx context.Context, msg redis.XMessage, cause error) {
	msgID := msg.ID
	ctx = logger.WithLogFields(ctx, logger.LogFields{MessageID: &msgID})

	values := make(map[string]any, len(msg.Values)+2)
	for k, v := range msg.Values {
		values[k] = v
	}
	values["error"] = cause.Error()
	values["original_id"] = msg.ID

	if c.cfg.DLQStream != "" {
		if err := c.client.XAdd(ctx, &redis.XAddArgs{
			Stream: c.cfg.DLQStream,
			Values: values,
		}).Err(); err != nil {
			slog.ErrorContext(ctx, "failed to copy message to DLQ",
				"error", err,
				"dlq_stream", c.cfg.DLQStream)
		}
	}

	if err := c.ack(ctx, msg.ID); err != nil {
		slog.ErrorContext(ctx, "failed to ack undecodable message", "error", err)
	}

	slog.ErrorContext(ctx, "undecodable message sent to DLQ",
		"error", cause,
		"dlq_stream", c.cfg.DLQStream)
}
