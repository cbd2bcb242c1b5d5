package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"repogator.app/relay/common/logger"
	"repogator.app/relay/internal/model"
	"repogator.app/relay/internal/queue"
	"repogator.app/relay/internal/store"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

type EventDetail struct {
	Event *model.Event         `json:"event"`
	Runs  []model.ProcessorRun `json:"runs"`
}

type EventService interface {
	Get(ctx context.Context, id int64) (*EventDetail, error)
	// GetByDelivery finds an event by the delivery id GitHub assigned it.
	GetByDelivery(ctx context.Context, deliveryID string) (*EventDetail, error)
	List(ctx context.Context, status *model.EventStatus, limit int32) ([]model.Event, error)
	Stats(ctx context.Context) (map[model.EventStatus]int64, error)
	// Reprocess resets a terminal event to received and enqueues a new attempt.
	Reprocess(ctx context.Context, id int64, traceID string) (*model.Event, bool, error)
}

type eventService struct {
	events   store.EventStore
	runs     store.ProcessorRunStore
	queue    queue.Producer
	resolver CredentialResolver
}

func NewEventService(events store.EventStore, runs store.ProcessorRunStore, producer queue.Producer, resolver CredentialResolver) EventService {
	return &eventService{
		events:   events,
		runs:     runs,
		queue:    producer,
		resolver: resolver,
	}
}

func (s *eventService) Get(ctx context.Context, id int64) (*EventDetail, error) {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("fetching event: %w", err)
	}
	return s.detail(ctx, event)
}

func (s *eventService) GetByDelivery(ctx context.Context, deliveryID string) (*EventDetail, error) {
	event, err := s.events.GetByDeliveryID(ctx, deliveryID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("fetching event by delivery: %w", err)
	}
	return s.detail(ctx, event)
}

func (s *eventService) detail(ctx context.Context, event *model.Event) (*EventDetail, error) {
	runs, err := s.runs.ListByEvent(ctx, event.ID, 20)
	if err != nil {
		return nil, fmt.Errorf("fetching processor runs: %w", err)
	}
	return &EventDetail{Event: event, Runs: runs}, nil
}

func (s *eventService) List(ctx context.Context, status *model.EventStatus, limit int32) ([]model.Event, error) {
	if status != nil && !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidPayload, *status)
	}
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}

	events, err := s.events.List(ctx, status, limit)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	return events, nil
}

func (s *eventService) Stats(ctx context.Context) (map[model.EventStatus]int64, error) {
	counts, err := s.events.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting events: %w", err)
	}
	return counts, nil
}

func (s *eventService) Reprocess(ctx context.Context, id int64, traceID string) (*model.Event, bool, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		EventID:   &id,
		Component: "relay.service.events",
	})

	event, err := s.events.Reprocess(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, false, ErrEventNotFound
		case errors.Is(err, store.ErrInvalidTransition):
			return nil, false, fmt.Errorf("%w: %v", ErrNotTerminal, err)
		}
		return nil, false, fmt.Errorf("resetting event: %w", err)
	}

	slog.InfoContext(ctx, "event reset for reprocessing", "reprocess_count", event.ReprocessCount)

	enqueued := enqueue(ctx, s.queue, s.resolver, event, traceID)
	return event, enqueued, nil
}
