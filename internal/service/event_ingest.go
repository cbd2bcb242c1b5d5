package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"repogator.app/relay/common/id"
	"repogator.app/relay/common/logger"
	"repogator.app/relay/internal/model"
	"repogator.app/relay/internal/queue"
)

// CredentialResolver snapshots credentials onto queue items.
type CredentialResolver interface {
	Resolve(ctx context.Context, tenantID *int64) (model.CredentialSet, error)
}

type EventIngestParams struct {
	TenantID     *int64
	Payload      json.RawMessage
	DeliveryID   string
	RepoFullName string
	Kind         model.EventKind
	TraceID      string
}

type EventIngestResult struct {
	Event     *model.Event
	Duplicate bool
	// Enqueued is false for duplicates and when the push failed after the
	// event was stored; the recovery scan picks those up on next start.
	Enqueued bool
}

type EventIngestService interface {
	Ingest(ctx context.Context, params EventIngestParams) (*EventIngestResult, error)
}

type eventIngestService struct {
	txRunner TxRunner
	queue    queue.Producer
	resolver CredentialResolver
}

func NewEventIngestService(txRunner TxRunner, producer queue.Producer, resolver CredentialResolver) EventIngestService {
	return &eventIngestService{
		txRunner: txRunner,
		queue:    producer,
		resolver: resolver,
	}
}

// Ingest makes the event durable before anything else. An error means nothing
// was stored and the sender should retry the delivery.
func (s *eventIngestService) Ingest(ctx context.Context, params EventIngestParams) (*EventIngestResult, error) {
	if params.Kind == "" {
		return nil, fmt.Errorf("%w: event kind is required", ErrInvalidPayload)
	}
	if len(params.Payload) == 0 || !json.Valid(params.Payload) {
		return nil, fmt.Errorf("%w: payload must be JSON", ErrInvalidPayload)
	}

	deliveryID := params.DeliveryID
	if deliveryID == "" {
		deliveryID = uuid.NewString()
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		DeliveryID: &deliveryID,
		TenantID:   params.TenantID,
		EventKind:  logger.Ptr(string(params.Kind)),
		Component:  "relay.service.ingest",
	})

	sc := logger.StartSpan(ctx, "ingest.event",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("event.delivery_id", deliveryID),
			attribute.String("event.kind", string(params.Kind)),
		))
	defer sc.End()
	ctx = sc.Context()

	traceID := params.TraceID
	if traceID == "" {
		traceID = sc.TraceID()
	}

	var (
		event   *model.Event
		created bool
	)
	if err := s.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		var err error
		event, created, err = sp.Events().Ingest(ctx, &model.Event{
			ID:           id.New(),
			DeliveryID:   deliveryID,
			TenantID:     params.TenantID,
			RepoFullName: params.RepoFullName,
			Kind:         params.Kind,
			Payload:      params.Payload,
			Status:       model.EventStatusReceived,
		})
		if err != nil {
			return fmt.Errorf("storing event: %w", err)
		}
		return nil
	}); err != nil {
		sc.RecordError(err)
		return nil, err
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{EventID: &event.ID})

	if !created {
		slog.InfoContext(ctx, "duplicate delivery absorbed", "status", event.Status)
		return &EventIngestResult{Event: event, Duplicate: true}, nil
	}

	slog.InfoContext(ctx, "event received")

	enqueued := enqueue(ctx, s.queue, s.resolver, event, traceID)
	return &EventIngestResult{Event: event, Enqueued: enqueued}, nil
}

// enqueue pushes the next claim for event with a fresh credential snapshot.
// Failures are logged only: the event is durable and recovery re-enqueues it.
func enqueue(ctx context.Context, producer queue.Producer, resolver CredentialResolver, event *model.Event, traceID string) bool {
	var snapshot *model.CredentialSet
	if resolver != nil {
		creds, err := resolver.Resolve(ctx, event.TenantID)
		if err != nil {
			// The dispatcher resolves again and records the failure on the event.
			slog.WarnContext(ctx, "credential snapshot unavailable", "error", err)
		} else {
			snapshot = &creds
		}
	}

	if err := producer.Push(ctx, queue.NewItem(event, snapshot, traceID)); err != nil {
		slog.ErrorContext(ctx, "failed to enqueue stored event, leaving it for recovery", "error", err)
		return false
	}
	return true
}
