package store

import (
	"context"
	"errors"
	"time"

	"repogator.app/relay/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrInvalidTransition is returned when an event is not in the status a transition expects.
var ErrInvalidTransition = errors.New("invalid event status transition")

// EventStore is the durable record of every inbound event and its lifecycle.
// All status changes go through its guarded transitions; each is a single
// conditional UPDATE so concurrent workers cannot both win the same claim.
// IncompleteFilter bounds FindIncomplete by the database clock. A received
// event qualifies once it was received at least ReceivedAge ago, a processing
// event once it was claimed at least ProcessingAge ago.
type IncompleteFilter struct {
	ReceivedAge   time.Duration
	ProcessingAge time.Duration
}

type EventStore interface {
	// Ingest inserts the event with status=received unless its delivery ID is
	// already stored, in which case the existing row is returned and created is false.
	Ingest(ctx context.Context, event *model.Event) (stored *model.Event, created bool, err error)
	GetByID(ctx context.Context, id int64) (*model.Event, error)
	GetByDeliveryID(ctx context.Context, deliveryID string) (*model.Event, error)
	// MarkProcessing claims the event for the given attempt. It succeeds only
	// from received or processing and only when attempt is exactly one past the
	// stored attempt count.
	MarkProcessing(ctx context.Context, id int64, attempt int32) (*model.Event, error)
	MarkCompleted(ctx context.Context, id int64) (*model.Event, error)
	MarkFailed(ctx context.Context, id int64, reason string) (*model.Event, error)
	// Reprocess moves a terminal event back to received.
	Reprocess(ctx context.Context, id int64) (*model.Event, error)
	// FindIncomplete returns received and processing events, oldest first,
	// limited by the ages in filter.
	FindIncomplete(ctx context.Context, filter IncompleteFilter) ([]model.Event, error)
	PurgeOlderThan(ctx context.Context, age time.Duration, statuses []model.EventStatus) (int64, error)
	List(ctx context.Context, status *model.EventStatus, limit int32) ([]model.Event, error)
	CountByStatus(ctx context.Context) (map[model.EventStatus]int64, error)
}

// TenantStore is read-only from the pipeline's side.
type TenantStore interface {
	GetByID(ctx context.Context, id int64) (*model.Tenant, error)
	GetRepo(ctx context.Context, repoFullName string) (*model.TenantRepo, error)
	GetCredentials(ctx context.Context, tenantID int64) (*model.TenantCredential, error)
}

// ProcessorRunStore records processor invocations.
type ProcessorRunStore interface {
	Create(ctx context.Context, run *model.ProcessorRun) (*model.ProcessorRun, error)
	Finish(ctx context.Context, run *model.ProcessorRun) error
	ListByEvent(ctx context.Context, eventID int64, limit int32) ([]model.ProcessorRun, error)
}
