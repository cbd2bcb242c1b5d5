package queue

import (
	"context"
	"errors"

	"repogator.app/relay/internal/model"
)

// ErrClosed is returned by Pop once the consumer has been closed.
var ErrClosed = errors.New("queue closed")

// Item references an event awaiting dispatch. Credentials is the snapshot
// resolved at enqueue time; nil means the dispatcher resolves them itself.
type Item struct {
	TenantID    *int64
	Credentials *model.CredentialSet
	// MessageID is the transport id, set on items returned by Pop.
	MessageID  string
	DeliveryID string
	Kind       model.EventKind
	TraceID    string
	EventID    int64
	// Attempt is the claim the dispatcher will make: the event's attempts + 1.
	Attempt int32
}

type Producer interface {
	Push(ctx context.Context, item Item) error
}

// Consumer hands items to dispatch workers. Pop blocks until an item is
// available, ctx is done, or Close was called.
type Consumer interface {
	Pop(ctx context.Context) (*Item, error)
	Ack(ctx context.Context, item *Item) error
	Close() error
}

// NewItem builds the item for the next claim on event.
func NewItem(event *model.Event, creds *model.CredentialSet, traceID string) Item {
	return Item{
		EventID:     event.ID,
		DeliveryID:  event.DeliveryID,
		TenantID:    event.TenantID,
		Kind:        event.Kind,
		Attempt:     event.Attempts + 1,
		TraceID:     traceID,
		Credentials: creds,
	}
}
