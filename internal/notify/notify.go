package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"repogator.app/relay/internal/model"
)

// Notifier announces that an event reached a terminal status. Delivery is best
// effort: failures are logged and never affect the event.
type Notifier interface {
	EventFinished(ctx context.Context, event *model.Event)
}

// Nop is used when no broker is configured.
type Nop struct{}

func (Nop) EventFinished(context.Context, *model.Event) {}

// Publisher is the subset of *nats.Conn the notifier needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

type EventMessage struct {
	EventID       int64             `json:"event_id"`
	DeliveryID    string            `json:"delivery_id"`
	TenantID      *int64            `json:"tenant_id,omitempty"`
	Kind          model.EventKind   `json:"kind"`
	Status        model.EventStatus `json:"status"`
	FailureReason *string           `json:"failure_reason,omitempty"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty"`
}

type natsNotifier struct {
	pub    Publisher
	prefix string
}

func NewNATSNotifier(pub Publisher, subjectPrefix string) Notifier {
	return &natsNotifier{pub: pub, prefix: subjectPrefix}
}

// Subject is where lifecycle messages for status are published.
func Subject(prefix string, status model.EventStatus) string {
	if prefix == "" {
		return "events." + string(status)
	}
	return prefix + ".events." + string(status)
}

func (n *natsNotifier) EventFinished(ctx context.Context, event *model.Event) {
	msg := EventMessage{
		EventID:       event.ID,
		DeliveryID:    event.DeliveryID,
		TenantID:      event.TenantID,
		Kind:          event.Kind,
		Status:        event.Status,
		FailureReason: event.FailureReason,
		CompletedAt:   event.CompletedAt,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to encode event notification", "error", err)
		return
	}

	subject := Subject(n.prefix, event.Status)
	if err := n.pub.Publish(subject, data); err != nil {
		slog.WarnContext(ctx, "failed to publish event notification",
			"error", err,
			"subject", subject)
		return
	}
	slog.DebugContext(ctx, "event notification published", "subject", subject)
}

// Connect opens a NATS connection that keeps reconnecting in the background.
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("repogator-relay"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return nc, nil
}
