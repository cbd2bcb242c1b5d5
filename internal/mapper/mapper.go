package mapper

import (
	"context"
	"errors"

	"repogator.app/relay/internal/model"
)

var (
	// ErrMissingEventHeader means the delivery does not say what happened.
	ErrMissingEventHeader = errors.New("missing event header")
	// ErrInvalidPayload means the body is not a JSON document of the claimed event type.
	ErrInvalidPayload = errors.New("invalid payload")
)

// Mapping is the classification of one delivery.
type Mapping struct {
	Kind         model.EventKind
	RepoFullName string
	// Ignore marks deliveries that are acknowledged but never stored, such as pings.
	Ignore bool
}

// EventMapper turns a platform-specific delivery into a pipeline event kind.
type EventMapper interface {
	Map(ctx context.Context, body []byte, headers map[string]string) (Mapping, error)
}
