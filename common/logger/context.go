package logger

import (
	"context"
	"unicode/utf8"
)

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// Fields flow through context enrichment so the event being handled shows up on every
// log line without threading it through each call.
type LogFields struct {
	EventID    *int64  // Event row ID
	DeliveryID *string // Source-assigned delivery ID
	TenantID   *int64  // Owning tenant, nil for unscoped deliveries
	EventKind  *string // Classified kind (e.g., "issue_opened")
	MessageID  *string // Redis stream message ID
	WorkerID   *int    // Dispatcher worker index
	Component  string  // Component name (e.g., "relay.dispatch.worker")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, next LogFields) LogFields {
	result := existing

	if next.EventID != nil {
		result.EventID = next.EventID
	}
	if next.DeliveryID != nil {
		result.DeliveryID = next.DeliveryID
	}
	if next.TenantID != nil {
		result.TenantID = next.TenantID
	}
	if next.EventKind != nil {
		result.EventKind = next.EventKind
	}
	if next.MessageID != nil {
		result.MessageID = next.MessageID
	}
	if next.WorkerID != nil {
		result.WorkerID = next.WorkerID
	}
	if next.Component != "" {
		result.Component = next.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{EventID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate cuts s to at most maxLen bytes without splitting a rune, appending
// "..." if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
