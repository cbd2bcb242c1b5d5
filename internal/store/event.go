package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"repogator.app/relay/core/db/sqlc"
	"repogator.app/relay/internal/model"
)

type eventStore struct {
	queries *sqlc.Queries
}

func newEventStore(queries *sqlc.Queries) EventStore {
	return &eventStore{queries: queries}
}

func (s *eventStore) Ingest(ctx context.Context, event *model.Event) (*model.Event, bool, error) {
	row, err := s.queries.UpsertEvent(ctx, sqlc.UpsertEventParams{
		ID:           event.ID,
		DeliveryID:   event.DeliveryID,
		TenantID:     event.TenantID,
		RepoFullName: event.RepoFullName,
		Kind:         string(event.Kind),
		Payload:      []byte(event.Payload),
	})
	if err != nil {
		return nil, false, err
	}
	created := row.ID == event.ID
	return toEventModel(row), created, nil
}

func (s *eventStore) GetByID(ctx context.Context, id int64) (*model.Event, error) {
	row, err := s.queries.GetEvent(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toEventModel(row), nil
}

func (s *eventStore) GetByDeliveryID(ctx context.Context, deliveryID string) (*model.Event, error) {
	row, err := s.queries.GetEventByDeliveryID(ctx, deliveryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toEventModel(row), nil
}

func (s *eventStore) MarkProcessing(ctx context.Context, id int64, attempt int32) (*model.Event, error) {
	row, err := s.queries.ClaimEvent(ctx, sqlc.ClaimEventParams{Attempt: attempt, ID: id})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.rejected(ctx, id, model.EventStatusProcessing, fmt.Sprintf("attempt %d", attempt))
		}
		return nil, err
	}
	return toEventModel(row), nil
}

func (s *eventStore) MarkCompleted(ctx context.Context, id int64) (*model.Event, error) {
	row, err := s.queries.CompleteEvent(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.rejected(ctx, id, model.EventStatusCompleted, "")
		}
		return nil, err
	}
	return toEventModel(row), nil
}

func (s *eventStore) MarkFailed(ctx context.Context, id int64, reason string) (*model.Event, error) {
	row, err := s.queries.FailEvent(ctx, sqlc.FailEventParams{ID: id, FailureReason: &reason})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.rejected(ctx, id, model.EventStatusFailed, "")
		}
		return nil, err
	}
	return toEventModel(row), nil
}

func (s *eventStore) Reprocess(ctx context.Context, id int64) (*model.Event, error) {
	row, err := s.queries.ReprocessEvent(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.rejected(ctx, id, model.EventStatusReceived, "reprocess")
		}
		return nil, err
	}
	return toEventModel(row), nil
}

// rejected explains why a guarded UPDATE matched no row: either the event is
// gone or it sits in a status the transition does not accept.
func (s *eventStore) rejected(ctx context.Context, id int64, target model.EventStatus, detail string) error {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	msg := fmt.Sprintf("event %d: %s -> %s (attempts %d)", id, current.Status, target, current.Attempts)
	if detail != "" {
		msg += ", " + detail
	}
	return fmt.Errorf("%w: %s", ErrInvalidTransition, msg)
}

func (s *eventStore) FindIncomplete(ctx context.Context, filter IncompleteFilter) ([]model.Event, error) {
	if filter.ReceivedAge < 0 || filter.ProcessingAge < 0 {
		return nil, fmt.Errorf("incomplete filter ages must not be negative: %+v", filter)
	}
	rows, err := s.queries.ListIncompleteEvents(ctx, sqlc.ListIncompleteEventsParams{
		ReceivedAgeSeconds:   filter.ReceivedAge.Seconds(),
		ProcessingAgeSeconds: filter.ProcessingAge.Seconds(),
	})
	if err != nil {
		return nil, err
	}
	return toEventModels(rows), nil
}

func (s *eventStore) PurgeOlderThan(ctx context.Context, age time.Duration, statuses []model.EventStatus) (int64, error) {
	if age < 0 {
		return 0, fmt.Errorf("retention age must not be negative: %s", age)
	}
	names := make([]string, 0, len(statuses))
	for _, st := range statuses {
		if !st.IsTerminal() {
			return 0, fmt.Errorf("refusing to purge non-terminal status %q", st)
		}
		names = append(names, string(st))
	}
	if len(names) == 0 {
		return 0, nil
	}
	return s.queries.PurgeTerminalEvents(ctx, sqlc.PurgeTerminalEventsParams{
		Statuses:   names,
		AgeSeconds: age.Seconds(),
	})
}

func (s *eventStore) List(ctx context.Context, status *model.EventStatus, limit int32) ([]model.Event, error) {
	var filter *string
	if status != nil {
		v := string(*status)
		filter = &v
	}
	rows, err := s.queries.ListEvents(ctx, sqlc.ListEventsParams{Status: filter, Limit: limit})
	if err != nil {
		return nil, err
	}
	return toEventModels(rows), nil
}

func (s *eventStore) CountByStatus(ctx context.Context) (map[model.EventStatus]int64, error) {
	rows, err := s.queries.CountEventsByStatus(ctx)
	if err != nil {
		return nil, err
	}
	counts := map[model.EventStatus]int64{
		model.EventStatusReceived:   0,
		model.EventStatusProcessing: 0,
		model.EventStatusCompleted:  0,
		model.EventStatusFailed:     0,
	}
	for _, row := range rows {
		counts[model.EventStatus(row.Status)] = row.Count
	}
	return counts, nil
}

func toEventModels(rows []sqlc.Event) []model.Event {
	result := make([]model.Event, 0, len(rows))
	for _, row := range rows {
		result = append(result, *toEventModel(row))
	}
	return result
}

func toEventModel(row sqlc.Event) *model.Event {
	return &model.Event{
		ID:             row.ID,
		DeliveryID:     row.DeliveryID,
		TenantID:       row.TenantID,
		RepoFullName:   row.RepoFullName,
		Kind:           model.EventKind(row.Kind),
		Payload:        json.RawMessage(row.Payload),
		Status:         model.EventStatus(row.Status),
		Attempts:       row.Attempts,
		ReprocessCount: row.ReprocessCount,
		FailureReason:  row.FailureReason,
		ReceivedAt:     row.ReceivedAt.Time,
		StartedAt:      pgTimePtr(row.StartedAt),
		CompletedAt:    pgTimePtr(row.CompletedAt),
		UpdatedAt:      row.UpdatedAt.Time,
	}
}
