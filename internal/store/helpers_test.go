package store_test

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v4"
)

var eventColumns = []string{
	"id", "delivery_id", "tenant_id", "repo_full_name", "kind", "payload", "status",
	"attempts", "reprocess_count", "failure_reason", "received_at", "started_at",
	"completed_at", "updated_at",
}

type eventRowSpec struct {
	id            int64
	deliveryID    string
	tenantID      *int64
	kind          string
	payload       []byte
	status        string
	attempts      int32
	failureReason *string
	completed     bool
}

func ts(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func eventRows(specs ...eventRowSpec) *pgxmock.Rows {
	rows := pgxmock.NewRows(eventColumns)
	now := time.Now()
	for _, s := range specs {
		payload := s.payload
		if payload == nil {
			payload = []byte(`{}`)
		}
		kind := s.kind
		if kind == "" {
			kind = "issue_opened"
		}
		completedAt := pgtype.Timestamptz{}
		if s.completed {
			completedAt = ts(now)
		}
		rows.AddRow(
			s.id,
			s.deliveryID,
			s.tenantID,
			"octo/repo",
			kind,
			payload,
			s.status,
			s.attempts,
			int32(0),
			s.failureReason,
			ts(now.Add(-time.Minute)),
			pgtype.Timestamptz{},
			completedAt,
			ts(now),
		)
	}
	return rows
}
