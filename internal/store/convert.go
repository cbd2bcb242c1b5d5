package store

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

func pgTimePtr(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}
