package service

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"repogator.app/relay/common/logger"
	"repogator.app/relay/core/db"
	"repogator.app/relay/core/db/sqlc"
	"repogator.app/relay/internal/store"
)

// StoreProvider is the slice of stores an ingest transaction may touch.
type StoreProvider interface {
	Events() store.EventStore
	Tenants() store.TenantStore
}

// TxRunner runs fn with stores bound to a single transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(stores StoreProvider) error) error
}

type dbTxRunner struct {
	db *db.DB
}

func NewTxRunner(database *db.DB) TxRunner {
	return &dbTxRunner{db: database}
}

func (r *dbTxRunner) WithTx(ctx context.Context, fn func(stores StoreProvider) error) error {
	sc := logger.StartSpan(ctx, "db.tx", trace.WithSpanKind(trace.SpanKindClient))
	defer sc.End()
	ctx = sc.Context()

	err := r.db.WithTx(ctx, func(q *sqlc.Queries) error {
		return fn(store.NewStores(q))
	})
	sc.RecordError(err)
	return err
}
