package store

import (
	"repogator.app/relay/core/db/sqlc"
)

type Stores struct {
	queries *sqlc.Queries
}

func NewStores(queries *sqlc.Queries) *Stores {
	return &Stores{queries: queries}
}

func (s *Stores) Events() EventStore {
	return newEventStore(s.queries)
}

func (s *Stores) Tenants() TenantStore {
	return newTenantStore(s.queries)
}

func (s *Stores) ProcessorRuns() ProcessorRunStore {
	return newProcessorRunStore(s.queries)
}
