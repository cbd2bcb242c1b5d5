package service

import (
	"repogator.app/relay/internal/queue"
	"repogator.app/relay/internal/store"
)

type Services struct {
	stores   *store.Stores
	txRunner TxRunner
	producer queue.Producer
	resolver CredentialResolver
}

func NewServices(stores *store.Stores, txRunner TxRunner, producer queue.Producer, resolver CredentialResolver) *Services {
	return &Services{
		stores:   stores,
		txRunner: txRunner,
		producer: producer,
		resolver: resolver,
	}
}

func (s *Services) Ingest() EventIngestService {
	return NewEventIngestService(s.txRunner, s.producer, s.resolver)
}

func (s *Services) Events() EventService {
	return NewEventService(s.stores.Events(), s.stores.ProcessorRuns(), s.producer, s.resolver)
}

func (s *Services) Tenants() TenantService {
	return NewTenantService(s.stores.Tenants())
}
