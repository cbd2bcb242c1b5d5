package webhook_test

import (
	"context"

	"repogator.app/relay/internal/model"
	"repogator.app/relay/internal/service"
)

type mockEventIngestService struct {
	ingestFn func(ctx context.Context, params service.EventIngestParams) (*service.EventIngestResult, error)
	calls    []service.EventIngestParams
}

func (m *mockEventIngestService) Ingest(ctx context.Context, params service.EventIngestParams) (*service.EventIngestResult, error) {
	m.calls = append(m.calls, params)
	if m.ingestFn != nil {
		return m.ingestFn(ctx, params)
	}
	return &service.EventIngestResult{
		Event: &model.Event{
			ID:         1001,
			DeliveryID: params.DeliveryID,
			TenantID:   params.TenantID,
			Kind:       params.Kind,
			Status:     model.EventStatusReceived,
		},
		Enqueued: true,
	}, nil
}

type mockTenantService struct {
	repos map[string]*model.TenantRepo
	err   error
}

func (m *mockTenantService) ResolveRepo(_ context.Context, repoFullName string) (*model.TenantRepo, error) {
	if m.err != nil {
		return nil, m.err
	}
	if repo, ok := m.repos[repoFullName]; ok {
		return repo, nil
	}
	return nil, service.ErrTenantNotFound
}
