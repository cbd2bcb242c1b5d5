package credentials_test

import (
	"context"

	"repogator.app/relay/internal/model"
	"repogator.app/relay/internal/store"
)

type mockTenantStore struct {
	getByIDFn        func(ctx context.Context, id int64) (*model.Tenant, error)
	getRepoFn        func(ctx context.Context, repoFullName string) (*model.TenantRepo, error)
	getCredentialsFn func(ctx context.Context, tenantID int64) (*model.TenantCredential, error)
}

func (m *mockTenantStore) GetByID(ctx context.Context, id int64) (*model.Tenant, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockTenantStore) GetRepo(ctx context.Context, repoFullName string) (*model.TenantRepo, error) {
	if m.getRepoFn != nil {
		return m.getRepoFn(ctx, repoFullName)
	}
	return nil, store.ErrNotFound
}

func (m *mockTenantStore) GetCredentials(ctx context.Context, tenantID int64) (*model.TenantCredential, error) {
	if m.getCredentialsFn != nil {
		return m.getCredentialsFn(ctx, tenantID)
	}
	return nil, store.ErrNotFound
}
