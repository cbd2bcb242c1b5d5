package service

import (
	"context"
	"errors"
	"fmt"

	"repogator.app/relay/internal/model"
	"repogator.app/relay/internal/store"
)

type TenantService interface {
	// ResolveRepo returns the active binding for a repository, which carries
	// the tenant and its webhook secret.
	ResolveRepo(ctx context.Context, repoFullName string) (*model.TenantRepo, error)
}

type tenantService struct {
	tenants store.TenantStore
}

func NewTenantService(tenants store.TenantStore) TenantService {
	return &tenantService{tenants: tenants}
}

func (s *tenantService) ResolveRepo(ctx context.Context, repoFullName string) (*model.TenantRepo, error) {
	if repoFullName == "" {
		return nil, ErrTenantNotFound
	}

	repo, err := s.tenants.GetRepo(ctx, repoFullName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("fetching tenant repo: %w", err)
	}
	if !repo.IsActive {
		return nil, ErrTenantNotFound
	}
	return repo, nil
}
