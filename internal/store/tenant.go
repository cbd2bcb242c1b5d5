package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"repogator.app/relay/core/db/sqlc"
	"repogator.app/relay/internal/model"
)

type tenantStore struct {
	queries *sqlc.Queries
}

func newTenantStore(queries *sqlc.Queries) TenantStore {
	return &tenantStore{queries: queries}
}

func (s *tenantStore) GetByID(ctx context.Context, id int64) (*model.Tenant, error) {
	row, err := s.queries.GetTenant(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &model.Tenant{
		ID:        row.ID,
		Name:      row.Name,
		IsAdmin:   row.IsAdmin,
		CreatedAt: row.CreatedAt.Time,
		UpdatedAt: row.UpdatedAt.Time,
	}, nil
}

func (s *tenantStore) GetRepo(ctx context.Context, repoFullName string) (*model.TenantRepo, error) {
	row, err := s.queries.GetTenantRepoByFullName(ctx, repoFullName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &model.TenantRepo{
		ID:            row.ID,
		TenantID:      row.TenantID,
		RepoFullName:  row.RepoFullName,
		WebhookSecret: row.WebhookSecret,
		IsActive:      row.IsActive,
		CreatedAt:     row.CreatedAt.Time,
	}, nil
}

func (s *tenantStore) GetCredentials(ctx context.Context, tenantID int64) (*model.TenantCredential, error) {
	row, err := s.queries.GetTenantCredentials(ctx, tenantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &model.TenantCredential{
		TenantID:        row.TenantID,
		LLMAPIKey:       row.LlmApiKey,
		LLMModel:        row.LlmModel,
		EmbeddingAPIKey: row.EmbeddingApiKey,
		EmbeddingModel:  row.EmbeddingModel,
		UpdatedAt:       row.UpdatedAt.Time,
	}, nil
}
