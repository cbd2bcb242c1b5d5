package credentials

import (
	"context"
	"errors"
	"fmt"

	"repogator.app/relay/core/config"
	"repogator.app/relay/internal/model"
	"repogator.app/relay/internal/store"
)

// ErrNoCredentials is terminal for an event: retrying cannot help until the
// tenant or the operator configures a key.
var ErrNoCredentials = errors.New("missing credentials")

// Resolver picks the credential set an event is processed with. It never
// substitutes another tenant's credentials; the only fallback is the shared set.
type Resolver struct {
	tenants store.TenantStore
	shared  config.SharedCredentialsConfig
}

func NewResolver(tenants store.TenantStore, shared config.SharedCredentialsConfig) *Resolver {
	return &Resolver{tenants: tenants, shared: shared}
}

// Resolve returns the tenant's own credentials when it has an LLM key, else the
// shared set when the tenant may use it, else ErrNoCredentials.
func (r *Resolver) Resolve(ctx context.Context, tenantID *int64) (model.CredentialSet, error) {
	var (
		tenant *model.Tenant
		owned  *model.TenantCredential
	)

	if tenantID != nil {
		var err error
		tenant, err = r.tenants.GetByID(ctx, *tenantID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return model.CredentialSet{}, fmt.Errorf("loading tenant %d: %w", *tenantID, err)
		}

		owned, err = r.tenants.GetCredentials(ctx, *tenantID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return model.CredentialSet{}, fmt.Errorf("loading credentials for tenant %d: %w", *tenantID, err)
		}
	}

	sharedAllowed := r.sharedAllowed(tenant)

	if owned != nil && deref(owned.LLMAPIKey) != "" {
		set := model.CredentialSet{
			Source:          model.CredentialSourceTenant,
			LLMAPIKey:       *owned.LLMAPIKey,
			LLMBaseURL:      r.shared.LLMBaseURL,
			LLMModel:        firstNonEmpty(deref(owned.LLMModel), r.shared.LLMModel),
			EmbeddingAPIKey: deref(owned.EmbeddingAPIKey),
			EmbeddingModel:  firstNonEmpty(deref(owned.EmbeddingModel), r.shared.EmbeddingModel),
		}
		if set.EmbeddingAPIKey == "" && sharedAllowed {
			set.EmbeddingAPIKey = r.shared.EmbeddingAPIKey
		}
		return set, nil
	}

	if sharedAllowed {
		return model.CredentialSet{
			Source:          model.CredentialSourceShared,
			LLMAPIKey:       r.shared.LLMAPIKey,
			LLMBaseURL:      r.shared.LLMBaseURL,
			LLMModel:        r.shared.LLMModel,
			EmbeddingAPIKey: r.shared.EmbeddingAPIKey,
			EmbeddingModel:  r.shared.EmbeddingModel,
		}, nil
	}

	if tenantID == nil {
		return model.CredentialSet{}, fmt.Errorf("%w: no tenant key and no shared key available", ErrNoCredentials)
	}
	return model.CredentialSet{}, fmt.Errorf("%w: tenant %d has no LLM key and no shared key is available to it", ErrNoCredentials, *tenantID)
}

func (r *Resolver) sharedAllowed(tenant *model.Tenant) bool {
	if r.shared.LLMAPIKey == "" {
		return false
	}
	if !r.shared.AdminOnly {
		return true
	}
	return tenant != nil && tenant.IsAdmin
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
