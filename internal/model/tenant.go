package model

import "time"

type Tenant struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `json:"name"`
	ID        int64     `json:"id"`
	IsAdmin   bool      `json:"is_admin"`
}

// TenantRepo binds a repository to the tenant that owns its webhook.
type TenantRepo struct {
	CreatedAt     time.Time `json:"created_at"`
	RepoFullName  string    `json:"repo_full_name"`
	WebhookSecret string    `json:"-"`
	ID            int64     `json:"id"`
	TenantID      int64     `json:"tenant_id"`
	IsActive      bool      `json:"is_active"`
}

// TenantCredential is what a tenant configured for itself. Every field is optional.
type TenantCredential struct {
	UpdatedAt       time.Time `json:"updated_at"`
	LLMAPIKey       *string   `json:"-"`
	LLMModel        *string   `json:"llm_model,omitempty"`
	EmbeddingAPIKey *string   `json:"-"`
	EmbeddingModel  *string   `json:"embedding_model,omitempty"`
	TenantID        int64     `json:"tenant_id"`
}
