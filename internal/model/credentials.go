package model

type CredentialSource string

const (
	CredentialSourceTenant CredentialSource = "tenant"
	CredentialSourceShared CredentialSource = "shared"
)

// CredentialSet is the resolved configuration a processor runs with.
type CredentialSet struct {
	Source          CredentialSource `json:"source"`
	LLMAPIKey       string           `json:"-"`
	LLMBaseURL      string           `json:"llm_base_url,omitempty"`
	LLMModel        string           `json:"llm_model"`
	EmbeddingAPIKey string           `json:"-"`
	EmbeddingModel  string           `json:"embedding_model,omitempty"`
}

// Usable reports whether a processor can call the LLM with this set.
func (c CredentialSet) Usable() bool {
	return c.LLMAPIKey != ""
}
