package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
)

// SharedScope holds documents every tenant may read.
const SharedScope = "shared"

// TenantScope is the scope of one tenant's private documents.
func TenantScope(tenantID int64) string {
	return "tenant:" + strconv.FormatInt(tenantID, 10)
}

type Result struct {
	Key     string  `json:"key"`
	Scope   string  `json:"scope"`
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Source  string  `json:"source,omitempty"`
	Score   float64 `json:"score"`
}

// Lookup ranks documents in one scope against free text, best first.
type Lookup interface {
	Query(ctx context.Context, scope string, text string, limit int) ([]Result, error)
}

// Document is a new piece of knowledge. Key must be unique within a scope.
type Document struct {
	Key     string
	Title   string
	Content string
	Source  string
}

// Writer is implemented by lookups that also accept documents.
type Writer interface {
	Add(ctx context.Context, scope string, docs []Document) error
}

// Handle is the knowledge capability a processor receives. It is bound to a
// single tenant and cannot read another tenant's scope.
type Handle struct {
	lookup   Lookup
	tenantID *int64
}

// NewHandle binds lookup to tenantID. A nil lookup yields a handle that always
// returns no results; a nil tenantID restricts the handle to shared documents.
func NewHandle(lookup Lookup, tenantID *int64) Handle {
	return Handle{lookup: lookup, tenantID: tenantID}
}

func (h Handle) QueryTenant(ctx context.Context, text string, limit int) ([]Result, error) {
	if h.lookup == nil || h.tenantID == nil {
		return nil, nil
	}
	results, err := h.lookup.Query(ctx, TenantScope(*h.tenantID), text, limit)
	if err != nil {
		return nil, fmt.Errorf("querying tenant knowledge: %w", err)
	}
	return results, nil
}

func (h Handle) QueryShared(ctx context.Context, text string, limit int) ([]Result, error) {
	if h.lookup == nil {
		return nil, nil
	}
	results, err := h.lookup.Query(ctx, SharedScope, text, limit)
	if err != nil {
		return nil, fmt.Errorf("querying shared knowledge: %w", err)
	}
	return results, nil
}

// QueryWithFallback merges tenant and shared results by score. A failing side
// is logged and skipped; an error is returned only when both fail.
func (h Handle) QueryWithFallback(ctx context.Context, text string, limit int) ([]Result, error) {
	tenant, tenantErr := h.QueryTenant(ctx, text, limit)
	if tenantErr != nil {
		slog.WarnContext(ctx, "tenant knowledge unavailable, using shared only", "error", tenantErr)
	}

	shared, sharedErr := h.QueryShared(ctx, text, limit)
	if sharedErr != nil {
		if tenantErr != nil {
			return nil, fmt.Errorf("knowledge lookup: %w", sharedErr)
		}
		slog.WarnContext(ctx, "shared knowledge unavailable", "error", sharedErr)
	}

	merged := make([]Result, 0, len(tenant)+len(shared))
	merged = append(merged, tenant...)
	merged = append(merged, shared...)
	// Stable so tenant documents win ties.
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

// Remember stores doc in the bound tenant's scope. Shared documents are curated
// elsewhere, so a handle without a tenant or over a read-only lookup stores
// nothing.
func (h Handle) Remember(ctx context.Context, doc Document) error {
	w, ok := h.lookup.(Writer)
	if !ok || h.tenantID == nil {
		return nil
	}
	if err := w.Add(ctx, TenantScope(*h.tenantID), []Document{doc}); err != nil {
		return fmt.Errorf("storing tenant knowledge: %w", err)
	}
	return nil
}
