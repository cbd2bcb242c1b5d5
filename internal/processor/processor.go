package processor

import (
	"context"
	"encoding/json"
	"fmt"

	"repogator.app/relay/internal/knowledge"
	"repogator.app/relay/internal/model"
)

// Input is everything a processor may use. Knowledge is already scoped to the
// event's tenant.
type Input struct {
	Event       *model.Event
	Credentials model.CredentialSet
	Knowledge   knowledge.Handle
}

// Result is the outcome of one invocation. A processor reports failure here
// instead of returning an error.
type Result struct {
	Output           json.RawMessage
	Reason           string
	PromptTokens     int
	CompletionTokens int
	Success          bool
}

// Processor handles one event kind.
type Processor interface {
	Name() string
	Process(ctx context.Context, in Input) Result
}

func Succeeded(output any) Result {
	raw, err := json.Marshal(output)
	if err != nil {
		return Failed(fmt.Sprintf("encoding output: %v", err))
	}
	return Result{Success: true, Output: raw}
}

func Failed(reason string) Result {
	return Result{Success: false, Reason: reason}
}

// Registry is the fixed kind to processor table built at startup.
type Registry struct {
	processors map[model.EventKind]Processor
}

func NewRegistry(processors map[model.EventKind]Processor) *Registry {
	copied := make(map[model.EventKind]Processor, len(processors))
	for kind, p := range processors {
		if p != nil {
			copied[kind] = p
		}
	}
	return &Registry{processors: copied}
}

func (r *Registry) Lookup(kind model.EventKind) (Processor, bool) {
	p, ok := r.processors[kind]
	return p, ok
}

func (r *Registry) Kinds() []model.EventKind {
	kinds := make([]model.EventKind, 0, len(r.processors))
	for kind := range r.processors {
		kinds = append(kinds, kind)
	}
	return kinds
}
