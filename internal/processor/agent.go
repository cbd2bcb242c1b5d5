package processor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"repogator.app/relay/common/llm"
	"repogator.app/relay/common/logger"
	"repogator.app/relay/internal/knowledge"
	"repogator.app/relay/internal/model"
)

// ClientFactory builds an LLM client for one event's credentials.
type ClientFactory func(creds model.CredentialSet) (llm.Client, error)

// DefaultClientFactory talks to the OpenAI-compatible endpoint in creds.
func DefaultClientFactory(creds model.CredentialSet) (llm.Client, error) {
	return llm.New(llm.Config{
		APIKey:  creds.LLMAPIKey,
		BaseURL: creds.LLMBaseURL,
		Model:   creds.LLMModel,
		// The agent loop owns retries; the SDK only covers one dropped connection.
		MaxRetries: 1,
	})
}

const (
	knowledgeLimit = 5
	chatAttempts   = 3
)

// prompt is what an agent sends for one event. Query is the text used to pull
// knowledge; an empty query skips the lookup.
type prompt struct {
	System string
	User   string
	Query  string
}

// agent is a single structured LLM call: build a prompt from the payload,
// attach knowledge, decode the answer into T.
type agent[T any] struct {
	name        string
	schemaName  string
	schema      any
	temperature float64
	maxTokens   int
	newClient   ClientFactory
	build       func(event *model.Event) (prompt, error)
	// remember, when set, turns a successful answer into a tenant document.
	remember func(event *model.Event, out T) (knowledge.Document, bool)
}

func (a *agent[T]) Name() string { return a.name }

func (a *agent[T]) Process(ctx context.Context, in Input) Result {
	p, err := a.build(in.Event)
	if err != nil {
		return Failed(fmt.Sprintf("%s: reading payload: %v", a.name, err))
	}

	client, err := a.newClient(in.Credentials)
	if err != nil {
		return Failed(fmt.Sprintf("%s: creating llm client: %v", a.name, err))
	}

	userPrompt := p.User
	if p.Query != "" {
		docs, err := in.Knowledge.QueryWithFallback(ctx, p.Query, knowledgeLimit)
		if err != nil {
			// Knowledge is context, not a prerequisite.
			slog.WarnContext(ctx, "knowledge lookup failed", "processor", a.name, "error", err)
		}
		userPrompt += formatKnowledge(docs)
	}

	var (
		out   T
		resp  *llm.Response
		usage Result
	)
	for attempt := 0; ; attempt++ {
		resp, err = client.Chat(ctx, llm.Request{
			SystemPrompt: p.System,
			UserPrompt:   userPrompt,
			SchemaName:   a.schemaName,
			Schema:       a.schema,
			MaxTokens:    a.maxTokens,
			Temperature:  llm.Temp(a.temperature),
		}, &out)
		if resp != nil {
			usage.PromptTokens += resp.PromptTokens
			usage.CompletionTokens += resp.CompletionTokens
		}
		if err == nil || attempt == chatAttempts-1 || !llm.IsRetryable(ctx, err) {
			break
		}

		slog.WarnContext(ctx, "llm call retry", "processor", a.name, "attempt", attempt+1, "error", err)
		if waitErr := sleep(ctx, retryBackoff(attempt)); waitErr != nil {
			err = waitErr
			break
		}
	}

	if err != nil {
		failed := Failed(fmt.Sprintf("%s: %v", a.name, err))
		failed.PromptTokens, failed.CompletionTokens = usage.PromptTokens, usage.CompletionTokens
		return failed
	}

	if a.remember != nil {
		if doc, ok := a.remember(in.Event, out); ok {
			if err := in.Knowledge.Remember(ctx, doc); err != nil {
				slog.WarnContext(ctx, "failed to store knowledge", "processor", a.name, "error", err)
			}
		}
	}

	result := Succeeded(out)
	result.PromptTokens, result.CompletionTokens = usage.PromptTokens, usage.CompletionTokens
	return result
}

var retryBackoff = func(attempt int) time.Duration {
	return time.Duration(1<<attempt) * time.Second
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func formatKnowledge(docs []knowledge.Result) string {
	if len(docs) == 0 {
		return ""
	}
	out := "\n\n## Related knowledge\n"
	for _, d := range docs {
		out += fmt.Sprintf("\n### %s\n%s\n", d.Title, logger.Truncate(d.Content, 1500))
	}
	return out
}
