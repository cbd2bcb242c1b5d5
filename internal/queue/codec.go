package queue

import (
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"repogator.app/relay/internal/model"
)

// EncodeItem flattens an item into stream entry fields.
func EncodeItem(item Item) map[string]any {
	values := map[string]any{
		"event_id":    item.EventID,
		"delivery_id": item.DeliveryID,
		"kind":        string(item.Kind),
		"attempt":     item.Attempt,
	}

	if item.TenantID != nil {
		values["tenant_id"] = *item.TenantID
	}
	if item.TraceID != "" {
		values["trace_id"] = item.TraceID
	}

	if creds := item.Credentials; creds != nil {
		values["cred_source"] = string(creds.Source)
		values["llm_api_key"] = creds.LLMAPIKey
		values["llm_base_url"] = creds.LLMBaseURL
		values["llm_model"] = creds.LLMModel
		values["embedding_api_key"] = creds.EmbeddingAPIKey
		values["embedding_model"] = creds.EmbeddingModel
	}

	return values
}

// ParseMessage decodes a stream entry written by EncodeItem.
func ParseMessage(msg redis.XMessage) (Item, error) {
	eventID, err := parseInt64(msg.Values, "event_id")
	if err != nil {
		return Item{}, err
	}
	if eventID <= 0 {
		return Item{}, fmt.Errorf("invalid event_id %d", eventID)
	}

	tenantID, err := parseOptionalInt64(msg.Values, "tenant_id")
	if err != nil {
		return Item{}, err
	}

	kind, err := parseString(msg.Values, "kind")
	if err != nil {
		return Item{}, err
	}

	attempt, err := parseOptionalInt32(msg.Values, "attempt")
	if err != nil {
		return Item{}, err
	}
	if attempt <= 0 {
		attempt = 1
	}

	item := Item{
		MessageID:  msg.ID,
		EventID:    eventID,
		DeliveryID: parseOptionalString(msg.Values, "delivery_id"),
		TenantID:   tenantID,
		Kind:       model.EventKind(kind),
		Attempt:    attempt,
		TraceID:    parseOptionalString(msg.Values, "trace_id"),
	}

	if source := parseOptionalString(msg.Values, "cred_source"); source != "" {
		item.Credentials = &model.CredentialSet{
			Source:          model.CredentialSource(source),
			LLMAPIKey:       parseOptionalString(msg.Values, "llm_api_key"),
			LLMBaseURL:      parseOptionalString(msg.Values, "llm_base_url"),
			LLMModel:        parseOptionalString(msg.Values, "llm_model"),
			EmbeddingAPIKey: parseOptionalString(msg.Values, "embedding_api_key"),
			EmbeddingModel:  parseOptionalString(msg.Values, "embedding_model"),
		}
	}

	return item, nil
}

func parseInt64(values map[string]any, key string) (int64, error) {
	raw, ok := values[key]
	if !ok {
		return 0, fmt.Errorf("missing %s", key)
	}
	num, err := strconv.ParseInt(fmt.Sprint(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return num, nil
}

func parseString(values map[string]any, key string) (string, error) {
	raw, ok := values[key]
	if !ok {
		return "", fmt.Errorf("missing %s", key)
	}
	s := fmt.Sprint(raw)
	if s == "" {
		return "", fmt.Errorf("empty %s", key)
	}
	return s, nil
}

func parseOptionalInt64(values map[string]any, key string) (*int64, error) {
	raw, ok := values[key]
	if !ok {
		return nil, nil
	}
	num, err := strconv.ParseInt(fmt.Sprint(raw), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", key, err)
	}
	return &num, nil
}

func parseOptionalInt32(values map[string]any, key string) (int32, error) {
	raw, ok := values[key]
	if !ok {
		return 0, nil
	}
	num, err := strconv.ParseInt(fmt.Sprint(raw), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return int32(num), nil
}

func parseOptionalString(values map[string]any, key string) string {
	raw, ok := values[key]
	if !ok {
		return ""
	}
	return fmt.Sprint(raw)
}
