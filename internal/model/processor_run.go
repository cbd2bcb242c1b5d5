package model

import (
	"encoding/json"
	"time"
)

type ProcessorRunStatus string

const (
	ProcessorRunStatusRunning   ProcessorRunStatus = "running"
	ProcessorRunStatusSucceeded ProcessorRunStatus = "succeeded"
	ProcessorRunStatusFailed    ProcessorRunStatus = "failed"
)

// ProcessorRun records one processor invocation for one event attempt.
type ProcessorRun struct {
	StartedAt        time.Time          `json:"started_at"`
	FinishedAt       *time.Time         `json:"finished_at,omitempty"`
	Error            *string            `json:"error,omitempty"`
	Output           json.RawMessage    `json:"output,omitempty"`
	Processor        string             `json:"processor"`
	Status           ProcessorRunStatus `json:"status"`
	ID               int64              `json:"id"`
	EventID          int64              `json:"event_id"`
	Attempt          int32              `json:"attempt"`
	PromptTokens     int32              `json:"prompt_tokens"`
	CompletionTokens int32              `json:"completion_tokens"`
}
