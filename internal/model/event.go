package model

import (
	"encoding/json"
	"time"
)

type EventStatus string

const (
	EventStatusReceived   EventStatus = "received"
	EventStatusProcessing EventStatus = "processing"
	EventStatusCompleted  EventStatus = "completed"
	EventStatusFailed     EventStatus = "failed"
)

func (s EventStatus) IsValid() bool {
	switch s {
	case EventStatusReceived, EventStatusProcessing, EventStatusCompleted, EventStatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no transition leaves this status without an explicit reprocess.
func (s EventStatus) IsTerminal() bool {
	return s == EventStatusCompleted || s == EventStatusFailed
}

// CanTransitionTo encodes received -> processing -> {completed | failed}.
// processing -> processing is a resumed attempt after a restart.
func (s EventStatus) CanTransitionTo(next EventStatus) bool {
	switch s {
	case EventStatusReceived:
		return next == EventStatusProcessing
	case EventStatusProcessing:
		return next == EventStatusProcessing || next == EventStatusCompleted || next == EventStatusFailed
	}
	return false
}

// TerminalStatuses are the statuses eligible for retention purge.
var TerminalStatuses = []EventStatus{EventStatusCompleted, EventStatusFailed}

type EventKind string

const (
	EventKindIssueOpened       EventKind = "issue_opened"
	EventKindPullRequestOpened EventKind = "pull_request_opened"
	EventKindPullRequestMerged EventKind = "pull_request_merged"
)

type Event struct {
	ReceivedAt     time.Time       `json:"received_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	StartedAt      *time.Time      `json:"started_at,omitempty"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	TenantID       *int64          `json:"tenant_id,omitempty"`
	FailureReason  *string         `json:"failure_reason,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	DeliveryID     string          `json:"delivery_id"`
	RepoFullName   string          `json:"repo_full_name"`
	Kind           EventKind       `json:"kind"`
	Status         EventStatus     `json:"status"`
	ID             int64           `json:"id"`
	Attempts       int32           `json:"attempts"`
	ReprocessCount int32           `json:"reprocess_count"`
}
