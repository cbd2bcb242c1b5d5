package dto

import (
	"encoding/json"
	"time"

	"repogator.app/relay/internal/model"
	"repogator.app/relay/internal/service"
)

type ListEventsQuery struct {
	Status string `form:"status" binding:"omitempty,oneof=received processing completed failed"`
	Limit  int32  `form:"limit" binding:"omitempty,min=1,max=500"`
}

type EventResponse struct {
	ID             int64             `json:"id,string"`
	TenantID       *int64            `json:"tenant_id,string,omitempty"`
	DeliveryID     string            `json:"delivery_id"`
	RepoFullName   string            `json:"repo_full_name"`
	Kind           model.EventKind   `json:"kind"`
	Status         model.EventStatus `json:"status"`
	Attempts       int32             `json:"attempts"`
	ReprocessCount int32             `json:"reprocess_count"`
	FailureReason  *string           `json:"failure_reason,omitempty"`
	ReceivedAt     time.Time         `json:"received_at"`
	StartedAt      *time.Time        `json:"started_at,omitempty"`
	CompletedAt    *time.Time        `json:"completed_at,omitempty"`
	UpdatedAt      time.Time         `json:"updated_at"`
	Payload        json.RawMessage   `json:"payload,omitempty"`
}

type ProcessorRunResponse struct {
	ID               int64                    `json:"id,string"`
	Processor        string                   `json:"processor"`
	Attempt          int32                    `json:"attempt"`
	Status           model.ProcessorRunStatus `json:"status"`
	Error            *string                  `json:"error,omitempty"`
	Output           json.RawMessage          `json:"output,omitempty"`
	PromptTokens     int32                    `json:"prompt_tokens"`
	CompletionTokens int32                    `json:"completion_tokens"`
	StartedAt        time.Time                `json:"started_at"`
	FinishedAt       *time.Time               `json:"finished_at,omitempty"`
}

type EventDetailResponse struct {
	Event EventResponse          `json:"event"`
	Runs  []ProcessorRunResponse `json:"runs"`
}

type ListEventsResponse struct {
	Events []EventResponse `json:"events"`
}

type EventStatsResponse struct {
	Counts map[model.EventStatus]int64 `json:"counts"`
	Total  int64                       `json:"total"`
}

type ReprocessResponse struct {
	Event    EventResponse `json:"event"`
	Enqueued bool          `json:"enqueued"`
}

// ToEventResponse omits the payload; detail views attach it separately.
func ToEventResponse(e *model.Event) EventResponse {
	return EventResponse{
		ID:             e.ID,
		TenantID:       e.TenantID,
		DeliveryID:     e.DeliveryID,
		RepoFullName:   e.RepoFullName,
		Kind:           e.Kind,
		Status:         e.Status,
		Attempts:       e.Attempts,
		ReprocessCount: e.ReprocessCount,
		FailureReason:  e.FailureReason,
		ReceivedAt:     e.ReceivedAt,
		StartedAt:      e.StartedAt,
		CompletedAt:    e.CompletedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

func ToEventDetailResponse(d *service.EventDetail) EventDetailResponse {
	event := ToEventResponse(d.Event)
	event.Payload = d.Event.Payload

	runs := make([]ProcessorRunResponse, 0, len(d.Runs))
	for _, r := range d.Runs {
		runs = append(runs, ProcessorRunResponse{
			ID:               r.ID,
			Processor:        r.Processor,
			Attempt:          r.Attempt,
			Status:           r.Status,
			Error:            r.Error,
			Output:           r.Output,
			PromptTokens:     r.PromptTokens,
			CompletionTokens: r.CompletionTokens,
			StartedAt:        r.StartedAt,
			FinishedAt:       r.FinishedAt,
		})
	}
	return EventDetailResponse{Event: event, Runs: runs}
}

func ToListEventsResponse(events []model.Event) ListEventsResponse {
	out := make([]EventResponse, 0, len(events))
	for i := range events {
		out = append(out, ToEventResponse(&events[i]))
	}
	return ListEventsResponse{Events: out}
}

func ToEventStatsResponse(counts map[model.EventStatus]int64) EventStatsResponse {
	resp := EventStatsResponse{Counts: make(map[model.EventStatus]int64, 4)}
	for _, s := range []model.EventStatus{
		model.EventStatusReceived,
		model.EventStatusProcessing,
		model.EventStatusCompleted,
		model.EventStatusFailed,
	} {
		resp.Counts[s] = counts[s]
		resp.Total += counts[s]
	}
	return resp
}
