package store

import (
	"context"
	"encoding/json"

	"repogator.app/relay/core/db/sqlc"
	"repogator.app/relay/internal/model"
)

type processorRunStore struct {
	queries *sqlc.Queries
}

func newProcessorRunStore(queries *sqlc.Queries) ProcessorRunStore {
	return &processorRunStore{queries: queries}
}

func (s *processorRunStore) Create(ctx context.Context, run *model.ProcessorRun) (*model.ProcessorRun, error) {
	row, err := s.queries.CreateProcessorRun(ctx, sqlc.CreateProcessorRunParams{
		ID:        run.ID,
		EventID:   run.EventID,
		Processor: run.Processor,
		Attempt:   run.Attempt,
	})
	if err != nil {
		return nil, err
	}
	return toProcessorRunModel(row), nil
}

func (s *processorRunStore) Finish(ctx context.Context, run *model.ProcessorRun) error {
	var output []byte
	if len(run.Output) > 0 {
		output = []byte(run.Output)
	}
	return s.queries.FinishProcessorRun(ctx, sqlc.FinishProcessorRunParams{
		ID:               run.ID,
		Status:           string(run.Status),
		Output:           output,
		Error:            run.Error,
		PromptTokens:     run.PromptTokens,
		CompletionTokens: run.CompletionTokens,
	})
}

func (s *processorRunStore) ListByEvent(ctx context.Context, eventID int64, limit int32) ([]model.ProcessorRun, error) {
	rows, err := s.queries.ListProcessorRunsForEvent(ctx, sqlc.ListProcessorRunsForEventParams{
		EventID: eventID,
		Limit:   limit,
	})
	if err != nil {
		return nil, err
	}
	runs := make([]model.ProcessorRun, 0, len(rows))
	for _, row := range rows {
		runs = append(runs, *toProcessorRunModel(row))
	}
	return runs, nil
}

func toProcessorRunModel(row sqlc.ProcessorRun) *model.ProcessorRun {
	return &model.ProcessorRun{
		ID:               row.ID,
		EventID:          row.EventID,
		Processor:        row.Processor,
		Attempt:          row.Attempt,
		Status:           model.ProcessorRunStatus(row.Status),
		Output:           json.RawMessage(row.Output),
		Error:            row.Error,
		PromptTokens:     row.PromptTokens,
		CompletionTokens: row.CompletionTokens,
		StartedAt:        row.StartedAt.Time,
		FinishedAt:       pgTimePtr(row.FinishedAt),
	}
}
