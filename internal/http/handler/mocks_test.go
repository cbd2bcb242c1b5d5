package handler_test

import (
	"context"

	"repogator.app/relay/internal/model"
	"repogator.app/relay/internal/service"
)

type mockEventService struct {
	getFn           func(ctx context.Context, id int64) (*service.EventDetail, error)
	getByDeliveryFn func(ctx context.Context, deliveryID string) (*service.EventDetail, error)
	listFn          func(ctx context.Context, status *model.EventStatus, limit int32) ([]model.Event, error)
	statsFn         func(ctx context.Context) (map[model.EventStatus]int64, error)
	reprocessFn     func(ctx context.Context, id int64, traceID string) (*model.Event, bool, error)
}

func (m *mockEventService) Get(ctx context.Context, id int64) (*service.EventDetail, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, service.ErrEventNotFound
}

func (m *mockEventService) GetByDelivery(ctx context.Context, deliveryID string) (*service.EventDetail, error) {
	if m.getByDeliveryFn != nil {
		return m.getByDeliveryFn(ctx, deliveryID)
	}
	return nil, service.ErrEventNotFound
}

func (m *mockEventService) List(ctx context.Context, status *model.EventStatus, limit int32) ([]model.Event, error) {
	if m.listFn != nil {
		return m.listFn(ctx, status, limit)
	}
	return nil, nil
}

func (m *mockEventService) Stats(ctx context.Context) (map[model.EventStatus]int64, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx)
	}
	return map[model.EventStatus]int64{}, nil
}

func (m *mockEventService) Reprocess(ctx context.Context, id int64, traceID string) (*model.Event, bool, error) {
	if m.reprocessFn != nil {
		return m.reprocessFn(ctx, id, traceID)
	}
	return nil, false, service.ErrEventNotFound
}

type fixedReadiness bool

func (r fixedReadiness) Ready() bool { return bool(r) }
