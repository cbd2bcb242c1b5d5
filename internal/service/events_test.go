package service_test

import (
	"context"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"repogator.app/relay/internal/model"
	"repogator.app/relay/internal/service"
	"repogator.app/relay/internal/store"
)

var _ = Describe("EventService", func() {
	var (
		ctx      context.Context
		events   *mockEventStore
		runs     *mockProcessorRunStore
		producer *mockProducer
		svc      service.EventService
	)

	BeforeEach(func() {
		ctx = context.Background()
		events = &mockEventStore{}
		runs = &mockProcessorRunStore{}
		producer = &mockProducer{}
		svc = service.NewEventService(events, runs, producer, &mockResolver{})
	})

	Describe("Get", func() {
		It("should return the event with its processor runs", func() {
			events.getByIDFn = func(_ context.Context, id int64) (*model.Event, error) {
				return &model.Event{ID: id, Status: model.EventStatusCompleted}, nil
			}
			runs.listByEventFn = func(_ context.Context, eventID int64, _ int32) ([]model.ProcessorRun, error) {
				return []model.ProcessorRun{{ID: 1, EventID: eventID, Processor: "review"}}, nil
			}

			detail, err := svc.Get(ctx, 5)
			Expect(err).ToNot(HaveOccurred())
			Expect(detail.Event.ID).To(Equal(int64(5)))
			Expect(detail.Runs).To(HaveLen(1))
		})

		It("should map a missing event", func() {
			_, err := svc.Get(ctx, 5)
			Expect(err).To(MatchError(service.ErrEventNotFound))
		})
	})

	Describe("GetByDelivery", func() {
		It("should return the event with its processor runs", func() {
			events.getByDeliveryFn = func(_ context.Context, deliveryID string) (*model.Event, error) {
				Expect(deliveryID).To(Equal("72d3162e-cc78-11e3-81ab-4c9367dc0958"))
				return &model.Event{ID: 9, DeliveryID: deliveryID}, nil
			}
			runs.listByEventFn = func(_ context.Context, eventID int64, _ int32) ([]model.ProcessorRun, error) {
				Expect(eventID).To(Equal(int64(9)))
				return nil, nil
			}

			detail, err := svc.GetByDelivery(ctx, "72d3162e-cc78-11e3-81ab-4c9367dc0958")
			Expect(err).ToNot(HaveOccurred())
			Expect(detail.Event.ID).To(Equal(int64(9)))
		})

		It("should map a missing delivery", func() {
			_, err := svc.GetByDelivery(ctx, "unknown")
			Expect(err).To(MatchError(service.ErrEventNotFound))
		})
	})

	Describe("List", func() {
		It("should clamp the limit", func() {
			var got int32
			events.listFn = func(_ context.Context, _ *model.EventStatus, limit int32) ([]model.Event, error) {
				got = limit
				return nil, nil
			}

			_, err := svc.List(ctx, nil, 0)
			Expect(err).ToNot(HaveOccurred())
			Expect(got).To(Equal(int32(service.DefaultListLimit)))

			_, err = svc.List(ctx, nil, 100000)
			Expect(err).ToNot(HaveOccurred())
			Expect(got).To(Equal(int32(service.MaxListLimit)))
		})

		It("should reject unknown statuses", func() {
			status := model.EventStatus("archived")
			_, err := svc.List(ctx, &status, 10)
			Expect(err).To(MatchError(service.ErrInvalidPayload))
		})
	})

	Describe("Reprocess", func() {
		It("should enqueue the next attempt of a terminal event", func() {
			events.reprocessFn = func(_ context.Context, id int64) (*model.Event, error) {
				return &model.Event{ID: id, Status: model.EventStatusReceived, Attempts: 2, ReprocessCount: 1, Kind: model.EventKindIssueOpened}, nil
			}

			event, enqueued, err := svc.Reprocess(ctx, 9, "")
			Expect(err).ToNot(HaveOccurred())
			Expect(enqueued).To(BeTrue())
			Expect(event.Status).To(Equal(model.EventStatusReceived))
			Expect(producer.pushed).To(HaveLen(1))
			Expect(producer.pushed[0].Attempt).To(Equal(int32(3)))
		})

		It("should refuse events that are still in flight", func() {
			events.reprocessFn = func(context.Context, int64) (*model.Event, error) {
				return nil, fmt.Errorf("%w: event 9: processing -> received", store.ErrInvalidTransition)
			}

			_, _, err := svc.Reprocess(ctx, 9, "")
			Expect(err).To(MatchError(service.ErrNotTerminal))
			Expect(producer.pushed).To(BeEmpty())
		})

		It("should map a missing event", func() {
			_, _, err := svc.Reprocess(ctx, 9, "")
			Expect(err).To(MatchError(service.ErrEventNotFound))
		})

		It("should wrap storage errors", func() {
			events.reprocessFn = func(context.Context, int64) (*model.Event, error) {
				return nil, errors.New("deadlock detected")
			}

			_, _, err := svc.Reprocess(ctx, 9, "")
			Expect(err).To(MatchError(ContainSubstring("deadlock detected")))
		})
	})
})

var _ = Describe("TenantService", func() {
	var (
		tenants *mockTenantStore
		svc     service.TenantService
	)

	BeforeEach(func() {
		tenants = &mockTenantStore{}
		svc = service.NewTenantService(tenants)
	})

	It("should return an active binding", func() {
		tenants.getRepoFn = func(_ context.Context, name string) (*model.TenantRepo, error) {
			return &model.TenantRepo{TenantID: 3, RepoFullName: name, WebhookSecret: "s3cret", IsActive: true}, nil
		}

		repo, err := svc.ResolveRepo(context.Background(), "octo/repo")
		Expect(err).ToNot(HaveOccurred())
		Expect(repo.TenantID).To(Equal(int64(3)))
	})

	It("should treat inactive and unknown repos alike", func() {
		tenants.getRepoFn = func(_ context.Context, name string) (*model.TenantRepo, error) {
			return &model.TenantRepo{RepoFullName: name, IsActive: false}, nil
		}
		_, err := svc.ResolveRepo(context.Background(), "octo/repo")
		Expect(err).To(MatchError(service.ErrTenantNotFound))

		tenants.getRepoFn = nil
		_, err = svc.ResolveRepo(context.Background(), "octo/other")
		Expect(err).To(MatchError(service.ErrTenantNotFound))

		_, err = svc.ResolveRepo(context.Background(), "")
		Expect(err).To(MatchError(service.ErrTenantNotFound))
	})
})
