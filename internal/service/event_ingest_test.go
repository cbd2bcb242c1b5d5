package service_test

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"repogator.app/relay/internal/credentials"
	"repogator.app/relay/internal/model"
	"repogator.app/relay/internal/queue"
	"repogator.app/relay/internal/service"
)

var _ = Describe("EventIngestService", func() {
	var (
		ctx      context.Context
		events   *mockEventStore
		txRunner *mockTxRunner
		producer *mockProducer
		resolver *mockResolver
		svc      service.EventIngestService
		tenantID int64
		params   service.EventIngestParams
		stored   map[string]*model.Event
	)

	BeforeEach(func() {
		ctx = context.Background()
		tenantID = 1
		stored = map[string]*model.Event{}
		events = &mockEventStore{
			// Behaves like the delivery_id upsert.
			ingestFn: func(_ context.Context, event *model.Event) (*model.Event, bool, error) {
				if existing, ok := stored[event.DeliveryID]; ok {
					return existing, false, nil
				}
				copied := *event
				stored[event.DeliveryID] = &copied
				return &copied, true, nil
			},
		}
		txRunner = &mockTxRunner{stores: &mockStoreProvider{events: events, tenants: &mockTenantStore{}}}
		producer = &mockProducer{}
		resolver = &mockResolver{}
		svc = service.NewEventIngestService(txRunner, producer, resolver)
		params = service.EventIngestParams{
			DeliveryID:   "evt-1",
			TenantID:     &tenantID,
			RepoFullName: "octo/repo",
			Kind:         model.EventKindIssueOpened,
			Payload:      json.RawMessage(`{"action":"opened"}`),
			TraceID:      "4bf92f3577b34da6a3ce929d0e0e4736",
		}
	})

	It("should store the event as received and enqueue its first attempt", func() {
		result, err := svc.Ingest(ctx, params)
		Expect(err).ToNot(HaveOccurred())
		Expect(result.Duplicate).To(BeFalse())
		Expect(result.Enqueued).To(BeTrue())
		Expect(result.Event.Status).To(Equal(model.EventStatusReceived))
		Expect(result.Event.ID).ToNot(BeZero())

		Expect(producer.pushed).To(HaveLen(1))
		item := producer.pushed[0]
		Expect(item.EventID).To(Equal(result.Event.ID))
		Expect(item.Attempt).To(Equal(int32(1)))
		Expect(item.TraceID).To(Equal(params.TraceID))
		Expect(item.Credentials).ToNot(BeNil())
		Expect(item.Credentials.Source).To(Equal(model.CredentialSourceShared))
	})

	It("should absorb a re-delivery of the same id", func() {
		first, err := svc.Ingest(ctx, params)
		Expect(err).ToNot(HaveOccurred())

		params.Payload = json.RawMessage(`{"action":"opened","changed":true}`)
		second, err := svc.Ingest(ctx, params)
		Expect(err).ToNot(HaveOccurred())

		Expect(second.Duplicate).To(BeTrue())
		Expect(second.Enqueued).To(BeFalse())
		Expect(second.Event.ID).To(Equal(first.Event.ID))
		Expect(string(second.Event.Payload)).To(Equal(`{"action":"opened"}`))
		Expect(stored).To(HaveLen(1))
		Expect(producer.pushed).To(HaveLen(1))
	})

	It("should generate a delivery id when the sender gave none", func() {
		params.DeliveryID = ""

		result, err := svc.Ingest(ctx, params)
		Expect(err).ToNot(HaveOccurred())
		_, parseErr := uuid.Parse(result.Event.DeliveryID)
		Expect(parseErr).ToNot(HaveOccurred())
	})

	It("should enqueue without a snapshot when credentials cannot be resolved", func() {
		resolver.resolveFn = func(context.Context, *int64) (model.CredentialSet, error) {
			return model.CredentialSet{}, credentials.ErrNoCredentials
		}

		result, err := svc.Ingest(ctx, params)
		Expect(err).ToNot(HaveOccurred())
		Expect(result.Enqueued).To(BeTrue())
		Expect(producer.pushed[0].Credentials).To(BeNil())
	})

	It("should report success but not enqueued when the push fails after storing", func() {
		producer.pushFn = func(context.Context, queue.Item) error {
			return errors.New("redis: connection refused")
		}

		result, err := svc.Ingest(ctx, params)
		Expect(err).ToNot(HaveOccurred())
		Expect(result.Enqueued).To(BeFalse())
		Expect(stored).To(HaveKey("evt-1"))
	})

	It("should surface storage failures so the sender retries", func() {
		txRunner.err = errors.New("connection refused")

		_, err := svc.Ingest(ctx, params)
		Expect(err).To(MatchError(ContainSubstring("connection refused")))
		Expect(producer.pushed).To(BeEmpty())
	})

	DescribeTable("should reject invalid input before touching storage",
		func(mutate func(p *service.EventIngestParams)) {
			mutate(&params)
			_, err := svc.Ingest(ctx, params)
			Expect(err).To(MatchError(service.ErrInvalidPayload))
			Expect(txRunner.callCount).To(BeZero())
		},
		Entry("missing kind", func(p *service.EventIngestParams) { p.Kind = "" }),
		Entry("empty payload", func(p *service.EventIngestParams) { p.Payload = nil }),
		Entry("non-JSON payload", func(p *service.EventIngestParams) { p.Payload = json.RawMessage("not json") }),
	)
})
