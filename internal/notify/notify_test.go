package notify_test

import (
	"context"
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"repogator.app/relay/internal/model"
	"repogator.app/relay/internal/notify"
)

type published struct {
	subject string
	data    []byte
}

type mockPublisher struct {
	err  error
	sent []published
}

func (m *mockPublisher) Publish(subject string, data []byte) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, published{subject: subject, data: data})
	return nil
}

var _ = Describe("NATS notifier", func() {
	var pub *mockPublisher

	BeforeEach(func() {
		pub = &mockPublisher{}
	})

	It("should publish failed events with their reason", func() {
		reason := "missing credentials: tenant 4"
		tenantID := int64(4)
		n := notify.NewNATSNotifier(pub, "repogator")

		n.EventFinished(context.Background(), &model.Event{
			ID:            10,
			DeliveryID:    "evt-2",
			TenantID:      &tenantID,
			Kind:          model.EventKindIssueOpened,
			Status:        model.EventStatusFailed,
			FailureReason: &reason,
		})

		Expect(pub.sent).To(HaveLen(1))
		Expect(pub.sent[0].subject).To(Equal("repogator.events.failed"))

		var msg notify.EventMessage
		Expect(json.Unmarshal(pub.sent[0].data, &msg)).To(Succeed())
		Expect(msg.EventID).To(Equal(int64(10)))
		Expect(msg.FailureReason).To(HaveValue(Equal(reason)))
	})

	It("should swallow publish errors", func() {
		pub.err = errors.New("nats: connection closed")
		n := notify.NewNATSNotifier(pub, "")

		Expect(func() {
			n.EventFinished(context.Background(), &model.Event{ID: 1, Status: model.EventStatusCompleted})
		}).ToNot(Panic())
	})

	It("should build subjects with and without a prefix", func() {
		Expect(notify.Subject("", model.EventStatusCompleted)).To(Equal("events.completed"))
		Expect(notify.Subject("acme", model.EventStatusCompleted)).To(Equal("acme.events.completed"))
	})
})
