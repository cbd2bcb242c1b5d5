package queue_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"repogator.app/relay/internal/queue"
)

var _ = Describe("MemoryQueue", func() {
	var (
		q   *queue.MemoryQueue
		ctx context.Context
	)

	BeforeEach(func() {
		q = queue.NewMemoryQueue()
		ctx = context.Background()
	})

	It("should pop items in push order", func() {
		for i := int64(1); i <= 3; i++ {
			Expect(q.Push(ctx, queue.Item{EventID: i})).To(Succeed())
		}
		Expect(q.Len()).To(Equal(3))

		for i := int64(1); i <= 3; i++ {
			item, err := q.Pop(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(item.EventID).To(Equal(i))
			Expect(item.MessageID).ToNot(BeEmpty())
			Expect(q.Ack(ctx, item)).To(Succeed())
		}
		Expect(q.Len()).To(BeZero())
	})

	It("should block until an item is pushed", func() {
		got := make(chan *queue.Item, 1)
		go func() {
			defer GinkgoRecover()
			item, err := q.Pop(ctx)
			Expect(err).ToNot(HaveOccurred())
			got <- item
		}()

		Consistently(got, 50*time.Millisecond).ShouldNot(Receive())
		Expect(q.Push(ctx, queue.Item{EventID: 42})).To(Succeed())
		Eventually(got).Should(Receive(HaveField("EventID", int64(42))))
	})

	It("should hand every item to exactly one of several waiters", func() {
		const waiters = 4
		got := make(chan int64, waiters)
		for i := 0; i < waiters; i++ {
			go func() {
				defer GinkgoRecover()
				item, err := q.Pop(ctx)
				Expect(err).ToNot(HaveOccurred())
				got <- item.EventID
			}()
		}

		for i := int64(1); i <= waiters; i++ {
			Expect(q.Push(ctx, queue.Item{EventID: i})).To(Succeed())
		}

		seen := map[int64]bool{}
		for i := 0; i < waiters; i++ {
			var id int64
			Eventually(got).Should(Receive(&id))
			seen[id] = true
		}
		Expect(seen).To(HaveLen(waiters))
	})

	It("should return the context error when cancelled", func() {
		cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()

		_, err := q.Pop(cctx)
		Expect(err).To(MatchError(context.DeadlineExceeded))
	})

	It("should release blocked consumers on Close", func() {
		errs := make(chan error, 1)
		go func() {
			_, err := q.Pop(ctx)
			errs <- err
		}()

		Consistently(errs, 20*time.Millisecond).ShouldNot(Receive())
		Expect(q.Close()).To(Succeed())
		Eventually(errs).Should(Receive(MatchError(queue.ErrClosed)))
		Expect(q.Push(ctx, queue.Item{EventID: 1})).To(MatchError(queue.ErrClosed))
		Expect(q.Close()).To(Succeed())
	})
})
