package model_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"repogator.app/relay/internal/model"
)

var _ = Describe("EventStatus", func() {
	DescribeTable("CanTransitionTo",
		func(from, to model.EventStatus, allowed bool) {
			Expect(from.CanTransitionTo(to)).To(Equal(allowed))
		},
		Entry("received to processing", model.EventStatusReceived, model.EventStatusProcessing, true),
		Entry("received cannot skip to completed", model.EventStatusReceived, model.EventStatusCompleted, false),
		Entry("received cannot skip to failed", model.EventStatusReceived, model.EventStatusFailed, false),
		Entry("processing resumes", model.EventStatusProcessing, model.EventStatusProcessing, true),
		Entry("processing to completed", model.EventStatusProcessing, model.EventStatusCompleted, true),
		Entry("processing to failed", model.EventStatusProcessing, model.EventStatusFailed, true),
		Entry("completed is terminal", model.EventStatusCompleted, model.EventStatusProcessing, false),
		Entry("completed never becomes failed", model.EventStatusCompleted, model.EventStatusFailed, false),
		Entry("failed is terminal", model.EventStatusFailed, model.EventStatusProcessing, false),
		Entry("failed never becomes completed", model.EventStatusFailed, model.EventStatusCompleted, false),
	)

	It("classifies terminal statuses", func() {
		Expect(model.EventStatusCompleted.IsTerminal()).To(BeTrue())
		Expect(model.EventStatusFailed.IsTerminal()).To(BeTrue())
		Expect(model.EventStatusReceived.IsTerminal()).To(BeFalse())
		Expect(model.EventStatusProcessing.IsTerminal()).To(BeFalse())
	})

	It("validates known statuses", func() {
		Expect(model.EventStatus("processing").IsValid()).To(BeTrue())
		Expect(model.EventStatus("error").IsValid()).To(BeFalse())
	})
})

var _ = Describe("CredentialSet", func() {
	It("is usable only with an LLM key", func() {
		Expect(model.CredentialSet{LLMModel: "m"}.Usable()).To(BeFalse())
		Expect(model.CredentialSet{LLMAPIKey: "k"}.Usable()).To(BeTrue())
	})
})
