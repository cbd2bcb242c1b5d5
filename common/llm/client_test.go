package llm_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/invopop/jsonschema"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"repogator.app/relay/common/llm"
)

type sampleOutput struct {
	Summary string   `json:"summary" jsonschema_description:"One paragraph summary"`
	Labels  []string `json:"labels"`
}

var _ = Describe("New", func() {
	It("should require an API key", func() {
		_, err := llm.New(llm.Config{})
		Expect(err).To(MatchError(ContainSubstring("API key")))
	})

	It("should default the model", func() {
		client, err := llm.New(llm.Config{APIKey: "sk-test"})
		Expect(err).ToNot(HaveOccurred())
		Expect(client.Model()).To(Equal("gpt-4o-mini"))
	})

	It("should keep an explicit model", func() {
		client, err := llm.New(llm.Config{APIKey: "sk-test", Model: "anthropic/claude-3.5-sonnet"})
		Expect(err).ToNot(HaveOccurred())
		Expect(client.Model()).To(Equal("anthropic/claude-3.5-sonnet"))
	})
})

var _ = Describe("GenerateSchema", func() {
	It("should produce a closed inline object schema", func() {
		schema, ok := llm.GenerateSchema[sampleOutput]().(*jsonschema.Schema)
		Expect(ok).To(BeTrue())
		Expect(schema.Type).To(Equal("object"))
		Expect(schema.Ref).To(BeEmpty())

		raw, err := json.Marshal(schema)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(raw)).To(ContainSubstring(`"additionalProperties":false`))
		Expect(string(raw)).To(ContainSubstring(`"summary"`))
		Expect(string(raw)).To(ContainSubstring(`"labels"`))
	})
})

var _ = Describe("IsRetryable", func() {
	ctx := context.Background()

	DescribeTable("classifies errors",
		func(err error, expected bool) {
			Expect(llm.IsRetryable(ctx, err)).To(Equal(expected))
		},
		Entry("nil", nil, false),
		Entry("cancelled", fmt.Errorf("openai chat: %w", context.Canceled), false),
		Entry("deadline", context.DeadlineExceeded, false),
		Entry("truncated", fmt.Errorf("%w after 10 tokens", llm.ErrTruncated), false),
		Entry("network", errors.New("dial tcp: connection refused"), true),
	)
})
