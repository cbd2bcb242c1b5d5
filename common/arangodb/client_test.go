package arangodb_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"repogator.app/relay/common/arangodb"
)

var _ = Describe("Config", func() {
	It("should require url, username and database", func() {
		Expect(arangodb.Config{}.Validate()).To(MatchError(ContainSubstring("URL")))
		Expect(arangodb.Config{URL: "http://localhost:8529"}.Validate()).To(MatchError(ContainSubstring("username")))
		Expect(arangodb.Config{URL: "http://localhost:8529", Username: "root"}.Validate()).To(MatchError(ContainSubstring("database")))
		Expect(arangodb.Config{URL: "http://localhost:8529", Username: "root", Database: "kb"}.Validate()).To(Succeed())
	})

	It("should refuse to build a client from an invalid config", func() {
		_, err := arangodb.New(context.Background(), arangodb.Config{})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Terms", func() {
	DescribeTable("splits query text into search terms",
		func(text string, expected []string) {
			Expect(arangodb.Terms(text)).To(Equal(expected))
		},
		Entry("lowercases and splits on punctuation", "Login FAILS: OAuth-callback", []string{"login", "fails", "oauth", "callback"}),
		Entry("drops short words", "a to the api", []string{"the", "api"}),
		Entry("deduplicates", "retry Retry RETRY queue", []string{"retry", "queue"}),
		Entry("empty", "", []string{}),
	)
})
