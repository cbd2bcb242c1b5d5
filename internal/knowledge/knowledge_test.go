package knowledge_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"repogator.app/relay/common/arangodb"
	"repogator.app/relay/internal/knowledge"
)

var _ = Describe("Handle", func() {
	var (
		ctx      context.Context
		lookup   *mockLookup
		tenantID int64
	)

	BeforeEach(func() {
		ctx = context.Background()
		tenantID = 7
		lookup = &mockLookup{
			queryFn: func(_ context.Context, scope, _ string, _ int) ([]knowledge.Result, error) {
				switch scope {
				case knowledge.TenantScope(7):
					return []knowledge.Result{
						{Key: "t-1", Scope: scope, Score: 0.5},
						{Key: "t-2", Scope: scope, Score: 0.2},
					}, nil
				case knowledge.SharedScope:
					return []knowledge.Result{
						{Key: "s-1", Scope: scope, Score: 0.9},
						{Key: "s-2", Scope: scope, Score: 0.5},
					}, nil
				}
				return nil, nil
			},
		}
	})

	It("should only query the bound tenant's scope", func() {
		handle := knowledge.NewHandle(lookup, &tenantID)

		results, err := handle.QueryTenant(ctx, "login", 5)
		Expect(err).ToNot(HaveOccurred())
		Expect(results).To(HaveLen(2))
		Expect(lookup.scopes).To(Equal([]string{"tenant:7"}))
	})

	It("should merge tenant and shared results by score", func() {
		handle := knowledge.NewHandle(lookup, &tenantID)

		results, err := handle.QueryWithFallback(ctx, "login", 3)
		Expect(err).ToNot(HaveOccurred())
		keys := make([]string, len(results))
		for i, r := range results {
			keys[i] = r.Key
		}
		Expect(keys).To(Equal([]string{"s-1", "t-1", "s-2"}))
	})

	It("should use shared results when the tenant side fails", func() {
		lookup.queryFn = func(_ context.Context, scope, _ string, _ int) ([]knowledge.Result, error) {
			if scope == knowledge.SharedScope {
				return []knowledge.Result{{Key: "s-1", Score: 1}}, nil
			}
			return nil, errors.New("timeout")
		}
		handle := knowledge.NewHandle(lookup, &tenantID)

		results, err := handle.QueryWithFallback(ctx, "login", 3)
		Expect(err).ToNot(HaveOccurred())
		Expect(results).To(HaveLen(1))
	})

	It("should fail when both sides fail", func() {
		lookup.queryFn = func(context.Context, string, string, int) ([]knowledge.Result, error) {
			return nil, errors.New("unreachable")
		}
		handle := knowledge.NewHandle(lookup, &tenantID)

		_, err := handle.QueryWithFallback(ctx, "login", 3)
		Expect(err).To(MatchError(ContainSubstring("unreachable")))
	})

	It("should see only shared documents without a tenant", func() {
		handle := knowledge.NewHandle(lookup, nil)

		results, err := handle.QueryWithFallback(ctx, "login", 10)
		Expect(err).ToNot(HaveOccurred())
		Expect(results).To(HaveLen(2))
		Expect(lookup.scopes).To(Equal([]string{knowledge.SharedScope}))
	})

	It("should return nothing without a lookup", func() {
		handle := knowledge.NewHandle(nil, &tenantID)

		results, err := handle.QueryWithFallback(ctx, "login", 10)
		Expect(err).ToNot(HaveOccurred())
		Expect(results).To(BeEmpty())
	})
})

var _ = Describe("Handle.Remember", func() {
	var (
		ctx      context.Context
		lookup   *writingLookup
		tenantID int64
		doc      knowledge.Document
	)

	BeforeEach(func() {
		ctx = context.Background()
		lookup = &writingLookup{}
		tenantID = 7
		doc = knowledge.Document{Key: "pr-42", Title: "#42 Rate limiting", Content: "Adds rate limiting"}
	})

	It("should store the document in the tenant's scope", func() {
		Expect(knowledge.NewHandle(lookup, &tenantID).Remember(ctx, doc)).To(Succeed())
		Expect(lookup.added).To(HaveKeyWithValue("tenant:7", []knowledge.Document{doc}))
	})

	It("should store nothing without a tenant", func() {
		Expect(knowledge.NewHandle(lookup, nil).Remember(ctx, doc)).To(Succeed())
		Expect(lookup.added).To(BeEmpty())
	})

	It("should store nothing over a read-only lookup", func() {
		Expect(knowledge.NewHandle(&mockLookup{}, &tenantID).Remember(ctx, doc)).To(Succeed())
		Expect(knowledge.NewHandle(nil, &tenantID).Remember(ctx, doc)).To(Succeed())
	})

	It("should wrap a write failure", func() {
		lookup.addFn = func(context.Context, string, []knowledge.Document) error {
			return errors.New("collection locked")
		}
		err := knowledge.NewHandle(lookup, &tenantID).Remember(ctx, doc)
		Expect(err).To(MatchError(ContainSubstring("collection locked")))
	})
})

var _ = Describe("ArangoLookup", func() {
	It("should search the knowledge collection in the given scope", func() {
		client := &mockArangoClient{
			searchFn: func(_ context.Context, collection, scope, text string, limit int) ([]arangodb.ScoredDocument, error) {
				Expect(collection).To(Equal(knowledge.Collection))
				Expect(scope).To(Equal("tenant:3"))
				Expect(text).To(Equal("flaky test"))
				Expect(limit).To(Equal(4))
				return []arangodb.ScoredDocument{{Key: "k", Title: "CI", Score: 0.5}}, nil
			},
		}

		results, err := knowledge.NewArangoLookup(client).Query(context.Background(), knowledge.TenantScope(3), "flaky test", 4)
		Expect(err).ToNot(HaveOccurred())
		Expect(results).To(ConsistOf(HaveField("Key", "k")))
	})

	It("should upsert documents under scope-prefixed keys", func() {
		var written []arangodb.Document
		client := &mockArangoClient{
			upsertFn: func(_ context.Context, collection string, docs []arangodb.Document) error {
				Expect(collection).To(Equal(knowledge.Collection))
				written = docs
				return nil
			},
		}
		writer, ok := knowledge.NewArangoLookup(client).(knowledge.Writer)
		Expect(ok).To(BeTrue())

		err := writer.Add(context.Background(), knowledge.TenantScope(3), []knowledge.Document{
			{Key: "octo/api:pr-42", Title: "Rate limiting", Content: "Adds rate limiting"},
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(written).To(HaveLen(1))
		Expect(written[0].Key).To(Equal("tenant:3:octo_api:pr-42"))
		Expect(written[0].Scope).To(Equal("tenant:3"))
	})
})
