package processor_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"repogator.app/relay/common/llm"
	"repogator.app/relay/internal/knowledge"
	"repogator.app/relay/internal/model"
	"repogator.app/relay/internal/processor"
)

const issuePayload = `{
  "action": "opened",
  "issue": {"number": 12, "title": "Login fails with special characters", "body": "Passwords containing @ are rejected.", "user": {"login": "octocat"}, "labels": [{"name": "bug"}]},
  "repository": {"full_name": "octo/repo"}
}`

const pullRequestPayload = `{
  "action": "closed",
  "number": 5,
  "pull_request": {"number": 5, "title": "Add rate limiting", "body": "Throttles /api/users.", "merged": true, "additions": 120, "deletions": 8, "changed_files": 4, "head": {"ref": "feat/rl"}, "base": {"ref": "main"}, "user": {"login": "hubot"}},
  "repository": {"full_name": "octo/repo"}
}`

func event(kind model.EventKind, payload string) *model.Event {
	tenantID := int64(1)
	return &model.Event{
		ID:           100,
		DeliveryID:   "d-100",
		TenantID:     &tenantID,
		RepoFullName: "octo/repo",
		Kind:         kind,
		Payload:      json.RawMessage(payload),
		Status:       model.EventStatusProcessing,
		Attempts:     1,
	}
}

var _ = Describe("Registry", func() {
	It("should route only the known kinds", func() {
		registry := processor.DefaultRegistry(nil)

		for _, kind := range []model.EventKind{
			model.EventKindIssueOpened,
			model.EventKindPullRequestOpened,
			model.EventKindPullRequestMerged,
		} {
			p, ok := registry.Lookup(kind)
			Expect(ok).To(BeTrue(), string(kind))
			Expect(p.Name()).ToNot(BeEmpty())
		}

		_, ok := registry.Lookup("push")
		Expect(ok).To(BeFalse())
		Expect(registry.Kinds()).To(HaveLen(3))
	})

	It("should ignore nil processors", func() {
		registry := processor.NewRegistry(map[model.EventKind]processor.Processor{
			model.EventKindIssueOpened: nil,
		})
		_, ok := registry.Lookup(model.EventKindIssueOpened)
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("LLM processors", func() {
	var (
		ctx     context.Context
		client  *mockLLMClient
		factory processor.ClientFactory
		lookup  *mockLookup
		creds   model.CredentialSet
	)

	BeforeEach(func() {
		ctx = context.Background()
		client = &mockLLMClient{}
		creds = model.CredentialSet{Source: model.CredentialSourceTenant, LLMAPIKey: "sk", LLMModel: "m"}
		factory = func(c model.CredentialSet) (llm.Client, error) {
			Expect(c).To(Equal(creds))
			return client, nil
		}
		lookup = &mockLookup{
			queryFn: func(_ context.Context, scope, _ string, _ int) ([]knowledge.Result, error) {
				if scope == knowledge.SharedScope {
					return []knowledge.Result{{Title: "Auth guide", Content: "Passwords are validated by the auth service.", Score: 0.7}}, nil
				}
				return nil, nil
			},
		}
	})

	input := func(ev *model.Event) processor.Input {
		return processor.Input{Event: ev, Credentials: creds, Knowledge: knowledge.NewHandle(lookup, ev.TenantID)}
	}

	Context("requirements", func() {
		It("should return the structured answer as output", func() {
			client.chatFn = func(_ context.Context, req llm.Request, result any) (*llm.Response, error) {
				Expect(req.SchemaName).To(Equal("requirements_response"))
				Expect(req.UserPrompt).To(ContainSubstring("Login fails with special characters"))
				Expect(req.UserPrompt).To(ContainSubstring("Auth guide"))
				out := result.(*processor.RequirementsResponse)
				out.Summary = "Accept special characters in passwords"
				out.AcceptanceCriteria = []string{"@ is accepted"}
				out.Complexity = "small"
				return &llm.Response{PromptTokens: 200, CompletionTokens: 40}, nil
			}

			res := processor.NewRequirementsProcessor(factory).Process(ctx, input(event(model.EventKindIssueOpened, issuePayload)))
			Expect(res.Success).To(BeTrue())
			Expect(res.PromptTokens).To(Equal(200))
			Expect(res.CompletionTokens).To(Equal(40))

			var out processor.RequirementsResponse
			Expect(json.Unmarshal(res.Output, &out)).To(Succeed())
			Expect(out.Summary).To(Equal("Accept special characters in passwords"))
		})

		It("should fail without calling the model when the payload has no issue", func() {
			res := processor.NewRequirementsProcessor(factory).Process(ctx, input(event(model.EventKindIssueOpened, `{"issue":{}}`)))
			Expect(res.Success).To(BeFalse())
			Expect(res.Reason).To(ContainSubstring("reading payload"))
			Expect(client.callCount).To(BeZero())
		})
	})

	Context("review", func() {
		It("should describe the pull request to the model", func() {
			client.chatFn = func(_ context.Context, req llm.Request, result any) (*llm.Response, error) {
				Expect(req.UserPrompt).To(ContainSubstring("feat/rl -> main"))
				Expect(req.UserPrompt).To(ContainSubstring("+120 -8 across 4 files"))
				result.(*processor.ReviewResponse).Verdict = "comment"
				return &llm.Response{}, nil
			}

			res := processor.NewReviewProcessor(factory).Process(ctx, input(event(model.EventKindPullRequestOpened, pullRequestPayload)))
			Expect(res.Success).To(BeTrue())
			Expect(string(res.Output)).To(ContainSubstring(`"verdict":"comment"`))
		})
	})

	Context("docs", func() {
		It("should refuse unmerged pull requests", func() {
			unmerged := `{"pull_request":{"number":5,"title":"x","merged":false}}`
			res := processor.NewDocsProcessor(factory).Process(ctx, input(event(model.EventKindPullRequestMerged, unmerged)))
			Expect(res.Success).To(BeFalse())
			Expect(res.Reason).To(ContainSubstring("not merged"))
		})

		It("should remember the merged change in the tenant's knowledge", func() {
			writer := &mockWritingLookup{mockLookup: *lookup}
			client.chatFn = func(_ context.Context, _ llm.Request, result any) (*llm.Response, error) {
				out := result.(*processor.DocsResponse)
				out.ChangelogEntry = "Rate limiting for /api/users"
				out.DocsToUpdate = []string{"API limits"}
				return &llm.Response{}, nil
			}
			ev := event(model.EventKindPullRequestMerged, pullRequestPayload)
			in := processor.Input{Event: ev, Credentials: creds, Knowledge: knowledge.NewHandle(writer, ev.TenantID)}

			res := processor.NewDocsProcessor(factory).Process(ctx, in)
			Expect(res.Success).To(BeTrue())

			docs := writer.added[knowledge.TenantScope(1)]
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].Key).To(Equal("octo/repo:pr-5"))
			Expect(docs[0].Title).To(Equal("#5 Add rate limiting"))
			Expect(docs[0].Content).To(ContainSubstring("Documentation: API limits"))
		})

		It("should proceed when knowledge is unavailable", func() {
			lookup.queryFn = func(context.Context, string, string, int) ([]knowledge.Result, error) {
				return nil, errors.New("arango down")
			}
			client.chatFn = func(_ context.Context, req llm.Request, result any) (*llm.Response, error) {
				Expect(req.UserPrompt).ToNot(ContainSubstring("Related knowledge"))
				result.(*processor.DocsResponse).ChangelogEntry = "Rate limiting for /api/users"
				return &llm.Response{}, nil
			}

			res := processor.NewDocsProcessor(factory).Process(ctx, input(event(model.EventKindPullRequestMerged, pullRequestPayload)))
			Expect(res.Success).To(BeTrue())
		})
	})

	Context("when the model fails", func() {
		It("should retry transient errors and then give up with a reason", func() {
			client.chatFn = func(context.Context, llm.Request, any) (*llm.Response, error) {
				return nil, errors.New("connection reset by peer")
			}

			res := processor.NewReviewProcessor(factory).Process(ctx, input(event(model.EventKindPullRequestOpened, pullRequestPayload)))
			Expect(res.Success).To(BeFalse())
			Expect(res.Reason).To(ContainSubstring("connection reset by peer"))
			Expect(client.callCount).To(Equal(3))
		})

		It("should not retry a truncated answer", func() {
			client.chatFn = func(context.Context, llm.Request, any) (*llm.Response, error) {
				return &llm.Response{PromptTokens: 10, CompletionTokens: 2000}, fmt.Errorf("%w after 2000 tokens", llm.ErrTruncated)
			}

			res := processor.NewReviewProcessor(factory).Process(ctx, input(event(model.EventKindPullRequestOpened, pullRequestPayload)))
			Expect(res.Success).To(BeFalse())
			Expect(client.callCount).To(Equal(1))
			Expect(res.CompletionTokens).To(Equal(2000))
		})

		It("should report a client that cannot be built", func() {
			factory = func(model.CredentialSet) (llm.Client, error) {
				return nil, errors.New("API key is required")
			}

			res := processor.NewRequirementsProcessor(factory).Process(ctx, input(event(model.EventKindIssueOpened, issuePayload)))
			Expect(res.Success).To(BeFalse())
			Expect(res.Reason).To(ContainSubstring("API key is required"))
		})
	})
})
