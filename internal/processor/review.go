package processor

import (
	"fmt"
	"strings"

	"repogator.app/relay/common/llm"
	"repogator.app/relay/internal/model"
)

type ReviewResponse struct {
	Summary     string          `json:"summary" jsonschema_description:"What the change does"`
	Risks       []ReviewFinding `json:"risks" jsonschema_description:"Things that could break"`
	Suggestions []string        `json:"suggestions" jsonschema_description:"Concrete improvements"`
	Verdict     string          `json:"verdict" jsonschema:"enum=approve,enum=comment,enum=request_changes"`
}

type ReviewFinding struct {
	Severity string `json:"severity" jsonschema:"enum=low,enum=medium,enum=high"`
	Detail   string `json:"detail"`
}

var reviewSchema = llm.GenerateSchema[ReviewResponse]()

// NewReviewProcessor reviews newly opened pull requests.
func NewReviewProcessor(newClient ClientFactory) Processor {
	return &agent[ReviewResponse]{
		name:        "review",
		schemaName:  "review_response",
		schema:      reviewSchema,
		temperature: 0.1,
		maxTokens:   2000,
		newClient:   newClient,
		build:       buildReviewPrompt,
	}
}

func buildReviewPrompt(event *model.Event) (prompt, error) {
	p, err := decodePullRequest(event.Payload)
	if err != nil {
		return prompt{}, err
	}
	pr := p.PullRequest

	var sb strings.Builder
	fmt.Fprintf(&sb, "Repository: %s\nPull request #%d by %s: %s -> %s\n", event.RepoFullName, pr.Number, pr.User.Login, pr.Head.Ref, pr.Base.Ref)
	fmt.Fprintf(&sb, "Size: +%d -%d across %d files\n\n", pr.Additions, pr.Deletions, pr.ChangedFiles)
	section(&sb, "Title", pr.Title)
	section(&sb, "Description", pr.Body)

	return prompt{
		System: reviewSystemPrompt,
		User:   sb.String(),
		Query:  pr.Title + " " + pr.Body,
	}, nil
}

const reviewSystemPrompt = `You are a careful reviewer looking at a pull request as it is opened.

Judge the change from its description and size. Flag risks with a severity, propose
concrete suggestions, and pick a verdict. Do not claim to have read code you were not shown.`
