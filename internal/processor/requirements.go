package processor

import (
	"fmt"
	"strings"

	"repogator.app/relay/common/llm"
	"repogator.app/relay/internal/model"
)

type RequirementsResponse struct {
	Summary            string   `json:"summary" jsonschema_description:"Two or three sentences restating the request"`
	AcceptanceCriteria []string `json:"acceptance_criteria" jsonschema_description:"Testable conditions for done"`
	OpenQuestions      []string `json:"open_questions" jsonschema_description:"What the reporter still has to clarify"`
	Labels             []string `json:"labels" jsonschema_description:"Suggested labels, lowercase"`
	Complexity         string   `json:"complexity" jsonschema:"enum=small,enum=medium,enum=large"`
}

var requirementsSchema = llm.GenerateSchema[RequirementsResponse]()

// NewRequirementsProcessor enriches newly opened issues.
func NewRequirementsProcessor(newClient ClientFactory) Processor {
	return &agent[RequirementsResponse]{
		name:        "requirements",
		schemaName:  "requirements_response",
		schema:      requirementsSchema,
		temperature: 0.2,
		maxTokens:   1500,
		newClient:   newClient,
		build:       buildRequirementsPrompt,
	}
}

func buildRequirementsPrompt(event *model.Event) (prompt, error) {
	p, err := decodeIssue(event.Payload)
	if err != nil {
		return prompt{}, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Repository: %s\nIssue #%d by %s\n\n", event.RepoFullName, p.Issue.Number, p.Issue.User.Login)
	section(&sb, "Title", p.Issue.Title)
	section(&sb, "Description", p.Issue.Body)
	if len(p.Issue.Labels) > 0 {
		names := make([]string, len(p.Issue.Labels))
		for i, l := range p.Issue.Labels {
			names[i] = l.Name
		}
		section(&sb, "Existing labels", strings.Join(names, ", "))
	}

	return prompt{
		System: requirementsSystemPrompt,
		User:   sb.String(),
		Query:  p.Issue.Title + " " + p.Issue.Body,
	}, nil
}

const requirementsSystemPrompt = `You turn a freshly opened issue into clear requirements.

Restate what is being asked without inventing scope. Acceptance criteria must be observable
and testable. List open questions only when the issue leaves a decision to the implementer.
Use the related knowledge, when given, to align terminology with the project.`
