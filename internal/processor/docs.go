package processor

import (
	"fmt"
	"strings"

	"repogator.app/relay/common/llm"
	"repogator.app/relay/internal/knowledge"
	"repogator.app/relay/internal/model"
)

type DocsResponse struct {
	ChangelogEntry string   `json:"changelog_entry" jsonschema_description:"One line for the changelog"`
	DocsToUpdate   []string `json:"docs_to_update" jsonschema_description:"Documentation pages likely affected"`
	ReleaseNote    string   `json:"release_note" jsonschema_description:"User-facing note, empty for internal changes"`
}

var docsSchema = llm.GenerateSchema[DocsResponse]()

// NewDocsProcessor drafts documentation updates for merged pull requests.
func NewDocsProcessor(newClient ClientFactory) Processor {
	return &agent[DocsResponse]{
		name:        "docs",
		schemaName:  "docs_response",
		schema:      docsSchema,
		temperature: 0.3,
		maxTokens:   1000,
		newClient:   newClient,
		build:       buildDocsPrompt,
		remember:    rememberDocs,
	}
}

func buildDocsPrompt(event *model.Event) (prompt, error) {
	p, err := decodePullRequest(event.Payload)
	if err != nil {
		return prompt{}, err
	}
	pr := p.PullRequest
	if !pr.Merged {
		return prompt{}, fmt.Errorf("pull request #%d is not merged", pr.Number)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Repository: %s\nMerged pull request #%d into %s\n\n", event.RepoFullName, pr.Number, pr.Base.Ref)
	section(&sb, "Title", pr.Title)
	section(&sb, "Description", pr.Body)

	return prompt{
		System: docsSystemPrompt,
		User:   sb.String(),
		Query:  pr.Title,
	}, nil
}

// rememberDocs records the merged change so later reviews of the same
// repository can cite it.
func rememberDocs(event *model.Event, out DocsResponse) (knowledge.Document, bool) {
	if strings.TrimSpace(out.ChangelogEntry) == "" {
		return knowledge.Document{}, false
	}
	p, err := decodePullRequest(event.Payload)
	if err != nil {
		return knowledge.Document{}, false
	}
	pr := p.PullRequest

	var sb strings.Builder
	sb.WriteString(out.ChangelogEntry)
	if out.ReleaseNote != "" {
		sb.WriteString("\n\n")
		sb.WriteString(out.ReleaseNote)
	}
	if len(out.DocsToUpdate) > 0 {
		sb.WriteString("\n\nDocumentation: ")
		sb.WriteString(strings.Join(out.DocsToUpdate, ", "))
	}

	return knowledge.Document{
		Key:     fmt.Sprintf("%s:pr-%d", event.RepoFullName, pr.Number),
		Title:   fmt.Sprintf("#%d %s", pr.Number, pr.Title),
		Content: sb.String(),
		Source:  pr.HTMLURL,
	}, true
}

const docsSystemPrompt = `You keep project documentation in step with merged changes.

Write a single changelog line, name the documentation pages the change most likely affects
(use the related knowledge to find real page titles), and a release note when users notice
the change.`
