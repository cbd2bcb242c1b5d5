package mapper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/webhooks/v6/github"

	"repogator.app/relay/internal/model"
)

const GitHubEventHeader = "X-GitHub-Event"

type GitHubEventMapper struct{}

func NewGitHubEventMapper() *GitHubEventMapper {
	return &GitHubEventMapper{}
}

// Map classifies a GitHub delivery. Kinds without a processor come back as
// "<event>.<action>" so they are still recorded and fail visibly at dispatch.
func (m *GitHubEventMapper) Map(ctx context.Context, body []byte, headers map[string]string) (Mapping, error) {
	event := github.Event(headers[GitHubEventHeader])
	if event == "" {
		return Mapping{}, ErrMissingEventHeader
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return Mapping{}, fmt.Errorf("%w: body is not a JSON object", ErrInvalidPayload)
	}

	switch event {
	case github.PingEvent:
		return Mapping{Kind: model.EventKind(event), Ignore: true}, nil

	case github.IssuesEvent:
		var p github.IssuesPayload
		if err := json.Unmarshal(trimmed, &p); err != nil {
			return Mapping{}, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, event, err)
		}
		kind := fallbackKind(event, p.Action)
		if p.Action == "opened" {
			kind = model.EventKindIssueOpened
		}
		return Mapping{Kind: kind, RepoFullName: p.Repository.FullName}, nil

	case github.PullRequestEvent:
		var p github.PullRequestPayload
		if err := json.Unmarshal(trimmed, &p); err != nil {
			return Mapping{}, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, event, err)
		}
		kind := fallbackKind(event, p.Action)
		switch {
		case p.Action == "opened":
			kind = model.EventKindPullRequestOpened
		case p.Action == "closed" && p.PullRequest.Merged:
			kind = model.EventKindPullRequestMerged
		}
		return Mapping{Kind: kind, RepoFullName: p.Repository.FullName}, nil
	}

	var envelope struct {
		Action     string `json:"action"`
		Repository struct {
			FullName string `json:"full_name"`
		} `json:"repository"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return Mapping{}, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, event, err)
	}
	return Mapping{
		Kind:         fallbackKind(event, envelope.Action),
		RepoFullName: envelope.Repository.FullName,
	}, nil
}

func fallbackKind(event github.Event, action string) model.EventKind {
	if action == "" {
		return model.EventKind(event)
	}
	return model.EventKind(string(event) + "." + action)
}
