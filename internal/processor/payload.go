package processor

import (
	"encoding/json"
	"fmt"
	"strings"

	"repogator.app/relay/common/logger"
)

// Only the fields the prompts use; GitHub sends far more.

type issuePayload struct {
	Issue struct {
		Number int64  `json:"number"`
		Title  string `json:"title"`
		Body   string `json:"body"`
		Labels []struct {
			Name string `json:"name"`
		} `json:"labels"`
		User struct {
			Login string `json:"login"`
		} `json:"user"`
	} `json:"issue"`
	Repository repositoryRef `json:"repository"`
}

type pullRequestPayload struct {
	PullRequest struct {
		Number       int64  `json:"number"`
		Title        string `json:"title"`
		Body         string `json:"body"`
		HTMLURL      string `json:"html_url"`
		Merged       bool   `json:"merged"`
		Additions    int64  `json:"additions"`
		Deletions    int64  `json:"deletions"`
		ChangedFiles int64  `json:"changed_files"`
		Head         struct {
			Ref string `json:"ref"`
		} `json:"head"`
		Base struct {
			Ref string `json:"ref"`
		} `json:"base"`
		User struct {
			Login string `json:"login"`
		} `json:"user"`
	} `json:"pull_request"`
	Repository repositoryRef `json:"repository"`
}

type repositoryRef struct {
	FullName string `json:"full_name"`
}

func decodeIssue(raw []byte) (*issuePayload, error) {
	var p issuePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	if p.Issue.Title == "" && p.Issue.Body == "" {
		return nil, fmt.Errorf("issue has no title or body")
	}
	return &p, nil
}

func decodePullRequest(raw []byte) (*pullRequestPayload, error) {
	var p pullRequestPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	if p.PullRequest.Number == 0 {
		return nil, fmt.Errorf("payload has no pull request")
	}
	return &p, nil
}

func section(sb *strings.Builder, title, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	sb.WriteString("## ")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(logger.Truncate(body, 6000))
	sb.WriteString("\n\n")
}
