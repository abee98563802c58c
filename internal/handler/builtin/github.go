package builtin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/orbitflow/orbitflow/internal/handler"
)

const githubAPIBase = "https://api.github.com"

// GitHubCreateIssueHandler creates an issue on a GitHub repository.
// Grounded on github_create_issue.py's GitHubCreateIssueHandler: bearer
// token from creds, repo/title required, body/assignees/labels optional.
type GitHubCreateIssueHandler struct{}

func (h *GitHubCreateIssueHandler) ParameterSpecs() []handler.ParameterSpec {
	return []handler.ParameterSpec{
		{Name: "repo", Type: handler.TypeString, Required: true, Description: "owner/repo"},
		{Name: "title", Type: handler.TypeString, Required: true, Description: "Issue title"},
		{Name: "body", Type: handler.TypeString, Description: "Issue body"},
		{Name: "assignees", Type: handler.TypeSequence, Description: "GitHub usernames to assign"},
		{Name: "labels", Type: handler.TypeSequence, Description: "Labels to apply"},
	}
}

func (h *GitHubCreateIssueHandler) Execute(ctx context.Context, params handler.Params, creds handler.Creds) (*handler.Result, error) {
	start := time.Now()

	token, _ := creds["access_token"].(string)
	if token == "" {
		return errResult(start, fmt.Errorf("missing creds.access_token")), nil
	}
	repo, _ := params["repo"].(string)
	title, _ := params["title"].(string)
	if repo == "" || title == "" {
		return errResult(start, fmt.Errorf("'repo' and 'title' are required")), nil
	}

	payload := map[string]any{"title": title}
	for _, key := range []string{"body", "assignees", "labels"} {
		if v, ok := params[key]; ok {
			payload[key] = v
		}
	}

	buf, err := json.Marshal(payload)
	if err != nil {
		return errResult(start, err), nil
	}

	url := fmt.Sprintf("%s/repos/%s/issues", githubAPIBase, repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return errResult(start, err), nil
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return errResult(start, err), nil
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errResult(start, err), nil
	}

	var data any
	_ = json.Unmarshal(raw, &data)

	if resp.StatusCode >= 300 {
		return &handler.Result{Status: handler.StatusError, Output: data, Error: fmt.Sprintf("github api %d", resp.StatusCode), DurationMS: elapsedMS(start)}, nil
	}
	return okResult(start, data), nil
}
