package gitlab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"triagebot/internal/domain"
	"triagebot/internal/logging"
)

const pageSize = 100

// Client reads open issues from one GitLab project and writes labels and
// notes back to it. Issue ids are project-scoped iids.
type Client struct {
	baseURL    string
	projectID  string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, projectID, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		projectID:  projectID,
		token:      token,
		httpClient: httpClient,
	}
}

type gitlabIssue struct {
	IID            int      `json:"iid"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Labels         []string `json:"labels"`
	UserNotesCount int      `json:"user_notes_count"`
}

func (c *Client) projectPath() string {
	return "/api/v4/projects/" + url.PathEscape(c.projectID)
}

func (c *Client) ListIssues(ctx context.Context) ([]domain.IssueRecord, error) {
	var issues []domain.IssueRecord
	page := 1
	logging.Infof("gitlab fetch start project=%s", c.projectID)
	for {
		path := fmt.Sprintf("%s/issues?state=opened&per_page=%d&page=%d", c.projectPath(), pageSize, page)
		logging.Debugf("gitlab fetch page=%d", page)

		status, body, err := c.do(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, fmt.Errorf("fetching issues: %w", err)
		}
		if status != http.StatusOK {
			return nil, fmt.Errorf("GitLab API returned %d: %s", status, string(body))
		}

		var items []gitlabIssue
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("parsing response: %w", err)
		}
		for _, item := range items {
			issues = append(issues, domain.IssueRecord{
				ID:           strconv.Itoa(item.IID),
				Title:        item.Title,
				Body:         item.Description,
				Labels:       domain.UniqueLabels(item.Labels),
				CommentCount: item.UserNotesCount,
			})
		}
		if len(items) < pageSize {
			break
		}
		page++
	}
	logging.Infof("gitlab fetch done project=%s issues=%d", c.projectID, len(issues))
	return issues, nil
}

func (c *Client) AddLabels(ctx context.Context, issueID string, labels []string) error {
	return c.updateIssue(ctx, issueID, map[string]string{"add_labels": strings.Join(labels, ",")})
}

// RemoveLabel returns domain.ErrLabelNotFound when the issue does not carry
// label. GitLab itself treats such a removal as a no-op, so the current labels
// are read first.
func (c *Client) RemoveLabel(ctx context.Context, issueID, label string) error {
	issue, err := c.getIssue(ctx, issueID)
	if err != nil {
		return err
	}
	found := false
	for _, l := range issue.Labels {
		if l == label {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", domain.ErrLabelNotFound, label)
	}
	return c.updateIssue(ctx, issueID, map[string]string{"remove_labels": label})
}

func (c *Client) CreateComment(ctx context.Context, issueID, text string) error {
	path := fmt.Sprintf("%s/issues/%s/notes", c.projectPath(), url.PathEscape(issueID))
	status, body, err := c.do(ctx, http.MethodPost, path, map[string]string{"body": text})
	if err != nil {
		return err
	}
	if status != http.StatusCreated {
		return fmt.Errorf("GitLab API returned %d: %s", status, string(body))
	}
	return nil
}

func (c *Client) getIssue(ctx context.Context, issueID string) (gitlabIssue, error) {
	path := fmt.Sprintf("%s/issues/%s", c.projectPath(), url.PathEscape(issueID))
	status, body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return gitlabIssue{}, err
	}
	if status != http.StatusOK {
		return gitlabIssue{}, fmt.Errorf("GitLab API returned %d: %s", status, string(body))
	}
	var issue gitlabIssue
	if err := json.Unmarshal(body, &issue); err != nil {
		return gitlabIssue{}, fmt.Errorf("parsing response: %w", err)
	}
	return issue, nil
}

func (c *Client) updateIssue(ctx context.Context, issueID string, fields map[string]string) error {
	path := fmt.Sprintf("%s/issues/%s", c.projectPath(), url.PathEscape(issueID))
	status, body, err := c.do(ctx, http.MethodPut, path, fields)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("GitLab API returned %d: %s", status, string(body))
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("PRIVATE-TOKEN", c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("reading response: %w", err)
	}
	return resp.StatusCode, body, nil
}
