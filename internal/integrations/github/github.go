package github

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

const DefaultAPIURL = "https://api.github.com"

const pageSize = 100

// Client reads open issues from one repository and writes labels and
// comments back to it.
type Client struct {
	baseURL    string
	repo       string
	token      string
	httpClient *http.Client
}

// NewClient returns a client for repo ("owner/name"). An empty baseURL means
// the public GitHub API.
func NewClient(baseURL, repo, token string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		repo:       strings.Trim(repo, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

type githubIssue struct {
	Number      int             `json:"number"`
	Title       string          `json:"title"`
	Body        string          `json:"body"`
	Comments    int             `json:"comments"`
	Labels      []githubLabel   `json:"labels"`
	PullRequest json.RawMessage `json:"pull_request"`
}

type githubLabel struct {
	Name string `json:"name"`
}

// ListIssues returns every open issue. Pull requests, which the issues
// endpoint also returns, are skipped.
func (c *Client) ListIssues(ctx context.Context) ([]domain.IssueRecord, error) {
	var issues []domain.IssueRecord
	page := 1
	for {
		path := fmt.Sprintf("/repos/%s/issues?state=open&per_page=%d&page=%d", c.repo, pageSize, page)
		logging.Debugf("github fetch repo=%s page=%d", c.repo, page)

		status, body, err := c.do(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, fmt.Errorf("fetching issues: %w", err)
		}
		if status != http.StatusOK {
			return nil, fmt.Errorf("GitHub API returned %d: %s", status, string(body))
		}

		var items []githubIssue
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("parsing response: %w", err)
		}
		for _, item := range items {
			if len(item.PullRequest) > 0 && string(item.PullRequest) != "null" {
				continue
			}
			issues = append(issues, convertIssue(item))
		}
		if len(items) < pageSize {
			break
		}
		page++
	}
	logging.Infof("github fetch done repo=%s issues=%d", c.repo, len(issues))
	return issues, nil
}

func convertIssue(item githubIssue) domain.IssueRecord {
	labels := make([]string, 0, len(item.Labels))
	for _, l := range item.Labels {
		labels = append(labels, l.Name)
	}
	return domain.IssueRecord{
		ID:           strconv.Itoa(item.Number),
		Title:        item.Title,
		Body:         item.Body,
		Labels:       domain.UniqueLabels(labels),
		CommentCount: item.Comments,
	}
}

func (c *Client) AddLabels(ctx context.Context, issueID string, labels []string) error {
	path := fmt.Sprintf("/repos/%s/issues/%s/labels", c.repo, url.PathEscape(issueID))
	status, body, err := c.do(ctx, http.MethodPost, path, map[string][]string{"labels": labels})
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("GitHub API returned %d: %s", status, string(body))
	}
	return nil
}

// RemoveLabel maps GitHub's "Label does not exist" 404 to
// domain.ErrLabelNotFound. Any other 404, such as a deleted or transferred
// issue, stays a plain error.
func (c *Client) RemoveLabel(ctx context.Context, issueID, label string) error {
	path := fmt.Sprintf("/repos/%s/issues/%s/labels/%s", c.repo, url.PathEscape(issueID), url.PathEscape(label))
	status, body, err := c.do(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		if isMissingLabel(body) {
			return fmt.Errorf("%w: %s", domain.ErrLabelNotFound, label)
		}
		return fmt.Errorf("GitHub API returned %d: %s", status, string(body))
	default:
		return fmt.Errorf("GitHub API returned %d: %s", status, string(body))
	}
}

func isMissingLabel(body []byte) bool {
	var apiErr struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &apiErr); err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(apiErr.Message), "Label does not exist")
}

func (c *Client) CreateComment(ctx context.Context, issueID, text string) error {
	path := fmt.Sprintf("/repos/%s/issues/%s/comments", c.repo, url.PathEscape(issueID))
	status, body, err := c.do(ctx, http.MethodPost, path, map[string]string{"body": text})
	if err != nil {
		return err
	}
	if status != http.StatusCreated {
		return fmt.Errorf("GitHub API returned %d: %s", status, string(body))
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
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
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
