package triage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"triagebot/internal/domain"
)

// FileSource reads a JSON array of issues from disk, for offline runs.
type FileSource struct {
	Path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

type fileIssue struct {
	ID           json.RawMessage `json:"id"`
	Title        string          `json:"title"`
	Body         string          `json:"body"`
	Labels       []string        `json:"labels"`
	CommentCount int             `json:"comment_count"`
}

func (s *FileSource) ListIssues(ctx context.Context) ([]domain.IssueRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, domain.NewConfigurationError("read issue file "+s.Path, err)
	}
	return ParseIssues(data)
}

// ParseIssues decodes a JSON array of issues. ids may be strings or numbers.
func ParseIssues(data []byte) ([]domain.IssueRecord, error) {
	var raw []fileIssue
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, domain.NewConfigurationError("parse issue file", err)
	}
	issues := make([]domain.IssueRecord, 0, len(raw))
	for i, r := range raw {
		id, err := decodeID(r.ID)
		if err != nil {
			return nil, domain.NewConfigurationError(fmt.Sprintf("issue at position %d", i), err)
		}
		issues = append(issues, domain.IssueRecord{
			ID:           id,
			Title:        r.Title,
			Body:         r.Body,
			Labels:       domain.UniqueLabels(r.Labels),
			CommentCount: r.CommentCount,
		})
	}
	return issues, nil
}

func decodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("id must be a string or number: %w", err)
	}
	return n.String(), nil
}
