package gitlab

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"triagebot/internal/domain"
)

func TestListIssues(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/api/v4/projects/group%2Fproj/issues" {
			t.Fatalf("unexpected path: %s", r.URL.EscapedPath())
		}
		if got := r.Header.Get("PRIVATE-TOKEN"); got != "glpat-test" {
			t.Fatalf("unexpected PRIVATE-TOKEN header: %q", got)
		}
		if got := r.URL.Query().Get("state"); got != "opened" {
			t.Fatalf("unexpected state query: %q", got)
		}
		payload := []map[string]any{
			{
				"iid":              3,
				"title":            "Slow pipeline",
				"description":      "takes minutes",
				"labels":           []string{"ci"},
				"user_notes_count": 1,
			},
			{"iid": 4, "title": "Docs", "description": nil, "labels": []string{}},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	c := NewClient(server.URL+"/", "group/proj", "glpat-test", server.Client())
	got, err := c.ListIssues(context.Background())
	if err != nil {
		t.Fatalf("ListIssues: %v", err)
	}
	want := []domain.IssueRecord{
		{ID: "3", Title: "Slow pipeline", Body: "takes minutes", Labels: []string{"ci"}, CommentCount: 1},
		{ID: "4", Title: "Docs"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("issues (-want +got):\n%s", diff)
	}
}

func TestMutations(t *testing.T) {
	var updates []string
	var notes []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v4/projects/42/issues/9":
			_, _ = w.Write([]byte(`{"iid":9,"labels":["needs-triage","ui"]}`))
		case r.Method == http.MethodPut && r.URL.Path == "/api/v4/projects/42/issues/9":
			updates = append(updates, string(body))
			_, _ = w.Write([]byte(`{"iid":9}`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/v4/projects/42/issues/9/notes":
			notes = append(notes, string(body))
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{}`))
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	c := NewClient(server.URL, "42", "glpat-test", server.Client())
	ctx := context.Background()
	if err := c.AddLabels(ctx, "9", []string{"type-bug", "priority-low"}); err != nil {
		t.Fatalf("AddLabels: %v", err)
	}
	if err := c.RemoveLabel(ctx, "9", "needs-triage"); err != nil {
		t.Fatalf("RemoveLabel: %v", err)
	}
	if err := c.RemoveLabel(ctx, "9", "backend"); !errors.Is(err, domain.ErrLabelNotFound) {
		t.Fatalf("RemoveLabel absent: got %v want ErrLabelNotFound", err)
	}
	if err := c.CreateComment(ctx, "9", "triaged"); err != nil {
		t.Fatalf("CreateComment: %v", err)
	}

	wantUpdates := []string{`{"add_labels":"type-bug,priority-low"}`, `{"remove_labels":"needs-triage"}`}
	if diff := cmp.Diff(wantUpdates, updates); diff != "" {
		t.Fatalf("updates (-want +got):\n%s", diff)
	}
	if len(notes) != 1 || !strings.Contains(notes[0], "triaged") {
		t.Fatalf("notes: got %v", notes)
	}
}

func TestCreateCommentFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	err := NewClient(server.URL, "42", "t", server.Client()).CreateComment(context.Background(), "1", "x")
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("got %v want 403 error", err)
	}
}
