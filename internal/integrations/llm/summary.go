package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"triagebot/internal/logging"
	"triagebot/internal/report"
)

const DefaultModel = "claude-sonnet-4-5-20250929"

const maxSummaryChars = 1200

type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

func (u Usage) TotalTokens() int64 {
	return u.InputTokens + u.OutputTokens
}

// callAnthropicFn is swapped out in tests.
var callAnthropicFn = callAnthropic

// Summarizer writes the executive summary paragraph of a triage report. It
// only sees the aggregated report, never individual issue bodies, and its
// output has no effect on any score.
type Summarizer struct {
	apiKey string
	model  string
}

func NewSummarizer(apiKey, model string) *Summarizer {
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return &Summarizer{apiKey: apiKey, model: model}
}

func (s *Summarizer) Summarize(ctx context.Context, r report.Report) (string, Usage, error) {
	system, user, err := buildSummaryPrompts(r)
	if err != nil {
		return "", Usage{}, err
	}
	logging.Infof("llm summary provider=anthropic model=%s processed=%d", s.model, r.Metrics.Processed)
	text, usage, err := callAnthropicFn(ctx, s.apiKey, s.model, system, user)
	if err != nil {
		return "", usage, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", usage, fmt.Errorf("empty summary from model")
	}
	if len(text) > maxSummaryChars {
		text = strings.TrimSpace(truncateUTF8(text, maxSummaryChars)) + "..."
	}
	return text, usage, nil
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// summaryInput is the subset of a report the model is allowed to see.
type summaryInput struct {
	Processed       int               `json:"processed"`
	Classified      int               `json:"classified"`
	Labeled         int               `json:"labeled"`
	Errors          int               `json:"errors"`
	ByCategory      map[string]int    `json:"by_category"`
	ByPriority      map[string]int    `json:"by_priority"`
	ByComponent     map[string]int    `json:"by_component"`
	Critical        []report.IssueRef `json:"critical"`
	Security        []report.IssueRef `json:"security"`
	MeanConfidence  float64           `json:"mean_confidence"`
	BelowThreshold  int               `json:"below_threshold"`
	Recommendations []string          `json:"recommendations"`
	DryRun          bool              `json:"dry_run"`
}

func buildSummaryPrompts(r report.Report) (string, string, error) {
	in := summaryInput{
		Processed:       r.Metrics.Processed,
		Classified:      r.Metrics.Classified,
		Labeled:         r.Metrics.Labeled,
		Errors:          r.Metrics.Errors,
		ByCategory:      r.ByCategory,
		ByPriority:      r.ByPriority,
		ByComponent:     r.ByComponent,
		Critical:        r.Critical,
		Security:        r.Security,
		MeanConfidence:  r.MeanConfidence,
		BelowThreshold:  len(r.BelowThreshold),
		Recommendations: r.Recommendations,
		DryRun:          r.DryRun,
	}
	data, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("encoding summary input: %w", err)
	}

	system := "You write the opening paragraph of an issue triage report for engineering leads. " +
		"Use only the numbers and issues given. Write at most four plain sentences, no headings, no lists. " +
		"Lead with whatever needs attention first: critical issues, security issues, then errors."
	user := "Triage run data (JSON):\n" + string(data)
	return system, user, nil
}

func callAnthropic(ctx context.Context, apiKey, model, systemPrompt, userPrompt string) (string, Usage, error) {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		logging.Errorf("llm anthropic error: %v", err)
		return "", Usage{}, fmt.Errorf("Anthropic API error: %w", err)
	}
	usage := Usage{
		InputTokens:  message.Usage.InputTokens,
		OutputTokens: message.Usage.OutputTokens,
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			logging.Infof("llm anthropic response size=%d tokens_in=%d tokens_out=%d", len(block.Text), usage.InputTokens, usage.OutputTokens)
			return block.Text, usage, nil
		}
	}
	return "", usage, fmt.Errorf("no text content in Anthropic response")
}
