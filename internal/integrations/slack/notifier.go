package slack

import (
	"context"
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"triagebot/internal/report"
)

const maxListed = 5

// Notifier posts run summaries to a single channel.
type Notifier struct {
	api       *slack.Client
	channelID string
}

func NewNotifier(token, channelID string, options ...slack.Option) *Notifier {
	return &Notifier{api: slack.New(token, options...), channelID: channelID}
}

func (n *Notifier) PostSummary(ctx context.Context, r report.Report, reportPath string) error {
	_, _, err := n.api.PostMessageContext(ctx, n.channelID, slack.MsgOptionText(FormatSummary(r, reportPath), false))
	if err != nil {
		return fmt.Errorf("posting triage summary: %w", err)
	}
	return nil
}

// FormatSummary renders a short mrkdwn digest of r.
func FormatSummary(r report.Report, reportPath string) string {
	var b strings.Builder
	title := "*Issue triage finished*"
	if r.DryRun {
		title = "*Issue triage finished (dry run)*"
	}
	b.WriteString(title + "\n")
	m := r.Metrics
	fmt.Fprintf(&b, "Processed %d, classified %d, labeled %d, errors %d\n", m.Processed, m.Classified, m.Labeled, m.Errors)

	if len(r.Critical) > 0 {
		fmt.Fprintf(&b, ":rotating_light: %d critical:\n", len(r.Critical))
		writeRefs(&b, r.Critical)
	}
	if len(r.Security) > 0 {
		fmt.Fprintf(&b, ":lock: %d security:\n", len(r.Security))
		writeRefs(&b, r.Security)
	}
	if r.NeedsManualReview() {
		b.WriteString(":warning: Manual review required for issues that hit errors.\n")
	}
	if r.Cancelled {
		b.WriteString("Run was cancelled before the batch finished.\n")
	}
	if reportPath != "" {
		fmt.Fprintf(&b, "Report: `%s`\n", reportPath)
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeRefs(b *strings.Builder, refs []report.IssueRef) {
	for i, ref := range refs {
		if i == maxListed {
			fmt.Fprintf(b, "  ... and %d more\n", len(refs)-maxListed)
			return
		}
		fmt.Fprintf(b, "  • #%s %s\n", ref.IssueID, ref.Title)
	}
}
