package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"triagebot/internal/app"
	"triagebot/internal/domain"
)

var classifyFlags struct {
	id     string
	title  string
	body   string
	labels []string
}

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Analyze a single issue and print the outcome as JSON",
	Long: `Run the analysis chain on one issue without contacting any tracker.

Example:
  triagebot classify --title "[BUG] Crash on startup" --body "panic in parser" --labels needs-triage`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if classifyFlags.title == "" && classifyFlags.body == "" {
			return fmt.Errorf("--title or --body is required")
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		out, err := app.Classify(cmd.Context(), cfg, domain.IssueRecord{
			ID:     classifyFlags.id,
			Title:  classifyFlags.title,
			Body:   classifyFlags.body,
			Labels: classifyFlags.labels,
		})
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	f := classifyCmd.Flags()
	f.StringVar(&classifyFlags.id, "id", "", "Issue id to show in the output")
	f.StringVar(&classifyFlags.title, "title", "", "Issue title")
	f.StringVar(&classifyFlags.body, "body", "", "Issue body")
	f.StringSliceVar(&classifyFlags.labels, "labels", nil, "Labels already on the issue (comma separated)")
}
