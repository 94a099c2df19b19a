package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"triagebot/internal/app"
	"triagebot/internal/storage/sqlite"
)

var historyFlags struct {
	limit int
	runID string
	since time.Duration
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent triage runs from the history store",
	Long: `Show the most recent runs recorded in db_path, or the outcomes of one run.

Examples:
  triagebot history --limit 5
  triagebot history --run 0b5c3e0e-2f1a-4f0e-9a57-3a1f6f0e4d21`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if historyFlags.runID != "" {
			outcomes, err := app.RunOutcomes(cfg, historyFlags.runID)
			if err != nil {
				return err
			}
			printOutcomes(w, historyFlags.runID, outcomes)
			return nil
		}

		hist, err := app.LoadHistory(cfg, historyFlags.limit, time.Now().Add(-historyFlags.since))
		if err != nil {
			return err
		}
		printHistory(w, hist, historyFlags.since)
		return nil
	},
}

func init() {
	f := historyCmd.Flags()
	f.IntVar(&historyFlags.limit, "limit", 10, "Number of runs to list")
	f.StringVar(&historyFlags.runID, "run", "", "Show the stored outcomes of one run")
	f.DurationVar(&historyFlags.since, "since", 30*24*time.Hour, "Window for the confidence statistics")
}

func printHistory(w io.Writer, hist app.History, since time.Duration) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Fprintf(w, "\n%s\n\n", cyan("=== Triage History ==="))
	if len(hist.Runs) == 0 {
		fmt.Fprintf(w, "  %s\n", gray("No runs recorded"))
		return
	}
	for _, run := range hist.Runs {
		mode := "live"
		if run.DryRun {
			mode = "dry-run"
		}
		if run.Cancelled {
			mode += ",cancelled"
		}
		errs := fmt.Sprintf("%d", run.Metrics.Errors)
		if run.Metrics.Errors > 0 {
			errs = red(errs)
		}
		fmt.Fprintf(w, "  %s  %-7s %-18s processed=%d classified=%d labeled=%d errors=%s\n",
			run.StartedAt.Local().Format("2006-01-02 15:04"), run.Tracker, mode,
			run.Metrics.Processed, run.Metrics.Classified, run.Metrics.Labeled, errs)
		fmt.Fprintf(w, "    %s\n", gray(run.ID))
	}

	st := hist.Stats
	if st.TotalOutcomes > 0 {
		fmt.Fprintf(w, "\nLast %d days: %d outcomes, mean confidence %.2f, %d unclassified\n",
			int(since.Hours()/24), st.TotalOutcomes, st.AvgConfidence, st.Unclassified)
		fmt.Fprintf(w, "  <0.5: %d  0.5-0.7: %d  0.7-0.9: %d  >=0.9: %d\n",
			st.BucketBelow50, st.Bucket50to70, st.Bucket70to90, st.Bucket90Plus)
	}
}

func printOutcomes(w io.Writer, runID string, outcomes []sqlite.OutcomeRecord) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Fprintf(w, "\n%s %s\n\n", cyan("=== Run"), gray(runID))
	if len(outcomes) == 0 {
		fmt.Fprintf(w, "  %s\n", gray("No outcomes stored for this run"))
		return
	}
	for _, o := range outcomes {
		fmt.Fprintf(w, "  #%-6s %-14s %.2f  %-9s %s\n", o.IssueID, o.Category, o.Confidence, o.Priority, o.Title)
		if len(o.LabelsAdded) > 0 {
			fmt.Fprintf(w, "    %s\n", gray("+"+strings.Join(o.LabelsAdded, " +")))
		}
	}
}
