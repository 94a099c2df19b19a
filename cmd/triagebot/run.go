package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"triagebot/internal/app"
	"triagebot/internal/config"
)

var runFlags struct {
	dryRun bool
	input  string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Triage every open issue of the configured tracker",
	Long: `Fetch open issues, classify them, apply the label delta and write a report.

Per-issue failures are counted in the report and never change the exit code.
Only configuration problems and a failed issue listing exit non-zero.

Examples:
  # Preview against the live tracker without writing anything
  triagebot run --dry-run

  # Offline run over an exported JSON file
  triagebot run --input issues.json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts []config.Option
		if runFlags.input != "" {
			opts = append(opts, config.WithInputPath(runFlags.input))
		}
		if runFlags.dryRun {
			opts = append(opts, config.WithDryRun())
		}
		cfg, err := loadConfig(opts...)
		if err != nil {
			return err
		}

		summary, err := app.Run(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		printRunSummary(cmd.OutOrStdout(), summary)
		return nil
	},
}

func init() {
	f := runCmd.Flags()
	f.BoolVar(&runFlags.dryRun, "dry-run", false, "Analyze and report only; never write to the tracker")
	f.StringVar(&runFlags.input, "input", "", "Read issues from a JSON file instead of a tracker")
}

func printRunSummary(w io.Writer, s app.RunSummary) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	mode := "live"
	if s.Report.DryRun {
		mode = "dry run"
	}
	fmt.Fprintf(w, "\n%s %s\n\n", cyan("=== Triage Summary ==="), gray("("+mode+")"))

	m := s.Result.Metrics
	errCount := green(fmt.Sprintf("%d", m.Errors))
	if m.Errors > 0 {
		errCount = red(fmt.Sprintf("%d", m.Errors))
	}
	fmt.Fprintf(w, "  Processed:  %d\n", m.Processed)
	fmt.Fprintf(w, "  Classified: %d\n", m.Classified)
	fmt.Fprintf(w, "  Labeled:    %d\n", m.Labeled)
	fmt.Fprintf(w, "  Errors:     %s\n", errCount)

	if n := len(s.Report.Critical); n > 0 {
		fmt.Fprintf(w, "  Critical:   %s\n", red(fmt.Sprintf("%d", n)))
	}
	if n := len(s.Report.Security); n > 0 {
		fmt.Fprintf(w, "  Security:   %s\n", red(fmt.Sprintf("%d", n)))
	}
	if s.Result.Cancelled {
		fmt.Fprintf(w, "\n%s batch cancelled; report covers issues processed so far\n", yellow("⚠"))
	}
	if s.Report.NeedsManualReview() {
		fmt.Fprintf(w, "%s some issues were skipped; manual review is required\n", yellow("⚠"))
	}
	if s.ReportPath != "" {
		fmt.Fprintf(w, "\nReport: %s\n", s.ReportPath)
	}
	fmt.Fprintf(w, "%s\n", gray("Run: "+s.RunID))
}
