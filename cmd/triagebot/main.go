// triagebot classifies open tracker issues, applies the resulting labels and
// writes a triage report.
//
// Usage:
//
//	triagebot run [--dry-run] [--input issues.json]
//	triagebot classify --title <text> [--body <text>] [--labels a,b]
//	triagebot history [--limit N] [--run <id>]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"triagebot/internal/config"
	"triagebot/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:           "triagebot",
	Short:         "Rule-based issue triage for GitHub and GitLab",
	Long:          "triagebot classifies issues by type, priority, component and owning team,\napplies the missing labels and writes a triage report.",
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.Version = version
}

// loadConfig reads configuration and points logging at stderr so stdout
// stays clean for command output.
func loadConfig(opts ...config.Option) (config.Config, error) {
	cfg, err := config.LoadConfig(opts...)
	if err != nil {
		return config.Config{}, err
	}
	if err := logging.Init(cfg.LogLevel, cfg.LogFormat, os.Stderr); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
