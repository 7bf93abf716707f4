package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/sprite-ai/repolens/internal/app"
	"github.com/sprite-ai/repolens/internal/logging"
	"github.com/sprite-ai/repolens/internal/tui"
)

var reviewCmd = &cobra.Command{
	Use:   "review [path]",
	Short: "Open an interactive review session",
	Long: `Open a TUI that scans the repository at path (default: the current
directory), shows its file and dependency statistics and streams the
model's review once it arrives.

Keys: r re-runs the review, m cycles installed models, ? shows help.

Examples:
  repolens review                      # review the working directory
  repolens review ../service --mode calm
  repolens review --model qwen2.5-coder`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReview,
}

func init() {
	reviewCmd.Flags().String("log-file", "", "write logs here while the TUI is open (default is the user state dir)")
}

func runReview(cmd *cobra.Command, args []string) error {
	root, err := resolveRoot(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	client := newClient(cfg)
	pipeline, err := newPipeline(cfg, client)
	if err != nil {
		return err
	}

	// The TUI owns the terminal; logs go to a file instead.
	restore := redirectLogs(cmd)
	defer restore()

	session := app.NewSession(cfg.Model, cfg.ReviewMode())
	if err := tui.Run(session, pipeline, client, root); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}

func redirectLogs(cmd *cobra.Command) func() {
	path, _ := cmd.Flags().GetString("log-file")
	if path == "" {
		p, err := logging.DefaultLogPath()
		if err != nil {
			return logging.Discard()
		}
		path = p
	}
	restore, err := logging.ToFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logging disabled: %v\n", err)
		return logging.Discard()
	}
	return restore
}
