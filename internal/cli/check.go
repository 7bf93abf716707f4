package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/sprite-ai/repolens/internal/app"
	"github.com/sprite-ai/repolens/internal/model"
	"github.com/sprite-ai/repolens/internal/render"
)

var checkCmd = &cobra.Command{
	Use:   "check [path]",
	Short: "Run a review and print a report (non-interactive)",
	Long: `Scan, graph and review the repository at path without the TUI and
write the result as a report. Useful for CI and for piping into other tools.

Exit codes:
  0  review complete
  1  the run ended in an error`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringP("format", "f", "text", "output format: text, markdown, json, html")
	checkCmd.Flags().StringP("output", "o", "", "write the report to a file instead of stdout")
	checkCmd.Flags().BoolP("quiet", "q", false, "do not print progress to stderr")
}

func runCheck(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	f, err := render.ParseFormat(format)
	if err != nil {
		return err
	}
	root, err := resolveRoot(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	pipeline, err := newPipeline(cfg, newClient(cfg))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	session := app.NewSession(cfg.Model, cfg.ReviewMode())
	quiet, _ := cmd.Flags().GetBool("quiet")
	if !quiet {
		done := printProgress(cmd.ErrOrStderr(), session)
		defer done()
	}

	if err := runHeadless(ctx, pipeline, session, root); err != nil {
		return err
	}

	st := session.Snapshot()
	report := render.Report{Status: st.Status, Context: st.Context, Output: st.Output}

	var w io.Writer = cmd.OutOrStdout()
	if path, _ := cmd.Flags().GetString("output"); path != "" {
		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating report file: %w", err)
		}
		defer file.Close()
		w = file
	}
	if err := render.Write(w, f, report); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	if st.Status.Status == model.StatusError {
		return fmt.Errorf("review failed: %s", st.Status.Message)
	}
	return nil
}

// runHeadless drives one run to completion. A failed run is not an error
// here; its message lives in the session and ends up in the report.
func runHeadless(ctx context.Context, p *app.Pipeline, s *app.Session, root string) error {
	err := p.Run(ctx, s, root)
	if err == nil || s.Snapshot().Status.Status.Terminal() {
		return nil
	}
	if errors.Is(err, app.ErrStaleRun) {
		return errors.New("review interrupted")
	}
	return err
}

// printProgress writes each status change to w until the returned func is
// called.
func printProgress(w io.Writer, s *app.Session) func() {
	updates, unsubscribe := s.Subscribe()
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		var last model.Status = -1
		for st := range updates {
			if st.Status.Status == last {
				continue
			}
			last = st.Status.Status
			fmt.Fprintln(w, st.Status.String())
		}
	}()
	return func() {
		unsubscribe()
		<-finished
	}
}
