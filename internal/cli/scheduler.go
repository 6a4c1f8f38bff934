package cli

import (
	gocontext "context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/example/sitetrack/internal/ports/primary"
	"github.com/example/sitetrack/internal/ports/secondary"
)

func schedulerCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scheduler",
		Short: "Escalate overdue alerts",
	}
	cmd.AddCommand(schedulerRunCmd(s))
	cmd.AddCommand(schedulerServeCmd(s))
	return cmd
}

func schedulerRunCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one escalation pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.services(cmd)
			if err != nil {
				return err
			}
			report, err := a.Scheduler.RunOnce(s.NewContext())
			if report != nil {
				printReport(cmd.OutOrStdout(), report)
			}
			if err != nil {
				return fmt.Errorf("escalation run failed: %w", err)
			}
			return nil
		},
	}
}

func printReport(out io.Writer, r *primary.EscalationReport) {
	fmt.Fprintf(out, "Scanned %d overdue alert(s)\n", r.Scanned)
	fmt.Fprintf(out, "  Escalated: %d\n", r.Escalated)
	fmt.Fprintf(out, "  Manager notices: %d\n", r.ManagerAlerts)
	fmt.Fprintf(out, "  Purged: %d\n", r.Purged)
	for _, id := range r.EscalatedIDs {
		fmt.Fprintf(out, "  - %s\n", id)
	}
}

func schedulerServeCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the escalation loop until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			follow, _ := cmd.Flags().GetBool("follow")
			a, err := s.services(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(s.NewContext(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a.Scheduler, a.Hub, follow, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolP("follow", "f", false, "Print workflow events as they happen")
	return cmd
}

// eventSource is the subset of the realtime hub serve needs.
type eventSource interface {
	Subscribe(ctx gocontext.Context, projectID string) <-chan secondary.Event
}

func serve(ctx gocontext.Context, scheduler primary.EscalationScheduler, hub eventSource, follow bool, out io.Writer) error {
	g, ctx := errgroup.WithContext(ctx)

	if err := scheduler.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintln(out, "Escalation scheduler running. Press Ctrl-C to stop.")

	g.Go(func() error {
		<-ctx.Done()
		scheduler.Stop()
		return nil
	})
	if follow {
		events := hub.Subscribe(ctx, "")
		g.Go(func() error {
			for ev := range events {
				fmt.Fprintf(out, "%s %s %s\n", formatTime(ev.Timestamp), ev.Type, ev.ProjectID)
			}
			return nil
		})
	}

	err := g.Wait()
	fmt.Fprintln(out, "Scheduler stopped.")
	return err
}
