package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/sitetrack/internal/ports/primary"
)

func workflowCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Track and advance trade workflows",
	}
	cmd.AddCommand(workflowListCmd(s))
	cmd.AddCommand(workflowPositionCmd(s))
	cmd.AddCommand(workflowAdvanceCmd(s))
	cmd.AddCommand(workflowProgressCmd(s))
	cmd.AddCommand(workflowHistoryCmd(s))
	return cmd
}

func workflowListCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "list [project-id]",
		Short: "List a project's trade workflows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.services(cmd)
			if err != nil {
				return err
			}
			workflows, err := a.Query.ListWorkflowsForProject(s.NewContext(), args[0])
			if err != nil {
				return fmt.Errorf("failed to list workflows: %w", err)
			}
			printWorkflows(cmd.OutOrStdout(), workflows)
			return nil
		},
	}
}

func printWorkflows(out io.Writer, workflows []*primary.Workflow) {
	if len(workflows) == 0 {
		fmt.Fprintln(out, "No workflows found.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TRACKER\tTRADE\tMAIN\tPHASE\tCURRENT ITEM\tPROGRESS")
	fmt.Fprintln(w, "-------\t-----\t----\t-----\t------------\t--------")
	for _, wf := range workflows {
		phase, item := "-", "-"
		if p := wf.Position; p != nil {
			phase = orDash(p.PhaseName)
			item = orDash(p.LineItemName)
			if p.Completed {
				item = color.New(color.FgHiGreen).Sprint("complete")
			}
		}
		percent := 0
		if wf.Progress != nil {
			percent = wf.Progress.Percent
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d%%\n", wf.TrackerID, wf.TradeType, mainMarker(wf.IsMain), phase, item, percent)
	}
	w.Flush()
}

func workflowPositionCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "position [project-id]",
		Short: "Show the project's main position and effective phase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.services(cmd)
			if err != nil {
				return err
			}
			pos, err := a.Query.GetProjectPosition(s.NewContext(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get position: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Project: %s\n", pos.ProjectID)
			fmt.Fprintf(out, "Effective phase: %s (%s)\n", pos.EffectivePhaseName, pos.EffectivePhaseID)
			if pos.ActiveOverride != nil {
				fmt.Fprintf(out, "  %s\n", color.New(color.FgYellow).Sprintf("overridden by %s", pos.ActiveOverride.ID))
			}
			if m := pos.Main; m != nil {
				fmt.Fprintf(out, "Main tracker: %s (%s)\n", m.TrackerID, m.TradeType)
				fmt.Fprintf(out, "  Phase:   %s\n", m.PhaseName)
				fmt.Fprintf(out, "  Section: %s\n", orDash(m.SectionName))
				if m.Completed {
					fmt.Fprintln(out, "  Item:    complete")
				} else {
					fmt.Fprintf(out, "  Item:    %s %s\n", m.LineItemID, m.LineItemName)
				}
			}
			return nil
		},
	}
}

func workflowAdvanceCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "advance [tracker-id] [line-item-id]",
		Short: "Complete a line item and move the tracker forward",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			by, _ := cmd.Flags().GetString("by")
			a, err := s.services(cmd)
			if err != nil {
				return err
			}
			res, err := a.Workflows.AdvanceTracker(s.NewContext(), primary.AdvanceRequest{
				TrackerID:   args[0],
				LineItemID:  args[1],
				CompletedBy: by,
			})
			if err != nil {
				return fmt.Errorf("failed to advance: %w", err)
			}

			out := cmd.OutOrStdout()
			switch {
			case res.AlreadyCompleted:
				fmt.Fprintf(out, "%s was already completed\n", args[1])
			case res.WorkflowCompleted:
				fmt.Fprintf(out, "✓ Completed %s. %s\n", args[1], color.New(color.FgHiGreen).Sprint("Workflow complete."))
			default:
				fmt.Fprintf(out, "✓ Completed %s. Next: %s %s\n", args[1], res.Position.LineItemID, res.Position.LineItemName)
			}
			if res.AlertID != "" {
				fmt.Fprintf(out, "  Alert: %s\n", res.AlertID)
			}
			return nil
		},
	}
	cmd.Flags().String("by", "", "User completing the item (defaults to --actor)")
	return cmd
}

func workflowProgressCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "progress [project-id]",
		Short: "Show overall and per-trade completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.services(cmd)
			if err != nil {
				return err
			}
			overall, err := a.Progress.ComputeOverallProgress(s.NewContext(), args[0])
			if err != nil {
				return fmt.Errorf("failed to compute progress: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Overall: %s %d%% (%d trade(s))\n\n", progressBar(overall.Percent, 20), overall.Percent, overall.CountedTrades)
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			for _, tp := range overall.Trades {
				fmt.Fprintf(w, "%s\t%s\t%s %3d%%\t%d/%d\n",
					tp.TradeName, mainMarker(tp.IsMainTrade), progressBar(tp.Percent, 20), tp.Percent, tp.CompletedCount, tp.TotalCount)
			}
			return w.Flush()
		},
	}
}

func workflowHistoryCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "history [tracker-id]",
		Short: "List a tracker's completed line items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.services(cmd)
			if err != nil {
				return err
			}
			items, err := a.Workflows.ListCompletedItems(s.NewContext(), args[0])
			if err != nil {
				return fmt.Errorf("failed to list completions: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "Nothing completed yet.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ITEM\tNAME\tBY\tAT")
			fmt.Fprintln(w, "----\t----\t--\t--")
			for _, it := range items {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", it.LineItemID, it.LineItemName, orDash(it.CompletedBy), formatTime(it.CompletedAt))
			}
			return w.Flush()
		},
	}
}
