package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/sitetrack/internal/ports/primary"
)

func alertCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alert",
		Short: "Inspect and manage alerts",
	}
	cmd.AddCommand(alertListCmd(s))
	cmd.AddCommand(alertShowCmd(s))
	cmd.AddCommand(alertOverdueCmd(s))
	cmd.AddCommand(alertSuppressedCmd(s))
	cmd.AddCommand(alertRetireCmd(s))
	cmd.AddCommand(alertEnsureCmd(s))
	return cmd
}

func alertListCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			project, _ := cmd.Flags().GetString("project")
			tracker, _ := cmd.Flags().GetString("tracker")
			status, _ := cmd.Flags().GetString("status")
			kind, _ := cmd.Flags().GetString("kind")
			priority, _ := cmd.Flags().GetString("priority")
			assigned, _ := cmd.Flags().GetString("assigned")

			a, err := s.services(cmd)
			if err != nil {
				return err
			}
			alerts, err := a.Alerts.ListAlerts(s.NewContext(), primary.AlertFilters{
				ProjectID:  project,
				TrackerID:  tracker,
				Status:     strings.ToUpper(status),
				Kind:       strings.ToUpper(kind),
				Priority:   strings.ToUpper(priority),
				AssignedTo: assigned,
			})
			if err != nil {
				return fmt.Errorf("failed to list alerts: %w", err)
			}
			printAlerts(cmd.OutOrStdout(), alerts, "No alerts found.")
			return nil
		},
	}
	cmd.Flags().StringP("project", "p", "", "Filter by project")
	cmd.Flags().String("tracker", "", "Filter by tracker")
	cmd.Flags().StringP("status", "s", "", "Filter by status (active, completed)")
	cmd.Flags().String("kind", "", "Filter by kind (line_item, escalation)")
	cmd.Flags().String("priority", "", "Filter by priority (low, medium, high)")
	cmd.Flags().String("assigned", "", "Filter by assignee")
	return cmd
}

func printAlerts(out io.Writer, alerts []*primary.Alert, empty string) {
	if len(alerts) == 0 {
		fmt.Fprintln(out, empty)
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPROJECT\tSTATUS\tPRIORITY\tASSIGNED\tDUE\tTITLE")
	fmt.Fprintln(w, "--\t-------\t------\t--------\t--------\t---\t-----")
	for _, al := range alerts {
		title := al.Title
		if al.SuppressedByOverrideID != "" {
			title += color.New(color.FgHiBlack).Sprintf(" (suppressed by %s)", al.SuppressedByOverrideID)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			al.ID,
			al.ProjectID,
			colorizeAlertStatus(al.Status),
			colorizePriority(al.Priority),
			orDash(al.AssignedTo),
			formatDue(al),
			title,
		)
	}
	w.Flush()
}

func alertShowCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "show [alert-id]",
		Short: "Show alert details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.services(cmd)
			if err != nil {
				return err
			}
			al, err := a.Alerts.GetAlert(s.NewContext(), args[0])
			if err != nil {
				return fmt.Errorf("alert not found: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Alert: %s %s\n", al.ID, colorizeAlertStatus(al.Status))
			fmt.Fprintf(out, "Title: %s\n", al.Title)
			fmt.Fprintf(out, "Kind: %s\n", al.Kind)
			fmt.Fprintf(out, "Project: %s\n", al.ProjectID)
			fmt.Fprintf(out, "Tracker: %s\n", al.TrackerID)
			fmt.Fprintf(out, "Phase: %s\n", orDash(al.PhaseName))
			fmt.Fprintf(out, "Section: %s\n", orDash(al.SectionName))
			fmt.Fprintf(out, "Line item: %s %s\n", orDash(al.LineItemID), al.LineItemName)
			fmt.Fprintf(out, "Priority: %s", colorizePriority(al.Priority))
			if al.PreviousPriority != "" {
				fmt.Fprintf(out, " (was %s)", al.PreviousPriority)
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "Assigned: %s\n", orDash(al.AssignedTo))
			fmt.Fprintf(out, "Due: %s", formatTime(al.DueDate))
			if al.Overdue {
				fmt.Fprint(out, color.RedString(" (overdue)"))
			}
			fmt.Fprintln(out)
			if al.EscalatedAt != nil {
				fmt.Fprintf(out, "Escalated: %s\n", formatTime(*al.EscalatedAt))
			}
			if al.CompletedAt != nil {
				fmt.Fprintf(out, "Completed: %s\n", formatTime(*al.CompletedAt))
			}
			if al.SuppressedByOverrideID != "" {
				fmt.Fprintf(out, "Suppressed by: %s\n", al.SuppressedByOverrideID)
			}
			if al.OriginalAlertID != "" {
				fmt.Fprintf(out, "Escalates: %s\n", al.OriginalAlertID)
			}
			if len(al.Metadata) > 0 {
				keys := make([]string, 0, len(al.Metadata))
				for k := range al.Metadata {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				fmt.Fprintln(out, "Metadata:")
				for _, k := range keys {
					fmt.Fprintf(out, "  %s: %s\n", k, al.Metadata[k])
				}
			}
			return nil
		},
	}
}

func alertOverdueCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "overdue",
		Short: "List active, unsuppressed alerts past their due date",
		RunE: func(cmd *cobra.Command, args []string) error {
			project, _ := cmd.Flags().GetString("project")
			a, err := s.services(cmd)
			if err != nil {
				return err
			}
			alerts, err := a.Query.ListOverdueAlerts(s.NewContext(), project)
			if err != nil {
				return fmt.Errorf("failed to list overdue alerts: %w", err)
			}
			printAlerts(cmd.OutOrStdout(), alerts, "No overdue alerts.")
			return nil
		},
	}
	cmd.Flags().StringP("project", "p", "", "Limit to one project")
	return cmd
}

func alertSuppressedCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "suppressed [project-id]",
		Short: "List alerts suppressed by phase overrides",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.services(cmd)
			if err != nil {
				return err
			}
			alerts, err := a.Query.ListSuppressedAlerts(s.NewContext(), args[0])
			if err != nil {
				return fmt.Errorf("failed to list suppressed alerts: %w", err)
			}
			printAlerts(cmd.OutOrStdout(), alerts, "No suppressed alerts.")
			return nil
		},
	}
}

func alertRetireCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retire [alert-id]",
		Short: "Mark an alert completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reason, _ := cmd.Flags().GetString("reason")
			a, err := s.services(cmd)
			if err != nil {
				return err
			}
			if err := a.Alerts.RetireAlert(s.NewContext(), args[0], reason); err != nil {
				return fmt.Errorf("failed to retire alert: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Retired alert %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringP("reason", "r", "manual", "Reason recorded in the log")
	return cmd
}

func alertEnsureCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "ensure [tracker-id]",
		Short: "Create the alert for a tracker's current item if missing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.services(cmd)
			if err != nil {
				return err
			}
			al, created, err := a.Alerts.EnsureAlertForCurrentItem(s.NewContext(), args[0])
			if err != nil {
				return fmt.Errorf("failed to ensure alert: %w", err)
			}

			out := cmd.OutOrStdout()
			switch {
			case al == nil:
				fmt.Fprintln(out, "Workflow complete, no alert needed")
			case created:
				fmt.Fprintf(out, "✓ Created alert %s: %s\n", al.ID, al.Title)
			default:
				fmt.Fprintf(out, "Alert %s already active: %s\n", al.ID, al.Title)
			}
			return nil
		},
	}
}

func formatDue(al *primary.Alert) string {
	if al.Overdue {
		return color.RedString(formatTime(al.DueDate))
	}
	return formatTime(al.DueDate)
}
