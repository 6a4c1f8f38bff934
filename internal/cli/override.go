package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/sitetrack/internal/ports/primary"
)

func overrideCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "override",
		Short: "Manually jump a project's phase",
	}
	cmd.AddCommand(overrideSetCmd(s))
	cmd.AddCommand(overrideRevertCmd(s))
	cmd.AddCommand(overrideListCmd(s))
	return cmd
}

func overrideSetCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set [project-id] [phase]",
		Short: "Override the project's phase (phase ID or type, e.g. COMPLETION)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reason, _ := cmd.Flags().GetString("reason")
			a, err := s.services(cmd)
			if err != nil {
				return err
			}
			o, err := a.Overrides.Override(s.NewContext(), primary.OverrideRequest{
				ProjectID: args[0],
				ToPhase:   args[1],
				Reason:    reason,
			})
			if err != nil {
				return fmt.Errorf("failed to override phase: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Override %s: %s -> %s\n", o.ID, o.FromPhaseType, o.ToPhaseType)
			if len(o.SuppressAlertsFor) > 0 {
				fmt.Fprintf(out, "  Suppressing phases: %s\n", strings.Join(o.SuppressAlertsFor, ", "))
			}
			fmt.Fprintf(out, "  Suppressed alerts: %d\n", o.SuppressedAlerts)
			return nil
		},
	}
	cmd.Flags().StringP("reason", "r", "", "Why the phase is being overridden")
	return cmd
}

func overrideRevertCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "revert [project-id] [override-id]",
		Short: "Revert an active override",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.services(cmd)
			if err != nil {
				return err
			}
			o, err := a.Overrides.Revert(s.NewContext(), primary.RevertRequest{
				ProjectID:  args[0],
				OverrideID: args[1],
			})
			if err != nil {
				return fmt.Errorf("failed to revert override: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Reverted %s, phase restored to %s\n", o.ID, o.FromPhaseType)
			return nil
		},
	}
}

func overrideListCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "list [project-id]",
		Short: "List a project's overrides, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.services(cmd)
			if err != nil {
				return err
			}
			overrides, err := a.Overrides.ListOverrides(s.NewContext(), args[0])
			if err != nil {
				return fmt.Errorf("failed to list overrides: %w", err)
			}
			printOverrides(cmd.OutOrStdout(), overrides)
			return nil
		},
	}
}

func printOverrides(out io.Writer, overrides []*primary.PhaseOverride) {
	if len(overrides) == 0 {
		fmt.Fprintln(out, "No overrides.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFROM\tTO\tSTATE\tBY\tCREATED\tREASON")
	fmt.Fprintln(w, "--\t----\t--\t-----\t--\t-------\t------")
	for _, o := range overrides {
		state := color.New(color.FgHiBlack).Sprint("reverted")
		if o.IsActive {
			state = color.New(color.FgYellow).Sprint("active")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			o.ID, o.FromPhaseType, o.ToPhaseType, state, o.CreatedBy, formatTime(o.CreatedAt), orDash(o.Reason))
	}
	w.Flush()
}
