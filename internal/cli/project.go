package cli

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/example/sitetrack/internal/ports/primary"
)

func projectCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects and their trades",
	}
	cmd.AddCommand(projectCreateCmd(s))
	cmd.AddCommand(projectListCmd(s))
	cmd.AddCommand(projectShowCmd(s))
	cmd.AddCommand(projectAddTradeCmd(s))
	cmd.AddCommand(projectAssignCmd(s))
	cmd.AddCommand(projectAuditCmd(s))
	return cmd
}

func projectCreateCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project and start its main trade",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			manager, _ := cmd.Flags().GetString("manager")
			trade, _ := cmd.Flags().GetString("trade")
			roles, _ := cmd.Flags().GetStringToString("role")

			a, err := s.services(cmd)
			if err != nil {
				return err
			}
			resp, err := a.Projects.CreateProject(s.NewContext(), primary.CreateProjectRequest{
				Name:      name,
				ManagerID: manager,
				MainTrade: strings.ToUpper(trade),
				Roles:     roles,
			})
			if err != nil {
				return fmt.Errorf("failed to create project: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Created project %s: %s\n", resp.Project.ID, resp.Project.Name)
			fmt.Fprintf(out, "  Main trade: %s (%s)\n", resp.Workflow.TradeType, resp.Workflow.TrackerID)
			if pos := resp.Workflow.Position; pos != nil {
				fmt.Fprintf(out, "  Current item: %s %s\n", orDash(pos.LineItemID), pos.LineItemName)
			}
			if resp.Alert != nil {
				fmt.Fprintf(out, "  Alert: %s assigned to %s\n", resp.Alert.ID, orDash(resp.Alert.AssignedTo))
			}
			return nil
		},
	}
	cmd.Flags().StringP("name", "n", "", "Project name (required)")
	cmd.Flags().StringP("manager", "m", "", "Responsible manager user ID (required)")
	cmd.Flags().StringP("trade", "t", "", "Main trade type (required)")
	cmd.Flags().StringToString("role", nil, "Role assignment, e.g. --role sales_rep=user-3")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("manager")
	cmd.MarkFlagRequired("trade")
	return cmd
}

func projectListCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.services(cmd)
			if err != nil {
				return err
			}
			projects, err := a.Projects.ListProjects(s.NewContext())
			if err != nil {
				return fmt.Errorf("failed to list projects: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(projects) == 0 {
				fmt.Fprintln(out, "No projects found.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tMANAGER\tPHASE\tCREATED")
			fmt.Fprintln(w, "--\t----\t-------\t-----\t-------")
			for _, p := range projects {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Name, p.ManagerID, orDash(p.DisplayedPhaseName), formatTime(p.CreatedAt))
			}
			return w.Flush()
		},
	}
}

func projectShowCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "show [project-id]",
		Short: "Show a project with its trades and phase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.services(cmd)
			if err != nil {
				return err
			}
			ctx := s.NewContext()
			project, err := a.Projects.GetProject(ctx, args[0])
			if err != nil {
				return fmt.Errorf("project not found: %w", err)
			}
			position, err := a.Query.GetProjectPosition(ctx, project.ID)
			if err != nil {
				return fmt.Errorf("failed to get position: %w", err)
			}
			workflows, err := a.Query.ListWorkflowsForProject(ctx, project.ID)
			if err != nil {
				return fmt.Errorf("failed to list workflows: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Project: %s (%s)\n", project.Name, project.ID)
			fmt.Fprintf(out, "Manager: %s\n", project.ManagerID)
			fmt.Fprintf(out, "Phase: %s\n", orDash(position.EffectivePhaseName))
			if o := position.ActiveOverride; o != nil {
				fmt.Fprintf(out, "Override: %s (%s -> %s) by %s\n", o.ID, o.FromPhaseType, o.ToPhaseType, o.CreatedBy)
			}
			if len(project.Roles) > 0 {
				roles := make([]string, 0, len(project.Roles))
				for role := range project.Roles {
					roles = append(roles, role)
				}
				sort.Strings(roles)
				fmt.Fprintln(out, "Roles:")
				for _, role := range roles {
					fmt.Fprintf(out, "  %s: %s\n", role, project.Roles[role])
				}
			}
			fmt.Fprintln(out)
			printWorkflows(out, workflows)
			return nil
		},
	}
}

func projectAddTradeCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "add-trade [project-id] [trade]",
		Short: "Start an additional trade workflow",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.services(cmd)
			if err != nil {
				return err
			}
			wf, err := a.Projects.AddTrade(s.NewContext(), args[0], strings.ToUpper(args[1]))
			if err != nil {
				return fmt.Errorf("failed to add trade: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Added trade %s (%s) to %s\n", wf.TradeType, wf.TrackerID, args[0])
			return nil
		},
	}
}

func projectAssignCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "assign [project-id] [role] [user-id]",
		Short: "Assign a user to a project role",
		Long:  "Assign a user to a project role. Only alerts created afterwards are affected.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.services(cmd)
			if err != nil {
				return err
			}
			if err := a.Projects.AssignRole(s.NewContext(), args[0], args[1], args[2]); err != nil {
				return fmt.Errorf("failed to assign role: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Assigned %s as %s on %s\n", args[2], args[1], args[0])
			return nil
		},
	}
}

func projectAuditCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "audit [project-id]",
		Short: "Show the project's audit log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.services(cmd)
			if err != nil {
				return err
			}
			entries, err := a.Query.ListAuditEntries(s.NewContext(), args[0])
			if err != nil {
				return fmt.Errorf("failed to list audit entries: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No audit entries.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tEVENT\tACTOR\tFROM\tTO\tOVERRIDE")
			fmt.Fprintln(w, "----\t-----\t-----\t----\t--\t--------")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					formatTime(e.CreatedAt),
					e.EventType,
					orDash(e.ActorID),
					orDash(e.FromPhaseID),
					orDash(e.ToPhaseID),
					orDash(e.OverrideID),
				)
			}
			return w.Flush()
		},
	}
}
