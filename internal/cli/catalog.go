package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/sitetrack/internal/core/template"
)

func catalogCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the workflow catalog",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "trades",
		Short: "List trades with an active template",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.services(cmd)
			if err != nil {
				return err
			}
			trades, err := a.Catalog.ListTradeTypes(s.NewContext())
			if err != nil {
				return fmt.Errorf("failed to list trades: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(trades) == 0 {
				fmt.Fprintln(out, "No trades found. Run 'sitetrack seed' first.")
				return nil
			}
			for _, trade := range trades {
				fmt.Fprintln(out, trade)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show [trade]",
		Short: "Show a trade's ordered workflow template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.services(cmd)
			if err != nil {
				return err
			}
			tpl, err := a.Catalog.GetTemplate(s.NewContext(), strings.ToUpper(args[0]))
			if err != nil {
				return fmt.Errorf("failed to get template: %w", err)
			}
			printTemplate(cmd.OutOrStdout(), tpl)
			return nil
		},
	})
	return cmd
}

func printTemplate(out io.Writer, tpl *template.Template) {
	fmt.Fprintf(out, "Template: %s (%d line items)\n", tpl.TradeType, tpl.Count())
	for _, phase := range tpl.Phases {
		fmt.Fprintf(out, "\n%s %s\n", color.New(color.FgHiMagenta).Sprintf("%-18s", phase.Type), phase.Name)
		for _, section := range phase.Sections {
			fmt.Fprintf(out, "  %s\n", color.New(color.FgCyan).Sprint(section.Name))
			for _, id := range section.ItemIDs {
				printItem(out, tpl, id)
			}
		}
	}
}

func printItem(out io.Writer, tpl *template.Template, id string) {
	item, ok := tpl.Item(id)
	if !ok {
		return
	}
	indent := strings.Repeat("  ", item.Depth+2)
	fmt.Fprintf(out, "%s%s %s", indent, item.ID, item.Name)
	if item.ResponsibleRole != "" {
		fmt.Fprintf(out, " [%s]", item.ResponsibleRole)
	}
	fmt.Fprintln(out)
	for _, child := range item.ChildIDs {
		printItem(out, tpl, child)
	}
}
