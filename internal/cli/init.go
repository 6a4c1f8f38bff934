package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/sitetrack/internal/config"
	"github.com/example/sitetrack/internal/db"
)

func initCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the sitetrack config and database",
		Long: `Write a default config file (unless one exists), create the database
schema and seed the stock workflow catalog.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			path := s.configPath
			if path == "" {
				p, err := config.DefaultPath()
				if err != nil {
					return fmt.Errorf("failed to get config path: %w", err)
				}
				path = p
			}

			_, err := os.Stat(path)
			switch {
			case err == nil:
				fmt.Fprintf(out, "Config already exists at %s\n", path)
			case errors.Is(err, os.ErrNotExist):
				if err := config.WriteDefault(path); err != nil {
					return err
				}
				fmt.Fprintf(out, "✓ Wrote default config to %s\n", path)
			default:
				return fmt.Errorf("failed to check config: %w", err)
			}

			s.configPath = path
			a, err := s.services(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Database ready at %s\n", a.Config.DB.Path)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Next steps:")
			fmt.Fprintln(out, "  sitetrack catalog trades")
			fmt.Fprintln(out, "  sitetrack project create --name \"Main St\" --manager mgr-1 --trade ROOFING")
			return nil
		},
	}
}

func seedCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed the stock workflow catalog",
		Long:  "Insert the stock phases, sections and line items. Existing rows are left untouched.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.services(cmd)
			if err != nil {
				return err
			}
			if err := db.SeedCatalog(a.DB, db.DefaultCatalog()); err != nil {
				return fmt.Errorf("failed to seed catalog: %w", err)
			}
			if c, ok := a.Catalog.(interface{ Invalidate() }); ok {
				c.Invalidate()
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Catalog seeded")
			return nil
		},
	}
}
