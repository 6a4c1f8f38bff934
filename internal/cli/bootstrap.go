// Package cli provides CLI commands for the sitetrack application.
package cli

import (
	gocontext "context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/sitetrack/internal/config"
	"github.com/example/sitetrack/internal/ctxutil"
	"github.com/example/sitetrack/internal/errs"
	"github.com/example/sitetrack/internal/version"
	"github.com/example/sitetrack/internal/wire"
)

// session carries the global flags and the lazily wired application for one
// invocation.
type session struct {
	configPath string
	actorID    string
	app        *wire.App
}

// Execute runs the command tree with args and returns the exit status.
// Errors are printed to stderr.
func Execute(args []string, stdout, stderr io.Writer) int {
	s := &session{}
	rootCmd := newRootCmd(s)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.Execute()
	if cerr := s.close(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(stderr, color.RedString("Error:"), err)
	}
	return ExitCode(err)
}

func newRootCmd(s *session) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "sitetrack",
		Short:   "sitetrack - construction workflow progress and alerts",
		Version: version.String(),
		Long: `sitetrack tracks construction projects through the phase, section and
line item workflow of each trade, and keeps the alerts for the
current work item in step with every advance and override.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&s.configPath, "config", "", "Config file (default ~/.sitetrack/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&s.actorID, "actor", os.Getenv("SITETRACK_ACTOR"), "User ID recorded on changes")

	rootCmd.AddCommand(initCmd(s))
	rootCmd.AddCommand(seedCmd(s))
	rootCmd.AddCommand(catalogCmd(s))
	rootCmd.AddCommand(projectCmd(s))
	rootCmd.AddCommand(workflowCmd(s))
	rootCmd.AddCommand(alertCmd(s))
	rootCmd.AddCommand(overrideCmd(s))
	rootCmd.AddCommand(schedulerCmd(s))
	return rootCmd
}

// NewContext creates a context carrying the --actor value.
func (s *session) NewContext() gocontext.Context {
	ctx := gocontext.Background()
	if s.actorID != "" {
		return ctxutil.WithActorID(ctx, s.actorID)
	}
	return ctx
}

// services loads config and wires the application on first use.
func (s *session) services(cmd *cobra.Command) (*wire.App, error) {
	if s.app != nil {
		return s.app, nil
	}
	cfg, err := config.Load(s.configPath)
	if err != nil {
		return nil, errs.Wrap(errs.KindValidation, err, "load config")
	}
	a, err := wire.New(cmd.Context(), cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("failed to start: %w", err)
	}
	s.app = a
	return a, nil
}

func (s *session) close() error {
	if s.app == nil {
		return nil
	}
	err := s.app.Close(gocontext.Background())
	s.app = nil
	return err
}

// ExitCode maps a command error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return errs.ExitCode(errs.KindOf(err))
}
