package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/bashhack/gitbackfill/internal/config"
	"github.com/bashhack/gitbackfill/internal/errors"
)

const rootLong = `gitbackfill fills a git repository with a plausible, backdated commit
history. Each scheduled entry edits one file from a catalog and commits it
with the entry's date as both author and committer date.

Configuration precedence (highest to lowest):
1. CLI flags
2. Environment variables (GITBACKFILL_*)
3. Config file (--config, <repo>/.gitbackfill.yaml, ~/.config/gitbackfill/config.yaml)
4. Default values

EXAMPLES:
  # 120 days of day-cadence history in the current repository
  gitbackfill

  # Twenty weeks of weekly history, no prompt
  gitbackfill --mode week --yes

  # Preview a reproducible schedule, then create it
  gitbackfill plan --seed 42 --window-days 30
  gitbackfill --seed 42 --window-days 30

  # Recent runs recorded for this repository
  gitbackfill history`

// newRootCmd builds the command tree. Every command resolves its own
// configuration from the parsed flags and builds an App from opts.
func newRootCmd(opts AppOptions) *cobra.Command {
	newApp := func(cmd *cobra.Command) (*App, error) {
		cfg, err := config.Load(cmd.Flags())
		if err != nil {
			return nil, err
		}
		o := opts
		o.Config = cfg
		o.Stdout = cmd.OutOrStdout()
		o.Stderr = cmd.ErrOrStderr()
		return NewApp(o), nil
	}

	runE := func(cmd *cobra.Command, _ []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		return app.Run(cmd.Context())
	}

	root := &cobra.Command{
		Use:           "gitbackfill",
		Short:         "Generate a backdated commit history",
		Long:          rootLong,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runE,
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Create the backdated commits (default command)",
		Args:  cobra.NoArgs,
		RunE:  runE,
	})

	root.AddCommand(&cobra.Command{
		Use:   "plan",
		Short: "Print the schedule without touching the repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}
			return app.Plan()
		},
	})

	var limit int
	var all bool
	var runID int64
	history := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}
			return app.History(cmd.Context(), runID, limit, all)
		},
	}
	history.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show")
	history.Flags().BoolVar(&all, "all", false, "Show runs of every repository")
	history.Flags().Int64Var(&runID, "run", 0, "Show the entries of one run")
	root.AddCommand(history)

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			app := NewApp(AppOptions{Config: config.New(), Version: opts.Version, Stdout: cmd.OutOrStdout()})
			app.ShowVersion()
		},
	})

	return root
}

// execute runs the command line and returns the process exit code.
func execute(ctx context.Context, args []string, opts AppOptions, stdout, stderr io.Writer) int {
	root := newRootCmd(opts)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, errors.ErrAborted) {
			_, _ = fmt.Fprintln(stderr, "Aborted.")
			return 1
		}
		_, _ = fmt.Fprintf(stderr, "❌ Error: %v\n", err)
		if hint := errors.Hint(err); hint != "" {
			_, _ = fmt.Fprintf(stderr, "💡 %s\n", hint)
		}
		return 1
	}
	return 0
}
