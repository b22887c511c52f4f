package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/specialistvlad/ptm/internal/app"
	"github.com/specialistvlad/ptm/internal/artifact"
	"github.com/specialistvlad/ptm/internal/buildinfo"
	"github.com/specialistvlad/ptm/internal/ctxlog"
	"github.com/specialistvlad/ptm/internal/matrix"
)

func newGenerateCommand(opts *rootOptions) *cobra.Command {
	var (
		filter matrix.Filter
		force  bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write the descriptor and locked requirements of every selected run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp()
			if err != nil {
				return err
			}
			res, err := a.Generate(cmd.Context(), app.GenerateOptions{Filter: filter, Force: force})
			if res != nil {
				out := cmd.OutOrStdout()
				for _, run := range res.Generated {
					fmt.Fprintf(out, "generated   %s\n", run)
				}
				for _, run := range res.UpToDate {
					fmt.Fprintf(out, "up-to-date  %s\n", run)
				}
				for _, run := range res.Ineligible {
					fmt.Fprintf(out, "skipped     %s\n", run)
				}
				for _, id := range res.Pruned {
					fmt.Fprintf(out, "pruned      [%s]\n", id)
				}
			}
			if err != nil {
				return exitError(err)
			}
			return nil
		},
	}
	filterFlags(cmd, &filter)
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Regenerate runs that are already generated")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", app.DefaultWorkers, "Number of runs generated concurrently")
	return cmd
}

func newListCommand(opts *rootOptions) *cobra.Command {
	var (
		filter matrix.Filter
		format string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the runs of the matrix",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp()
			if err != nil {
				return err
			}
			infos, err := a.List(cmd.Context(), filter)
			if err != nil {
				return exitError(err)
			}
			if err := app.Render(cmd.OutOrStdout(), infos, format); err != nil {
				return &ExitError{Code: ExitUsage, Message: err.Error()}
			}
			return nil
		},
	}
	filterFlags(cmd, &filter)
	cmd.Flags().StringVarP(&format, "output", "o", app.FormatText, "Output format. Options: 'text', 'json' or 'yaml'.")
	return cmd
}

func newRunCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <id> [--] <command> [args...]",
		Short: "Execute a command inside the environment of a run",
		Long: `Execute a command inside the environment of a run. The run is generated
first if needed, then bootstrapped by the driver; the command inherits the
run's descriptor variables. ptm exits with the command's exit code.`,
		Args: cobra.MinimumNArgs(2),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveDefault
			}
			a, err := opts.newApp()
			if err != nil {
				return nil, cobra.ShellCompDirectiveError
			}
			return a.Project().Complete(toComplete), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Parsing stops at the id, so an explicit "--" is still in args.
			argv := args[1:]
			if argv[0] == "--" {
				argv = argv[1:]
			}
			if len(argv) == 0 {
				return &ExitError{Code: ExitUsage, Message: "run needs a command to execute"}
			}
			a, err := opts.newApp()
			if err != nil {
				return err
			}
			code, err := a.Exec(cmd.Context(), args[0], argv, app.Stdio{
				In:  cmd.InOrStdin(),
				Out: cmd.OutOrStdout(),
				Err: cmd.ErrOrStderr(),
			})
			var unknown *app.UnknownRunError
			if errors.As(err, &unknown) {
				return &ExitError{Code: ExitUsage, Message: err.Error()}
			}
			if err != nil {
				return exitError(err)
			}
			if code != 0 {
				return &ExitError{Code: code}
			}
			return nil
		},
	}
	// Flags after the run id belong to the command.
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func newCheckCommand(opts *rootOptions) *cobra.Command {
	var descriptor string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify that the interpreter and installed packages match the current run",
		Long: `Verify that the interpreter and installed packages match the run described
by the PTM_PYTHON and PTM_CONSTRAINTS variables, or by the given descriptor.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := app.NewLogger(opts.logLevel, opts.logFormat, cmd.ErrOrStderr())
			ctx := ctxlog.WithLogger(cmd.Context(), logger)

			vars := map[string]string{
				matrix.EnvName:        os.Getenv(matrix.EnvName),
				matrix.EnvPython:      os.Getenv(matrix.EnvPython),
				matrix.EnvConstraints: os.Getenv(matrix.EnvConstraints),
			}
			if descriptor != "" {
				read, err := artifact.ReadEnvFile(descriptor)
				if err != nil {
					return &ExitError{Code: ExitUsage, Message: err.Error()}
				}
				vars = read
			}

			err := app.Check(ctx, vars, app.PythonInspector(opts.python))
			if errors.Is(err, app.ErrNotInRun) {
				return &ExitError{Code: ExitUsage, Message: err.Error()}
			}
			if err != nil {
				return exitError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: python %s matches %s\n", vars[matrix.EnvPython], vars[matrix.EnvConstraints])
			return nil
		},
	}
	cmd.Flags().StringVar(&descriptor, "descriptor", "", "Read the run from this .env descriptor instead of the environment")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the ptm version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ptm %s\n", buildinfo.Version)
		},
	}
}
