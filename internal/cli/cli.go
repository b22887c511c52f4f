package cli

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/specialistvlad/ptm/internal/app"
	"github.com/specialistvlad/ptm/internal/fsutil"
	"github.com/specialistvlad/ptm/internal/matrix"
	"github.com/specialistvlad/ptm/internal/registry"
)

// Exit codes.
const (
	ExitFailure = 1
	ExitUsage   = 2
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Streams are the process streams the commands read and write.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath   string
	logLevel     string
	logFormat    string
	workers      int
	fetchTimeout time.Duration
	python       string

	streams Streams
	modules []registry.Module
}

// NewRootCommand builds the ptm command tree. Driver modules default to
// the ones compiled into the binary.
func NewRootCommand(streams Streams, modules ...registry.Module) *cobra.Command {
	opts := &rootOptions{streams: streams, modules: modules}

	rootCmd := &cobra.Command{
		Use:   "ptm",
		Short: "ptm - expand a Python test matrix into isolated, reproducible runs",
		Long: `ptm reads the [tool.ptm] section of pyproject.toml (or a ptm.hcl file),
expands every matrix block into concrete runs and drives an environment
builder to generate, list and execute them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetIn(streams.In)
	rootCmd.SetOut(streams.Out)
	rootCmd.SetErr(streams.Err)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to pyproject.toml or ptm.hcl (default: discovered upwards from the working directory)")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	flags.StringVar(&opts.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	flags.DurationVar(&opts.fetchTimeout, "fetch-timeout", 30*time.Second, "Timeout for fetching remote environment definitions.")
	flags.StringVar(&opts.python, "python", "python3", "Interpreter used to evaluate markers and to check installations.")

	rootCmd.AddCommand(
		newGenerateCommand(opts),
		newListCommand(opts),
		newRunCommand(opts),
		newCheckCommand(opts),
		newVersionCommand(),
	)
	return rootCmd
}

// newApp builds the App for a subcommand.
func (o *rootOptions) newApp() (*app.App, error) {
	workDir, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := app.NewConfig(app.Config{
		ConfigPath:   o.configPath,
		WorkDir:      workDir,
		LogLevel:     o.logLevel,
		LogFormat:    o.logFormat,
		Workers:      o.workers,
		FetchTimeout: o.fetchTimeout,
		Python:       o.python,
	})
	if err != nil {
		return nil, &ExitError{Code: ExitUsage, Message: err.Error()}
	}
	a, err := app.NewApp(o.streams.Out, o.streams.Err, cfg, o.modules...)
	if err != nil {
		return nil, exitError(err)
	}
	return a, nil
}

// filterFlags binds --env and --tag to a matrix.Filter.
func filterFlags(cmd *cobra.Command, f *matrix.Filter) {
	cmd.Flags().StringSliceVarP(&f.Envs, "env", "e", nil, "Only environments with these names (repeatable)")
	cmd.Flags().StringSliceVarP(&f.Tags, "tag", "t", nil, "Only runs carrying any of these tags (repeatable)")
}

// exitError maps application errors to exit codes: problems with the
// configuration are usage errors, everything else is a failure.
func exitError(err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	if errors.Is(err, matrix.ErrConfiguration) || errors.Is(err, fsutil.ErrNotFound) {
		return &ExitError{Code: ExitUsage, Message: err.Error()}
	}
	return &ExitError{Code: ExitFailure, Message: err.Error()}
}
