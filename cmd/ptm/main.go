package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/specialistvlad/ptm/internal/cli"
)

// main is the entrypoint for the ptm application.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Stdin, os.Stdout, os.Stderr, os.Args[1:])
	stop()

	if err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Message != "" {
				fmt.Fprintln(os.Stderr, exitErr.Message)
			}
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitUsage)
	}
}

// run encapsulates the main application logic for easier testing and error
// handling. Errors cobra reports itself (unknown flags or commands) are not
// ExitErrors and exit with the usage code.
func run(ctx context.Context, inR io.Reader, outW, errW io.Writer, args []string) error {
	cmd := cli.NewRootCommand(cli.Streams{In: inR, Out: outW, Err: errW})
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}
