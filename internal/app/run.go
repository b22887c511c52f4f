package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/ptm/internal/artifact"
	"github.com/specialistvlad/ptm/internal/buildinfo"
	"github.com/specialistvlad/ptm/internal/ctxlog"
	"github.com/specialistvlad/ptm/internal/matrix"
)

// UnknownRunError is returned when an identity matches no run.
type UnknownRunError struct {
	ID          string
	Suggestions []string
}

func (e *UnknownRunError) Error() string {
	msg := fmt.Sprintf("no run with id %q", e.ID)
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf(" (did you mean %s?)", strings.Join(e.Suggestions, ", "))
	}
	return msg
}

// Stdio are the streams handed to a command executed inside a run.
type Stdio struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Exec runs argv inside the environment of run id. The run is generated
// first when its descriptor is missing, then bootstrapped by the driver.
// The command's exit code is returned; a non-zero exit is not an error.
func (a *App) Exec(ctx context.Context, id string, argv []string, stdio Stdio) (int, error) {
	ctx = a.withLogger(ctx)
	logger := ctxlog.FromContext(ctx)

	if len(argv) == 0 {
		return 0, errors.New("no command given")
	}
	run, ok := a.project.Lookup(id)
	if !ok {
		return 0, &UnknownRunError{ID: id, Suggestions: a.project.Complete(strings.ToLower(strings.TrimSpace(id)))}
	}
	logger = logger.With("id", run.ID())

	dir := a.project.RunDirectory(run)
	envPath := filepath.Join(dir, artifact.EnvFileName)
	if _, err := os.Stat(envPath); errors.Is(err, os.ErrNotExist) {
		logger.Info("Run not generated yet, generating.")
		if err := a.generateAndRecord(ctx, run); err != nil {
			return 0, err
		}
	}

	vars, err := artifact.ReadEnvFile(envPath)
	if err != nil {
		return 0, err
	}

	handle, err := a.driver.Bootstrap(ctx, run, dir)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := handle.Close(); err != nil {
			logger.Warn("Closing environment failed.", "error", err)
		}
	}()

	environ := artifact.Overlay(os.Environ(), vars)
	environ = artifact.Overlay(environ, environMap(handle.Environ()))

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = environ
	cmd.Stdin, cmd.Stdout, cmd.Stderr = stdio.In, stdio.Out, stdio.Err

	logger.Debug("Executing command.", "argv", argv)
	err = cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return 0, fmt.Errorf("executing %s: %w", argv[0], err)
	}
	return 0, nil
}

// generateAndRecord generates a single run and records it in its
// environment's manifest.
func (a *App) generateAndRecord(ctx context.Context, run *matrix.Run) error {
	entry, err := a.generateRun(ctx, run)
	if err != nil {
		return err
	}
	envDir := a.project.EnvironmentDirectory(run.Scope.Env)
	m, err := artifact.LoadManifest(envDir, run.Scope.Env, buildinfo.Version)
	if err != nil {
		return err
	}
	m.Runs[entry.ID] = entry
	return m.Save(envDir)
}

func environMap(environ []string) map[string]string {
	vars := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}
	return vars
}
