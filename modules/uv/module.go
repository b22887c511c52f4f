// Package uv implements the environment driver backed by the uv package
// manager. Requirement files are produced with "uv pip compile" and
// environments are materialised with "uv venv" and "uv pip sync".
package uv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/specialistvlad/ptm/internal/ctxlog"
	"github.com/specialistvlad/ptm/internal/matrix"
	"github.com/specialistvlad/ptm/internal/registry"
)

// Name is the key the driver is registered under.
const Name = "uv"

// Files written into a run directory.
const (
	InputFile        = "requirements.in"
	RequirementsFile = "requirements.txt"
	VenvDir          = ".venv"
)

// Runner executes an external command and returns its standard output.
// Standard error is returned separately as the diagnostic.
type Runner func(ctx context.Context, dir string, name string, args ...string) (stdout, stderr []byte, err error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, dir string, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Module implements the registry.Module interface for this package.
type Module struct {
	// ProjectDir holds the pyproject.toml that is compiled together with the
	// run's dependencies.
	ProjectDir string
	// Binary overrides the uv executable. Defaults to "uv".
	Binary string
	// Run overrides command execution. Defaults to ExecRunner.
	Run Runner
}

// Register registers the driver with the registry.
func (m *Module) Register(ctx context.Context, r *registry.Registry) {
	r.Register(ctx, Name, NewDriver(m.ProjectDir, m.Binary, m.Run))
}

// Driver is the uv environment builder.
type Driver struct {
	projectDir string
	binary     string
	run        Runner
}

// NewDriver creates a uv driver. Empty arguments select the defaults.
func NewDriver(projectDir, binary string, run Runner) *Driver {
	if binary == "" {
		binary = Name
	}
	if run == nil {
		run = ExecRunner
	}
	return &Driver{projectDir: projectDir, binary: binary, run: run}
}

// Generate writes the run's dependencies to requirements.in and compiles
// them, together with the project's own metadata, into requirements.txt.
func (d *Driver) Generate(ctx context.Context, run *matrix.Run, dir string) (registry.Artifact, error) {
	logger := ctxlog.FromContext(ctx).With("run", run.ID())

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return registry.Artifact{}, err
	}
	if err := os.WriteFile(filepath.Join(dir, InputFile), []byte(requirementsInput(run)), 0o644); err != nil {
		return registry.Artifact{}, err
	}

	args := d.compileArgs(run)
	logger.Debug("Compiling requirements.", "args", args)
	if _, stderr, err := d.run(ctx, dir, d.binary, args...); err != nil {
		return registry.Artifact{}, &registry.GenerationFailedError{
			Driver:     Name,
			RunID:      run.ID(),
			Diagnostic: strings.TrimSpace(string(stderr)),
			Err:        err,
		}
	}
	return registry.Artifact{Path: RequirementsFile}, nil
}

func (d *Driver) compileArgs(run *matrix.Run) []string {
	args := []string{"pip", "compile", "--quiet", "--python-version", run.Python}
	if run.Properties.Strategy != "" {
		args = append(args, "--resolution", string(run.Properties.Strategy))
	}
	if d.projectDir != "" {
		pyproject := filepath.Join(d.projectDir, "pyproject.toml")
		if _, err := os.Stat(pyproject); err == nil {
			for _, e := range run.Properties.Extras {
				args = append(args, "--extra", e)
			}
			for _, g := range run.Properties.Groups {
				args = append(args, "--group", g)
			}
			args = append(args, pyproject)
		}
	}
	return append(args, InputFile, "--output-file", RequirementsFile)
}

func requirementsInput(run *matrix.Run) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", run.Slug())
	for _, dep := range run.Dependencies {
		b.WriteString(dep.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// Bootstrap creates a virtual environment for the run's interpreter and
// syncs it to the compiled requirements.
func (d *Driver) Bootstrap(ctx context.Context, run *matrix.Run, dir string) (registry.Handle, error) {
	logger := ctxlog.FromContext(ctx).With("run", run.ID())

	if _, err := os.Stat(filepath.Join(dir, RequirementsFile)); err != nil {
		return nil, fmt.Errorf("run %s has not been generated: %w", run.ID(), err)
	}
	venv := filepath.Join(dir, VenvDir)

	steps := [][]string{
		{"venv", "--quiet", "--allow-existing", "--python", run.Python, venv},
		{"pip", "sync", "--quiet", "--python", venv, RequirementsFile},
	}
	for _, args := range steps {
		logger.Debug("Bootstrapping environment.", "args", args)
		if _, stderr, err := d.run(ctx, dir, d.binary, args...); err != nil {
			return nil, &registry.GenerationFailedError{
				Driver:     Name,
				RunID:      run.ID(),
				Diagnostic: strings.TrimSpace(string(stderr)),
				Err:        err,
			}
		}
	}
	return &venvHandle{path: venv}, nil
}

type venvHandle struct {
	path string
}

func (h *venvHandle) Environ() []string {
	bin := "bin"
	if runtime.GOOS == "windows" {
		bin = "Scripts"
	}
	return []string{
		"VIRTUAL_ENV=" + h.path,
		"PATH=" + filepath.Join(h.path, bin) + string(os.PathListSeparator) + os.Getenv("PATH"),
	}
}

// Close leaves the environment in place so that later runs can reuse it.
func (h *venvHandle) Close() error {
	if h.path == "" {
		return errors.New("uv: handle already closed")
	}
	h.path = ""
	return nil
}
