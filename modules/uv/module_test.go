package uv

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/ptm/internal/ctxlog"
	"github.com/specialistvlad/ptm/internal/matrix"
	"github.com/specialistvlad/ptm/internal/registry"
)

type recorder struct {
	mu    sync.Mutex
	calls [][]string
	fail  string
}

func (r *recorder) run(_ context.Context, _ string, name string, args ...string) ([]byte, []byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, append([]string{name}, args...))
	if r.fail != "" && len(args) > 0 && args[0] == r.fail {
		return nil, []byte("  No solution found when resolving dependencies\n"), errors.New("exit status 1")
	}
	return nil, nil, nil
}

func testCtx() context.Context {
	return ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testRun(t *testing.T) *matrix.Run {
	t.Helper()
	numpy, err := matrix.ParseDependency("numpy", "1.26")
	require.NoError(t, err)
	return matrix.NewRun("3.11", []matrix.Dependency{numpy}, matrix.Scope{Env: "unit"}, matrix.Properties{
		Strategy: matrix.StrategyLowest,
		Groups:   []string{"dev"},
		Extras:   []string{"pg"},
	})
}

func TestDriver_Generate(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	project := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(project, "pyproject.toml"), []byte("[project]\nname='x'\n"), 0o644))
	rec := &recorder{}
	d := NewDriver(project, "uv-test", rec.run)
	run := testRun(t)
	dir := filepath.Join(t.TempDir(), run.ID())

	// --- Act ---
	art, err := d.Generate(testCtx(), run, dir)

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, RequirementsFile, art.Path)
	require.Len(t, rec.calls, 1)
	require.Equal(t, []string{
		"uv-test", "pip", "compile", "--quiet", "--python-version", "3.11",
		"--resolution", "lowest", "--extra", "pg",
		"--group", "dev", filepath.Join(project, "pyproject.toml"),
		InputFile, "--output-file", RequirementsFile,
	}, rec.calls[0])

	in, err := os.ReadFile(filepath.Join(dir, InputFile))
	require.NoError(t, err)
	require.Contains(t, string(in), "numpy~=1.26.0\n")
}

func TestDriver_GenerateFailure(t *testing.T) {
	t.Parallel()

	rec := &recorder{fail: "pip"}
	d := NewDriver("", "", rec.run)
	run := testRun(t)

	_, err := d.Generate(testCtx(), run, t.TempDir())

	var failed *registry.GenerationFailedError
	require.ErrorAs(t, err, &failed)
	require.Equal(t, run.ID(), failed.RunID)
	require.Equal(t, "No solution found when resolving dependencies", failed.Diagnostic)
}

func TestDriver_Bootstrap(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	d := NewDriver("", "", rec.run)
	run := testRun(t)
	dir := t.TempDir()

	_, err := d.Bootstrap(testCtx(), run, dir)
	require.Error(t, err, "bootstrapping needs generated requirements")
	require.Empty(t, rec.calls)

	require.NoError(t, os.WriteFile(filepath.Join(dir, RequirementsFile), nil, 0o644))
	h, err := d.Bootstrap(testCtx(), run, dir)
	require.NoError(t, err)
	require.Len(t, rec.calls, 2)
	require.Equal(t, "venv", rec.calls[0][1])
	require.Equal(t, []string{"uv", "pip", "sync", "--quiet", "--python", filepath.Join(dir, VenvDir), RequirementsFile}, rec.calls[1])

	require.Contains(t, h.Environ(), "VIRTUAL_ENV="+filepath.Join(dir, VenvDir))
	require.NoError(t, h.Close())
	require.Error(t, h.Close())
}

func TestModule_Register(t *testing.T) {
	t.Parallel()

	r := registry.Load(testCtx(), &Module{})
	require.True(t, r.Has(Name))
}
