package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/ptm/internal/app"
	"github.com/specialistvlad/ptm/internal/buildinfo"
	"github.com/specialistvlad/ptm/internal/cli"
	"github.com/specialistvlad/ptm/internal/testutil"
)

const pyproject = `
[tool.ptm]
driver = "fake"

[tool.ptm.env.unit]
tags = ["fast"]

[[tool.ptm.env.unit.matrix]]
python = ["3.11", "3.12"]
attrs = "23.2"

[[tool.ptm.env.docs.matrix]]
python = "3.12"
sphinx = "7.3"
`

type harness struct {
	config string
	driver *testutil.FakeDriver
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := testutil.WriteFiles(t, t.TempDir(), map[string]string{"pyproject.toml": pyproject})
	return &harness{config: filepath.Join(dir, "pyproject.toml"), driver: testutil.NewFakeDriver()}
}

func (h *harness) execute(args ...string) (string, string, error) {
	var out, errOut bytes.Buffer
	cmd := cli.NewRootCommand(cli.Streams{Out: &out, Err: &errOut}, h.driver.Module("fake"))
	cmd.SetArgs(append([]string{"--config", h.config}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func requireExitCode(t *testing.T, err error, code int) *cli.ExitError {
	t.Helper()
	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, code, exitErr.Code)
	return exitErr
}

func TestVersion(t *testing.T) {
	t.Parallel()

	out, _, err := newHarness(t).execute("version")
	require.NoError(t, err)
	require.Equal(t, "ptm "+buildinfo.Version+"\n", out)
}

func TestList_JSON(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	h := newHarness(t)

	// --- Act ---
	out, _, err := h.execute("list", "-o", "json", "--tag", "fast")

	// --- Assert ---
	require.NoError(t, err)
	var infos []app.RunInfo
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	require.Len(t, infos, 2)
	require.Equal(t, "3.11", infos[0].Python)
	require.Equal(t, []string{"attrs~=23.2.0"}, infos[0].Dependencies)
}

func TestList_UnknownFormatAndEnv(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	_, _, err := h.execute("list", "-o", "csv")
	requireExitCode(t, err, cli.ExitUsage)

	_, _, err = h.execute("list", "--env", "nope")
	exitErr := requireExitCode(t, err, cli.ExitUsage)
	require.Contains(t, exitErr.Message, `unknown environment "nope"`)
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	h := newHarness(t)

	// --- Act ---
	out, _, err := h.execute("generate", "-e", "docs")
	require.NoError(t, err)
	again, _, err := h.execute("generate", "--env", "docs", "--workers", "1")

	// --- Assert ---
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "generated   ["), out)
	require.Contains(t, out, "docs: python=3.12; sphinx~=7.3.0")
	require.True(t, strings.HasPrefix(again, "up-to-date  ["), again)
	require.Equal(t, 1, h.driver.GeneratedCount())
}

func TestRun_ExitCodeAndCompletion(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	h := newHarness(t)
	listOut, _, err := h.execute("list", "-o", "json", "-e", "docs")
	require.NoError(t, err)
	var infos []app.RunInfo
	require.NoError(t, json.Unmarshal([]byte(listOut), &infos))
	id := infos[0].ID

	// --- Act & Assert ---
	out, _, err := h.execute("run", id, "--", "sh", "-c", `printf %s "$PTM_ENV"`)
	require.NoError(t, err)
	require.Equal(t, "docs", out)

	_, _, err = h.execute("run", id, "sh", "-c", "exit 4")
	requireExitCode(t, err, 4)

	_, _, err = h.execute("run", "ffffffffffff", "true")
	requireExitCode(t, err, cli.ExitUsage)

	_, _, err = h.execute("run", id, "--")
	exitErr := requireExitCode(t, err, cli.ExitUsage)
	require.Contains(t, exitErr.Message, "needs a command")

	var completions bytes.Buffer
	cmd := cli.NewRootCommand(cli.Streams{Out: &completions, Err: &bytes.Buffer{}}, h.driver.Module("fake"))
	cmd.SetArgs([]string{"__complete", "run", "--config", h.config, id[:4]})
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	require.Contains(t, completions.String(), id)
}

func TestCheck_OutsideRun(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	h := newHarness(t)
	dir := testutil.WriteFiles(t, t.TempDir(), map[string]string{".env": "PTM_ENV=\"unit\"\n"})

	// --- Act ---
	_, _, err := h.execute("check", "--descriptor", filepath.Join(dir, ".env"))

	// --- Assert ---
	exitErr := requireExitCode(t, err, cli.ExitUsage)
	require.Contains(t, exitErr.Message, "not inside a run")
}

func TestInvalidFlags(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	_, _, err := h.execute("list", "--log-level", "loud")
	requireExitCode(t, err, cli.ExitUsage)

	_, _, err = h.execute("--this-is-not-a-valid-flag")
	require.Error(t, err)
}
