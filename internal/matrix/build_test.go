package matrix

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/ptm/internal/config"
)

func TestProduct_Order(t *testing.T) {
	t.Parallel()

	rows := Product([]Axis{
		{Name: "python", Values: []string{"3.9", "3.10"}},
		{Name: "numpy", Values: []string{"1.26", "2.0", "2.1"}},
		{Name: "attrs", Values: []string{"23.1"}},
	})

	want := [][]string{
		{"3.9", "1.26", "23.1"},
		{"3.9", "2.0", "23.1"},
		{"3.9", "2.1", "23.1"},
		{"3.10", "1.26", "23.1"},
		{"3.10", "2.0", "23.1"},
		{"3.10", "2.1", "23.1"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Fatalf("product mismatch (-want +got):\n%s", diff)
	}

	require.Empty(t, Product([]Axis{{Name: "python", Values: []string{"3.9"}}, {Name: "numpy"}}))
}

func TestBuild_ExpandsInProductOrder(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	doc := project(tbl(
		"env", tbl("test", tbl(
			"matrix", []*config.Table{
				tbl("python", []string{"3.9", "3.10"}, "numpy", []string{"1.26", "2.0"}, "attrs", "23.1.0"),
			},
		)),
	))

	// --- Act ---
	cfg, err := Build(testContext(), doc, BuildOptions{ProjectDir: "/proj"})

	// --- Assert ---
	require.NoError(t, err)
	require.Empty(t, cfg.Problems)
	runs := cfg.Runs(Filter{})
	require.Len(t, runs, 4)

	got := make([]string, len(runs))
	for i, r := range runs {
		got[i] = r.Name()
	}
	require.Equal(t, []string{
		"3.9,numpy~=1.26.0,attrs==23.1.0",
		"3.9,numpy~=2.0.0,attrs==23.1.0",
		"3.10,numpy~=1.26.0,attrs==23.1.0",
		"3.10,numpy~=2.0.0,attrs==23.1.0",
	}, got)
	require.Equal(t, "test: python=3.9; numpy~=1.26.0;attrs==23.1.0", runs[0].Slug())
	require.Equal(t, 3, runs[3].Scope.Row)
	require.Equal(t, "/proj/.ptm/test/"+runs[0].ID(), cfg.RunDirectory(runs[0]))
}

func TestBuild_Deterministic(t *testing.T) {
	t.Parallel()

	newDoc := func() *config.Table {
		return project(tbl(
			"setenv", tbl("A", "1", "B", "2"),
			"env", tbl(
				"unit", tbl("tags", []string{"fast"}, "matrix", []*config.Table{
					tbl("python", []string{"3.9", "3.12"}, "numpy", []string{"1.26", "2.0"}),
				}),
				"integration", tbl("markers", []string{"sys_platform == 'linux'"}, "matrix", []*config.Table{
					tbl("python", "3.11", "requests", ">=2,<3"),
				}),
			),
		))
	}

	first, err := Build(testContext(), newDoc(), BuildOptions{})
	require.NoError(t, err)
	second, err := Build(testContext(), newDoc(), BuildOptions{})
	require.NoError(t, err)

	require.Equal(t, runIDs(first.Runs(Filter{})), runIDs(second.Runs(Filter{})))
	for _, r := range first.Runs(Filter{}) {
		require.Len(t, r.ID(), IDLength)
		require.Equal(t, r.ID(), r.ID(), "memoised id is stable")
	}
}

func TestBuild_MissingPythonAxis(t *testing.T) {
	t.Parallel()

	doc := project(tbl("env", tbl("test", tbl(
		"matrix", []*config.Table{tbl("numpy", []string{"1.26", "2.0"})},
	))))

	cfg, err := Build(testContext(), doc, BuildOptions{})
	require.Nil(t, cfg)

	var missing *MissingPythonAxisError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, "test", missing.Env)
	require.Equal(t, 0, missing.Group)
	require.True(t, errors.Is(err, ErrConfiguration))
}

func TestBuild_MissingPythonAxisBuildsNoRuns(t *testing.T) {
	t.Parallel()

	cfg := &Config{Registry: NewRegistry()}
	env := &Environment{Name: "test"}
	group := &RunGroup{Matrix: []Axis{{Name: "numpy", Values: []string{"1.26"}}}}

	err := expand(testContext(), cfg, env, group)
	require.ErrorAs(t, err, new(*MissingPythonAxisError))
	require.Empty(t, group.Runs)
	require.Zero(t, cfg.Registry.Len())
}

func TestBuild_StructuralErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		doc  *config.Table
	}{
		{name: "no tool table", doc: tbl("project", tbl("name", "x"))},
		{name: "no ptm section", doc: tbl("tool", tbl("black", tbl()))},
		{name: "no env table", doc: project(tbl("strategy", "lowest"))},
		{name: "env is not a table", doc: project(tbl("env", "oops"))},
		{name: "unknown strategy", doc: project(tbl("strategy", "newest", "env", tbl()))},
		{name: "unknown group option", doc: project(tbl("env", tbl("t", tbl(
			"matrix", []*config.Table{tbl("python", "3.9", "-color", "red")},
		))))},
		{name: "bad marker", doc: project(tbl("env", tbl("t", tbl(
			"markers", []string{"python_version >>"},
		))))},
		{name: "non string axis value", doc: project(tbl("env", tbl("t", tbl(
			"matrix", []*config.Table{tbl("python", int64(3))},
		))))},
		{name: "absolute dot dir", doc: project(tbl("dot_dir", "/tmp/ptm", "env", tbl()))},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Build(testContext(), tc.doc, BuildOptions{})
			require.Error(t, err)
			require.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestBuild_InvalidRowIsIsolated(t *testing.T) {
	t.Parallel()

	doc := project(tbl("env", tbl("test", tbl(
		"matrix", []*config.Table{
			tbl("python", "3.9", "numpy", []string{"1.26", "not a version", "2.0"}),
		},
	))))

	cfg, err := Build(testContext(), doc, BuildOptions{})
	require.NoError(t, err)
	require.Len(t, cfg.Runs(Filter{}), 2)
	require.Len(t, cfg.Problems, 1)

	var invalid *InvalidDependencyError
	require.ErrorAs(t, cfg.Problems[0], &invalid)
	require.Equal(t, "test", invalid.Env)
	require.Equal(t, 0, invalid.Group)
	require.Equal(t, 1, invalid.Row)
	require.Contains(t, invalid.Error(), `env "test" matrix[0] row 1`)
}

func TestBuild_DuplicateRunIsDropped(t *testing.T) {
	t.Parallel()

	// Two blocks that resolve to the same python, dependencies and
	// properties. Tags differ but do not take part in the identity.
	doc := project(tbl("env", tbl("test", tbl(
		"matrix", []*config.Table{
			tbl("python", "3.9", "numpy", "1.26"),
			tbl("python", "3.9", "numpy", "~=1.26.0", "-tags", "db"),
		},
	))))

	cfg, err := Build(testContext(), doc, BuildOptions{})
	require.NoError(t, err)

	env, ok := cfg.Environment("test")
	require.True(t, ok)
	require.Len(t, env.RunGroups[0].Runs, 1)
	require.Empty(t, env.RunGroups[1].Runs)
	require.Equal(t, 1, cfg.Registry.Len())

	require.Len(t, cfg.Problems, 1)
	var dup *DuplicateRunError
	require.ErrorAs(t, cfg.Problems[0], &dup)
	require.Equal(t, env.RunGroups[0].Runs[0], dup.Existing)
	require.Equal(t, dup.Existing.ID(), dup.ID)
	require.Empty(t, cfg.Registry.Tagged("db"), "a rejected run is not registered under its tags")
}

func TestBuild_AliasesApplyToEveryAxis(t *testing.T) {
	t.Parallel()

	doc := project(tbl(
		"aliases", tbl("latest", "2.1", "oldest-py", "3.8"),
		"env", tbl("test", tbl("matrix", []*config.Table{
			tbl("python", "oldest-py", "numpy", []string{"latest", "1.26"}),
		})),
	))

	cfg, err := Build(testContext(), doc, BuildOptions{})
	require.NoError(t, err)
	runs := cfg.Runs(Filter{})
	require.Len(t, runs, 2)
	require.Equal(t, "3.8", runs[0].Python)
	require.Equal(t, "numpy~=2.1.0", runs[0].Dependencies[0].String())
	require.Equal(t, "numpy~=1.26.0", runs[1].Dependencies[0].String())
}

func TestBuild_RemoteEnvironment(t *testing.T) {
	t.Parallel()

	const locator = "https://example.com/envs/shared.toml"
	fetcher := fakeFetcher{
		locator: tbl("tags", []string{"remote"}, "matrix", []*config.Table{tbl("python", "3.12")}),
	}
	doc := project(tbl("env", tbl("shared", locator)))

	cfg, err := Build(testContext(), doc, BuildOptions{Fetcher: fetcher})
	require.NoError(t, err)
	env, ok := cfg.Environment("shared")
	require.True(t, ok)
	require.Equal(t, locator, env.Source)
	require.Len(t, cfg.Registry.Tagged("remote"), 1)

	_, err = Build(testContext(), project(tbl("env", tbl("shared", "https://example.com/missing"))), BuildOptions{Fetcher: fetcher})
	var remoteErr *RemoteConfigError
	require.ErrorAs(t, err, &remoteErr)
	require.Equal(t, "shared", remoteErr.Env)
}

func TestBuild_Settings(t *testing.T) {
	t.Parallel()

	cfg, err := Build(testContext(), project(tbl(
		"dot_dir", ".matrix",
		"driver", "uv",
		"env", tbl(),
	)), BuildOptions{ProjectDir: "/proj", Drivers: driverNames{"uv"}})
	require.NoError(t, err)
	require.Equal(t, "/proj/.matrix", cfg.Directory())
	require.Equal(t, []string{"dev"}, cfg.Groups)
	require.Equal(t, "uv", cfg.Driver)

	_, err = Build(testContext(), project(tbl("driver", "pdm", "env", tbl())), BuildOptions{Drivers: driverNames{"uv"}})
	require.ErrorIs(t, err, ErrConfiguration)
	require.Contains(t, err.Error(), `unknown driver "pdm"`)
}

func TestBuild_EnvironmentOrder(t *testing.T) {
	t.Parallel()

	doc := project(tbl("env", tbl(
		"zeta", tbl("matrix", []*config.Table{tbl("python", "3.9")}),
		"alpha", tbl("matrix", []*config.Table{tbl("python", "3.10")}),
	)))

	cfg, err := Build(testContext(), doc, BuildOptions{})
	require.NoError(t, err)
	require.Equal(t, "zeta", cfg.Environments[0].Name)
	require.Equal(t, "alpha", cfg.Environments[1].Name)
	require.Equal(t, "3.9", cfg.Runs(Filter{})[0].Python)
}
