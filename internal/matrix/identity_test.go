package matrix

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/ptm/internal/marker"
)

func mustDeps(t *testing.T, pairs ...string) []Dependency {
	t.Helper()
	var deps []Dependency
	for i := 0; i < len(pairs); i += 2 {
		d, err := ParseDependency(pairs[i], pairs[i+1])
		require.NoError(t, err)
		deps = append(deps, d)
	}
	return deps
}

func TestIdentity_DependencyOrderMatters(t *testing.T) {
	t.Parallel()

	a := NewRun("3.11", mustDeps(t, "numpy", "1.26", "attrs", "23.1"), Scope{}, Properties{})
	b := NewRun("3.11", mustDeps(t, "attrs", "23.1", "numpy", "1.26"), Scope{}, Properties{})

	require.NotEqual(t, a.ID(), b.ID())
}

func TestIdentity_SetOrderDoesNotMatter(t *testing.T) {
	t.Parallel()

	deps := mustDeps(t, "numpy", "1.26")
	a := NewRun("3.11", deps, Scope{Env: "a"}, Properties{
		Tags:    []string{"slow", "db"},
		Groups:  []string{"dev", "test"},
		Extras:  []string{"pg", "cli"},
		Setenv:  map[string]string{"A": "1", "B": "2"},
		Markers: []*marker.Marker{marker.MustParse("os_name == 'posix'"), marker.MustParse("python_version >= '3.9'")},
	})
	b := NewRun("3.11", deps, Scope{Env: "b", Row: 7}, Properties{
		Tags:    []string{"db"},
		Groups:  []string{"test", "dev", "dev"},
		Extras:  []string{"cli", "pg"},
		Setenv:  map[string]string{"B": "2", "A": "1"},
		Markers: []*marker.Marker{marker.MustParse(`python_version >= "3.9"`), marker.MustParse(`os_name == "posix"`)},
	})

	require.Equal(t, a.ID(), b.ID(), "tags, scope and set ordering are not part of the identity")
}

func TestIdentity_Sensitivity(t *testing.T) {
	t.Parallel()

	base := func() Properties {
		return Properties{Strategy: StrategyHighest, Setenv: map[string]string{"A": "1"}, Groups: []string{"dev"}}
	}
	deps := mustDeps(t, "numpy", "1.26")
	ref := NewRun("3.11", deps, Scope{}, base()).ID()

	testCases := []struct {
		name   string
		python string
		props  func(p *Properties)
	}{
		{name: "python", python: "3.12", props: func(*Properties) {}},
		{name: "strategy", python: "3.11", props: func(p *Properties) { p.Strategy = StrategyLowest }},
		{name: "setenv value", python: "3.11", props: func(p *Properties) { p.Setenv = map[string]string{"A": "2"} }},
		{name: "groups", python: "3.11", props: func(p *Properties) { p.Groups = []string{"dev", "docs"} }},
		{name: "extras", python: "3.11", props: func(p *Properties) { p.Extras = []string{"pg"} }},
		{name: "markers", python: "3.11", props: func(p *Properties) {
			p.Markers = []*marker.Marker{marker.MustParse(`sys_platform == "linux"`)}
		}},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p := base()
			tc.props(&p)
			require.NotEqual(t, ref, NewRun(tc.python, deps, Scope{}, p).ID())
		})
	}
}

func TestIdentity_IgnoresInternalVariables(t *testing.T) {
	t.Parallel()

	deps := mustDeps(t, "numpy", "1.26")
	plain := NewRun("3.11", deps, Scope{}, Properties{Setenv: map[string]string{"A": "1"}})
	internal := NewRun("3.11", deps, Scope{}, Properties{Setenv: map[string]string{"A": "1", "PTM_RUN": "abc"}})

	require.Equal(t, plain.ID(), internal.ID())
}

func TestIdentity_ValueDoesNotLeakBetweenSections(t *testing.T) {
	t.Parallel()

	deps := mustDeps(t, "numpy", "1.26")
	asGroup := NewRun("3.11", deps, Scope{}, Properties{Groups: []string{"docs"}})
	asExtra := NewRun("3.11", deps, Scope{}, Properties{Extras: []string{"docs"}})

	require.NotEqual(t, asGroup.ID(), asExtra.ID())
}

func TestRegistry_LookupAndComplete(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	run := NewRun("3.11", mustDeps(t, "numpy", "1.26"), Scope{}, Properties{Tags: []string{"x"}})
	require.NoError(t, reg.Add(run))

	got, ok := reg.Lookup(" " + strings.ToUpper(run.ID()) + " ")
	require.True(t, ok)
	require.Same(t, run, got)

	require.Equal(t, []string{run.ID()}, reg.Complete(run.ID()[:3]))
	require.Empty(t, reg.Complete("zzzz-no-such"))

	twin := NewRun("3.11", mustDeps(t, "numpy", "~=1.26.0"), Scope{Env: "other"}, Properties{})
	err := reg.Add(twin)
	var dup *DuplicateRunError
	require.ErrorAs(t, err, &dup)
	require.Same(t, run, dup.Existing)
	require.Contains(t, err.Error(), run.Name())
	require.Equal(t, 1, reg.Len())
	require.Equal(t, []*Run{run}, reg.Runs())
}
