package marker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func linuxEnv() Environment {
	return Environment{
		"os_name":             "posix",
		"sys_platform":        "linux",
		"platform_system":     "Linux",
		"platform_machine":    "x86_64",
		"python_version":      "3.10",
		"python_full_version": "3.10.14",
		"implementation_name": "cpython",
	}
}

func TestParse_CanonicalString(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		`python_version>='3.9'`: `python_version >= "3.9"`,
		`sys_platform == "linux" and (os_name=='posix' or python_version < "3")`: `sys_platform == "linux" and (os_name == "posix" or python_version < "3")`,
		`'linux' in sys_platform`:                 `"linux" in sys_platform`,
		`platform.python_implementation!="PyPy"`:  `platform_python_implementation != "PyPy"`,
		`platform_machine not in "arm64 aarch64"`: `platform_machine not in "arm64 aarch64"`,
	}
	for in, want := range cases {
		m, err := Parse(in)
		require.NoError(t, err, in)
		require.Equal(t, want, m.String(), in)
	}
}

func TestParse_LiteralWithDoubleQuote(t *testing.T) {
	t.Parallel()

	m, err := Parse(`platform_version == 'build "7"'`)
	require.NoError(t, err)
	require.Equal(t, `platform_version == 'build "7"'`, m.String())

	again, err := Parse(m.String())
	require.NoError(t, err)
	require.Equal(t, m.String(), again.String())

	plain, err := Parse(`platform_version == "build 7"`)
	require.NoError(t, err)
	require.NotEqual(t, plain.String(), m.String())
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	for _, in := range []string{
		``,
		`python_version`,
		`python_version >=`,
		`interpreter == "cpython"`,
		`python_version >= "3.9`,
		`(python_version >= "3.9"`,
		`python_version >= "3.9" extra`,
		`python_version not "3.9"`,
		`python_version % "3"`,
	} {
		_, err := Parse(in)
		var syntaxErr *SyntaxError
		require.ErrorAs(t, err, &syntaxErr, in)
	}
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	env := linuxEnv()
	cases := []struct {
		marker string
		want   bool
	}{
		{`python_version >= "3.9"`, true},
		{`python_version < "3.9"`, false},
		// Version comparison, not string comparison: "3.10" > "3.9".
		{`python_version > "3.9"`, true},
		{`python_full_version == "3.10.*"`, true},
		{`python_version ~= "3.8"`, true},
		{`sys_platform == "linux"`, true},
		{`sys_platform == "win32" or os_name == "posix"`, true},
		{`sys_platform == "win32" and os_name == "posix"`, false},
		{`"x86" in platform_machine`, true},
		{`platform_machine not in "arm64 aarch64"`, true},
		{`(sys_platform == "darwin" or sys_platform == "linux") and python_version >= "3.10"`, true},
	}
	for _, tc := range cases {
		ok, err := MustParse(tc.marker).Evaluate(env)
		require.NoError(t, err, tc.marker)
		require.Equal(t, tc.want, ok, tc.marker)
	}
}

func TestEvaluate_ReleaseCandidate(t *testing.T) {
	t.Parallel()

	env := linuxEnv()
	env["python_version"] = "3.9"
	env["python_full_version"] = "3.9.0rc1"

	ok, err := MustParse(`python_full_version < "3.9"`).Evaluate(env)
	require.NoError(t, err)
	require.False(t, ok, "a release candidate of 3.9 is not below 3.9")

	ok, err = MustParse(`python_full_version < "3.9.0rc2"`).Evaluate(env)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestEvaluate_UndefinedComparison(t *testing.T) {
	t.Parallel()

	_, err := MustParse(`sys_platform ~= "linux"`).Evaluate(linuxEnv())
	require.Error(t, err)
}

func TestEvaluateAll(t *testing.T) {
	t.Parallel()

	env := linuxEnv()
	ok, err := EvaluateAll(nil, env)
	require.NoError(t, err)
	require.True(t, ok, "no markers means eligible")

	ok, err = EvaluateAll([]*Marker{
		MustParse(`sys_platform == "linux"`),
		MustParse(`python_version >= "3.11"`),
	}, env)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = EvaluateAll([]*Marker{MustParse(`os_name ~= "posix"`)}, env)
	require.ErrorContains(t, err, `os_name ~= "posix"`)
}

func TestCurrent(t *testing.T) {
	t.Parallel()

	env, err := Current(context.Background(), func(context.Context) (string, error) {
		return "3.12.4", nil
	})
	require.NoError(t, err)
	require.Equal(t, "3.12", env["python_version"])
	require.Equal(t, "3.12.4", env["python_full_version"])
	require.NotEmpty(t, env["sys_platform"])

	probeErr := errors.New("no interpreter")
	env, err = Current(context.Background(), func(context.Context) (string, error) {
		return "", probeErr
	})
	require.ErrorIs(t, err, probeErr)
	require.Empty(t, env["python_version"])
	require.NotEmpty(t, env["os_name"])
}
