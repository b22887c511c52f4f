package matrix

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDependency(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		pkg     string
		token   string
		want    string
		locator bool
	}{
		{name: "major.minor is compatible release", pkg: "numpy", token: "3.8", want: "numpy~=3.8.0"},
		{name: "full version is exact", pkg: "numpy", token: "1.2.3", want: "numpy==1.2.3"},
		{name: "single segment is exact", pkg: "numpy", token: "2", want: "numpy==2"},
		{name: "prerelease is exact", pkg: "numpy", token: "1.0rc1", want: "numpy==1.0rc1"},
		{name: "dev release is exact", pkg: "numpy", token: "1.1.dev0", want: "numpy==1.1.dev0"},
		{name: "post release is exact", pkg: "numpy", token: "1.0.post1", want: "numpy==1.0.post1"},
		{name: "constraint passes through", pkg: "numpy", token: ">=1.0,<2", want: "numpy>=1.0,<2"},
		{name: "constraint whitespace is dropped", pkg: "numpy", token: " >= 1.0 , < 2 ", want: "numpy>=1.0,<2"},
		{name: "empty token is unconstrained", pkg: "numpy", token: "", want: "numpy"},
		{name: "name is canonicalised", pkg: "Typing_Extensions", token: "4.8", want: "typing-extensions~=4.8.0"},
		{name: "url pins a locator", pkg: "attrs", token: "git+https://example/repo", want: "attrs @ git+https://example/repo", locator: true},
		{name: "file url pins a locator", pkg: "attrs", token: "file:///src/attrs", want: "attrs @ file:///src/attrs", locator: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			dep, err := ParseDependency(tc.pkg, tc.token)
			require.NoError(t, err)
			require.Equal(t, tc.want, dep.String())
			require.Equal(t, tc.locator, dep.Locator != "")
		})
	}
}

func TestParseDependency_Deterministic(t *testing.T) {
	t.Parallel()

	a, err := ParseDependency("numpy", "3.8")
	require.NoError(t, err)
	b, err := ParseDependency("NumPy", "3.8")
	require.NoError(t, err)
	require.Equal(t, a.String(), b.String())

	exact, err := ParseDependency("numpy", "==3.8")
	require.NoError(t, err)
	require.Equal(t, "numpy==3.8", exact.String(), "an explicit operator is kept")
}

func TestParseDependency_Rejects(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		pkg   string
		token string
	}{
		{name: "invalid package name", pkg: "-bad-", token: "1.0"},
		{name: "garbage token", pkg: "numpy", token: "not a version"},
		{name: "relative path", pkg: "numpy", token: "./vendor/numpy"},
		{name: "scheme without host", pkg: "numpy", token: "https:foo"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseDependency(tc.pkg, tc.token)
			var invalid *InvalidDependencyError
			require.ErrorAs(t, err, &invalid)
			require.Equal(t, tc.pkg, invalid.Package)
			require.Equal(t, tc.token, invalid.Token)
		})
	}
}
