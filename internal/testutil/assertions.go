package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/specialistvlad/ptm/internal/artifact"
	"github.com/stretchr/testify/require"
)

// AssertRunGenerated checks that the run directory holds a descriptor for
// the given identity.
func AssertRunGenerated(t *testing.T, runDir, id string) {
	t.Helper()

	vars, err := artifact.ReadEnvFile(filepath.Join(runDir, artifact.EnvFileName))
	require.NoError(t, err, "run %s has no descriptor", id)
	require.Equal(t, id, vars[artifact.RunIDKey])
}

// AssertRunAbsent checks that nothing was written for a run.
func AssertRunAbsent(t *testing.T, runDir string) {
	t.Helper()

	_, err := os.Stat(runDir)
	require.ErrorIs(t, err, os.ErrNotExist, "expected %s not to exist", runDir)
}

// AssertLogged checks that the log output contains every fragment.
func AssertLogged(t *testing.T, result *HarnessResult, fragments ...string) {
	t.Helper()

	out := result.LogOutput()
	for _, f := range fragments {
		require.True(t, strings.Contains(out, f), "expected log output to contain %q", f)
	}
}
