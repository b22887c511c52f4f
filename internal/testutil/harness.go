// Package testutil holds helpers shared by the application-level tests.
package testutil

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/specialistvlad/ptm/internal/app"
	"github.com/specialistvlad/ptm/internal/ctxlog"
	"github.com/specialistvlad/ptm/internal/registry"
	"github.com/stretchr/testify/require"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// Context returns a background context carrying a logger that discards
// everything.
func Context() context.Context {
	return ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// WriteFiles writes files, keyed by slash separated relative path, under
// dir and returns dir.
func WriteFiles(t *testing.T, dir string, files map[string]string) string {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

// HarnessResult holds the outcome of building an App for a test project.
type HarnessResult struct {
	Dir    string
	Output *SafeBuffer
	Logs   *SafeBuffer
	Err    error
	App    *app.App
}

// LogOutput returns everything logged so far.
func (r *HarnessResult) LogOutput() string {
	return r.Logs.String()
}

// NewProject writes files into a fresh temporary project and builds an App
// for it with the given driver modules. Configuration errors are returned
// in the result, not failed on.
func NewProject(t *testing.T, files map[string]string, modules ...registry.Module) *HarnessResult {
	t.Helper()

	dir := WriteFiles(t, t.TempDir(), files)
	cfg, err := app.NewConfig(app.Config{
		WorkDir:   dir,
		LogLevel:  "debug",
		LogFormat: "text",
		Workers:   4,
	})
	require.NoError(t, err)

	res := &HarnessResult{Dir: dir, Output: &SafeBuffer{}, Logs: &SafeBuffer{}}
	res.App, res.Err = app.NewApp(res.Output, res.Logs, cfg, modules...)

	t.Cleanup(func() {
		if os.Getenv("PTM_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), res.Logs.String())
		}
	})
	return res
}
