package testutil

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/specialistvlad/ptm/internal/matrix"
	"github.com/specialistvlad/ptm/internal/registry"
)

// FakeArtifact is the file the fake driver writes into each run directory.
const FakeArtifact = "fake.lock"

// FakeDriver is a driver for tests. It records every call, tracks how many
// Generate calls overlap and can be told to fail for chosen runs.
type FakeDriver struct {
	// Sleep delays every Generate call.
	Sleep time.Duration
	// FailFor makes Generate fail for these run identities.
	FailFor map[string]bool
	// Env is returned by every bootstrapped handle.
	Env []string

	mu           sync.Mutex
	inFlight     int
	maxInFlight  int
	Generated    map[string]*ExecutionRecord
	Bootstrapped []string
	Closed       int
}

var _ registry.Driver = (*FakeDriver)(nil)

// NewFakeDriver creates a FakeDriver.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{Generated: make(map[string]*ExecutionRecord)}
}

// Module returns a registry.Module registering d under name.
func (d *FakeDriver) Module(name string) registry.Module {
	return fakeModule{name: name, driver: d}
}

// Generate writes FakeArtifact containing the run's slug.
func (d *FakeDriver) Generate(ctx context.Context, run *matrix.Run, dir string) (registry.Artifact, error) {
	d.mu.Lock()
	d.inFlight++
	if d.inFlight > d.maxInFlight {
		d.maxInFlight = d.inFlight
	}
	d.mu.Unlock()

	start := time.Now()
	select {
	case <-time.After(d.Sleep):
	case <-ctx.Done():
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.inFlight--

	if d.FailFor[run.ID()] {
		return registry.Artifact{}, &registry.GenerationFailedError{
			Driver:     "fake",
			RunID:      run.ID(),
			Diagnostic: "no solution found",
			Err:        errors.New("exit status 1"),
		}
	}
	if err := os.WriteFile(filepath.Join(dir, FakeArtifact), []byte(run.Slug()+"\n"), 0o644); err != nil {
		return registry.Artifact{}, err
	}
	d.Generated[run.ID()] = &ExecutionRecord{Start: start, End: time.Now()}
	return registry.Artifact{Path: FakeArtifact}, nil
}

// Bootstrap records the call and returns a handle exporting Env.
func (d *FakeDriver) Bootstrap(ctx context.Context, run *matrix.Run, dir string) (registry.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Bootstrapped = append(d.Bootstrapped, run.ID())
	return &fakeHandle{driver: d}, nil
}

// MaxConcurrency reports the largest number of overlapping Generate calls.
func (d *FakeDriver) MaxConcurrency() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.maxInFlight
}

// GeneratedCount returns how many runs were generated.
func (d *FakeDriver) GeneratedCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Generated)
}

type fakeHandle struct {
	driver *FakeDriver
}

func (h *fakeHandle) Environ() []string {
	return h.driver.Env
}

func (h *fakeHandle) Close() error {
	h.driver.mu.Lock()
	defer h.driver.mu.Unlock()
	h.driver.Closed++
	return nil
}

type fakeModule struct {
	name   string
	driver *FakeDriver
}

func (m fakeModule) Register(ctx context.Context, r *registry.Registry) {
	r.Register(ctx, m.name, m.driver)
}
