package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// ManifestFileName is written into every environment directory.
const ManifestFileName = "manifest.msgpack"

// Entry records one generated run.
type Entry struct {
	ID           string    `msgpack:"id"`
	Slug         string    `msgpack:"slug"`
	Python       string    `msgpack:"python"`
	Dependencies []string  `msgpack:"deps"`
	Artifact     string    `msgpack:"artifact"`
	GeneratedAt  time.Time `msgpack:"generated_at"`
}

// Manifest lists the runs generated for one environment.
type Manifest struct {
	Env     string           `msgpack:"env"`
	Version string           `msgpack:"version"`
	Runs    map[string]Entry `msgpack:"runs"`
}

// NewManifest creates an empty manifest.
func NewManifest(env, version string) *Manifest {
	return &Manifest{Env: env, Version: version, Runs: make(map[string]Entry)}
}

// LoadManifest reads the manifest in envDir. A missing manifest yields an
// empty one.
func LoadManifest(envDir, env, version string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(envDir, ManifestFileName))
	if errors.Is(err, os.ErrNotExist) {
		return NewManifest(env, version), nil
	}
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := msgpack.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding manifest in %s: %w", envDir, err)
	}
	if m.Runs == nil {
		m.Runs = make(map[string]Entry)
	}
	// Manifests from another release describe runs whose identities can
	// no longer be produced.
	if m.Version != version {
		return NewManifest(env, version), nil
	}
	return &m, nil
}

// Save writes the manifest into envDir.
func (m *Manifest) Save(envDir string) error {
	data, err := msgpack.Marshal(m)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(envDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(envDir, ManifestFileName), data, 0o644)
}

// Generated reports whether the run is recorded and its directory still
// holds the env descriptor.
func (m *Manifest) Generated(envDir, id string) bool {
	if _, ok := m.Runs[id]; !ok {
		return false
	}
	_, err := os.Stat(filepath.Join(envDir, id, EnvFileName))
	return err == nil
}

// Prune removes run directories and manifest entries that are not in keep.
// It returns the removed identities in sorted order.
func (m *Manifest) Prune(envDir string, keep map[string]bool) ([]string, error) {
	entries, err := os.ReadDir(envDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var removed []string
	for _, e := range entries {
		if !e.IsDir() || keep[e.Name()] {
			continue
		}
		if err := os.RemoveAll(filepath.Join(envDir, e.Name())); err != nil {
			return removed, err
		}
		removed = append(removed, e.Name())
	}
	for id := range m.Runs {
		if !keep[id] {
			delete(m.Runs, id)
		}
	}
	sort.Strings(removed)
	return removed, nil
}
