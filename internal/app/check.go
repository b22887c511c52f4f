package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"github.com/specialistvlad/ptm/internal/ctxlog"
	"github.com/specialistvlad/ptm/internal/matrix"
	"github.com/specialistvlad/ptm/internal/pyver"
)

// ErrNotInRun is returned by Check outside a run's environment.
var ErrNotInRun = errors.New(matrix.EnvPython + " is not set, not inside a run")

// Installation describes the interpreter a command runs under.
type Installation struct {
	Python string `json:"python"`
	// Packages maps the requested distribution names to their installed
	// versions. Missing distributions are absent.
	Packages map[string]string `json:"packages"`
}

// Inspector reports the installation, looking up the given distributions.
type Inspector func(ctx context.Context, packages []string) (Installation, error)

const inspectScript = `import json, sys, platform
from importlib import metadata
out = {"python": platform.python_version(), "packages": {}}
for name in sys.argv[1:]:
    try:
        out["packages"][name] = metadata.version(name)
    except metadata.PackageNotFoundError:
        pass
print(json.dumps(out))
`

// PythonInspector asks the given interpreter about itself.
func PythonInspector(executable string) Inspector {
	return func(ctx context.Context, packages []string) (Installation, error) {
		args := append([]string{"-c", inspectScript}, packages...)
		out, err := exec.CommandContext(ctx, executable, args...).Output()
		if err != nil {
			return Installation{}, fmt.Errorf("inspecting %s: %w", executable, err)
		}
		var inst Installation
		if err := json.Unmarshal(out, &inst); err != nil {
			return Installation{}, fmt.Errorf("decoding %s output: %w", executable, err)
		}
		return inst, nil
	}
}

// Mismatch is one expectation the installation does not meet.
type Mismatch struct {
	Subject string
	Want    string
	Got     string
}

// CheckError lists every mismatch found by Check.
type CheckError struct {
	Mismatches []Mismatch
}

func (e *CheckError) Error() string {
	lines := make([]string, len(e.Mismatches))
	for i, m := range e.Mismatches {
		got := m.Got
		if got == "" {
			got = "not installed"
		}
		lines[i] = fmt.Sprintf("%s: want %s, got %s", m.Subject, m.Want, got)
	}
	return "environment does not match its run:\n  " + strings.Join(lines, "\n  ")
}

type requirement struct {
	name    string
	spec    pyver.SpecifierSet
	locator string
}

var requirementNameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*`)

// parseConstraints reads the PTM_CONSTRAINTS form written at generation.
func parseConstraints(s string) ([]requirement, error) {
	var reqs []requirement
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if name, loc, ok := strings.Cut(part, " @ "); ok {
			reqs = append(reqs, requirement{name: strings.TrimSpace(name), locator: strings.TrimSpace(loc)})
			continue
		}
		name := requirementNameRe.FindString(part)
		if name == "" {
			return nil, fmt.Errorf("invalid constraint %q", part)
		}
		spec, err := pyver.ParseSpecifierSet(part[len(name):])
		if err != nil {
			return nil, fmt.Errorf("invalid constraint %q: %w", part, err)
		}
		reqs = append(reqs, requirement{name: name, spec: spec})
	}
	return reqs, nil
}

// Check verifies that the installation matches the run described by vars:
// the interpreter version starts with PTM_PYTHON and every constraint of
// PTM_CONSTRAINTS is satisfied. Locator-pinned dependencies only need to be
// installed.
func Check(ctx context.Context, vars map[string]string, inspect Inspector) error {
	logger := ctxlog.FromContext(ctx)

	wantPython := vars[matrix.EnvPython]
	if wantPython == "" {
		return ErrNotInRun
	}
	reqs, err := parseConstraints(vars[matrix.EnvConstraints])
	if err != nil {
		return err
	}
	names := make([]string, len(reqs))
	for i, r := range reqs {
		names[i] = r.name
	}

	inst, err := inspect(ctx, names)
	if err != nil {
		return err
	}

	var mismatches []Mismatch
	if inst.Python != wantPython && !strings.HasPrefix(inst.Python, wantPython+".") {
		mismatches = append(mismatches, Mismatch{Subject: "python", Want: wantPython, Got: inst.Python})
	}
	for _, r := range reqs {
		got, installed := inst.Packages[r.name]
		want := r.spec.String()
		if r.locator != "" {
			want = "@ " + r.locator
		}
		if !installed {
			mismatches = append(mismatches, Mismatch{Subject: r.name, Want: want})
			continue
		}
		if r.locator != "" {
			logger.Debug("Pinned dependency installed.", "package", r.name, "version", got)
			continue
		}
		v, err := pyver.ParseVersion(got)
		if err != nil || !r.spec.Contains(v) {
			mismatches = append(mismatches, Mismatch{Subject: r.name, Want: want, Got: got})
			continue
		}
		logger.Debug("Constraint satisfied.", "package", r.name, "constraint", want, "version", got)
	}

	if len(mismatches) > 0 {
		return &CheckError{Mismatches: mismatches}
	}
	logger.Info("Environment matches its run.", "env", vars[matrix.EnvName], "python", inst.Python, "dependencies", len(reqs))
	return nil
}
