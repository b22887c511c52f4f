package registry

import (
	"context"
	"fmt"

	"github.com/specialistvlad/ptm/internal/matrix"
)

// Driver builds the environment for a run. Implementations must be safe for
// concurrent use: Generate is called from several workers at once, each with
// a distinct run and directory.
type Driver interface {
	// Generate writes the artifacts needed to bootstrap the run later
	// (usually a pinned requirements file) into dir.
	Generate(ctx context.Context, run *matrix.Run, dir string) (Artifact, error)

	// Bootstrap materialises the environment described by the artifacts in
	// dir. The returned handle must be closed when the caller is done.
	Bootstrap(ctx context.Context, run *matrix.Run, dir string) (Handle, error)
}

// Artifact describes what Generate produced.
type Artifact struct {
	// Path is the primary artifact, relative paths are relative to the run
	// directory.
	Path string
}

// Handle is a bootstrapped environment.
type Handle interface {
	// Environ returns KEY=value pairs to overlay on the process environment
	// of commands executed inside the environment.
	Environ() []string
	Close() error
}

// GenerationFailedError carries the diagnostic reported by a driver's
// external tool.
type GenerationFailedError struct {
	Driver     string
	RunID      string
	Diagnostic string
	Err        error
}

func (e *GenerationFailedError) Error() string {
	msg := fmt.Sprintf("driver %s failed for run %s", e.Driver, e.RunID)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Diagnostic != "" {
		msg += "\n" + e.Diagnostic
	}
	return msg
}

func (e *GenerationFailedError) Unwrap() error { return e.Err }
