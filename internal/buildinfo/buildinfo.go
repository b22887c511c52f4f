// Package buildinfo holds values stamped into the binary at link time.
package buildinfo

// Version is the ptm release. It is overridden with
// -ldflags "-X github.com/specialistvlad/ptm/internal/buildinfo.Version=..."
// and is part of every run identity, so a new release invalidates
// previously generated runs.
var Version = "0.3.0"
