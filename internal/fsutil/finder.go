// Package fsutil provides file system utility functions.
package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNotFound is returned by FindUpwards when no candidate exists.
var ErrNotFound = errors.New("no configuration file found")

// FindUpwards searches start and each of its parents for the first of names
// that exists as a regular file, and returns its full path. Within one
// directory, names are tried in order.
func FindUpwards(start string, names ...string) (string, error) {
	if len(names) == 0 {
		panic("names must not be empty")
	}

	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	for {
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			info, err := os.Stat(candidate)
			if err == nil && info.Mode().IsRegular() {
				return candidate, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w: looked for %v from %s upwards", ErrNotFound, names, start)
		}
		dir = parent
	}
}
