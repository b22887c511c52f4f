// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package matrix

import (
	"errors"
	"fmt"
)

// ErrConfiguration is matched (with errors.Is) by every error caused by a
// structurally invalid configuration document.
var ErrConfiguration = errors.New("configuration error")

// ConfigurationError reports a missing or malformed part of the document.
// Path is the dotted location of the offending value.
type ConfigurationError struct {
	Path string
	Msg  string
	Err  error
}

func (e *ConfigurationError) Error() string {
	msg := e.Msg
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	if e.Path == "" {
		return fmt.Sprintf("configuration error: %s", msg)
	}
	return fmt.Sprintf("configuration error at %s: %s", e.Path, msg)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// MissingPythonAxisError is returned when a matrix block does not define the
// reserved "python" axis. No run of that block is constructed.
type MissingPythonAxisError struct {
	Env   string
	Group int
}

func (e *MissingPythonAxisError) Error() string {
	return fmt.Sprintf("configuration error at env %q matrix[%d]: matrix entries must include %q", e.Env, e.Group, PythonAxis)
}

func (e *MissingPythonAxisError) Is(target error) bool { return target == ErrConfiguration }

// InvalidDependencyError reports a matrix row whose package name or version
// token could not be normalised. Only that row is dropped.
type InvalidDependencyError struct {
	Env     string
	Group   int
	Row     int
	Package string
	Token   string
	Err     error
}

func (e *InvalidDependencyError) Error() string {
	loc := ""
	if e.Env != "" {
		loc = fmt.Sprintf("env %q matrix[%d] row %d: ", e.Env, e.Group, e.Row)
	}
	return fmt.Sprintf("%sinvalid dependency specifier %s=%q: %v", loc, e.Package, e.Token, e.Err)
}

func (e *InvalidDependencyError) Unwrap() error { return e.Err }

// DuplicateRunError is returned when a run resolves to an identity that is
// already registered. The caller decides whether to warn or abort.
type DuplicateRunError struct {
	ID       string
	Run      *Run
	Existing *Run
}

func (e *DuplicateRunError) Error() string {
	return fmt.Sprintf("run %s in %s (matrix[%d] row %d) has a duplicate in %s: %s",
		e.ID, e.Run.Scope.Env, e.Run.Scope.Group, e.Run.Scope.Row, e.Existing.Scope.Env, e.Existing.Name())
}

// RemoteConfigError wraps a failure to fetch or parse a remote environment
// definition. It is always fatal.
type RemoteConfigError struct {
	Env     string
	Locator string
	Err     error
}

func (e *RemoteConfigError) Error() string {
	return fmt.Sprintf("fetching environment %q from %s: %v", e.Env, e.Locator, e.Err)
}

func (e *RemoteConfigError) Unwrap() error { return e.Err }
