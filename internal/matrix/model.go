// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the scope tree: Config owns Environments, Environments
// own RunGroups, RunGroups own the Runs they expand into.
//
// Why flatten properties into the Run?
//
// A Run's effective strategy, setenv, tags, groups, extras and markers are
// derived from the three scopes above it. Resolving them once, while the
// tree is being built, lets a Run be handed to drivers, writers and worker
// goroutines without dragging the whole tree along, and guarantees that the
// properties a Run was hashed with are the properties it is generated with.

package matrix

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/specialistvlad/ptm/internal/marker"
)

// PythonAxis is the reserved axis naming the interpreter version.
const PythonAxis = "python"

// Bookkeeping variables exported to every run. Variables with this prefix
// never contribute to a run's identity.
const (
	InternalEnvPrefix = "PTM_"
	EnvName           = "PTM_ENV"
	EnvPython         = "PTM_PYTHON"
	EnvConstraints    = "PTM_CONSTRAINTS"
	EnvRunID          = "PTM_RUN"
)

// Strategy selects how the driver resolves versions left open by the
// constraints.
type Strategy string

const (
	StrategyHighest      Strategy = "highest"
	StrategyLowest       Strategy = "lowest"
	StrategyLowestDirect Strategy = "lowest-direct"
)

// ParseStrategy validates a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(s); st {
	case StrategyHighest, StrategyLowest, StrategyLowestDirect:
		return st, nil
	}
	return "", fmt.Errorf("unknown resolution strategy %q (want highest, lowest or lowest-direct)", s)
}

// Options are the override fields shared by every scope.
type Options struct {
	Strategy Strategy
	Setenv   map[string]string
	Tags     []string
	Groups   []string
	Extras   []string
	Markers  []*marker.Marker
}

// Config is the root of the scope tree.
type Config struct {
	Options

	ProjectDir   string
	DotDir       string
	Driver       string
	Aliases      map[string]string
	Environments []*Environment
	Registry     *Registry

	// Problems collects per-row errors (invalid dependencies, duplicate
	// runs) that did not abort the build.
	Problems []error
}

// ResolveAlias substitutes a matrix token through the alias table.
func (c *Config) ResolveAlias(token string) string {
	if v, ok := c.Aliases[token]; ok {
		return v
	}
	return token
}

// Directory is where generated artifacts live.
func (c *Config) Directory() string {
	return filepath.Join(c.ProjectDir, c.DotDir)
}

// EnvironmentDirectory is the artifact directory of one environment.
func (c *Config) EnvironmentDirectory(env string) string {
	return filepath.Join(c.Directory(), env)
}

// RunDirectory is the artifact directory of one run, keyed by its identity.
func (c *Config) RunDirectory(run *Run) string {
	return run.Directory(c.Directory())
}

// Environment returns the environment with the given name.
func (c *Config) Environment(name string) (*Environment, bool) {
	for _, env := range c.Environments {
		if env.Name == name {
			return env, true
		}
	}
	return nil, false
}

// Environment is a named set of matrix blocks.
type Environment struct {
	Options

	Name string
	// Source is the locator the definition was fetched from, if any.
	Source    string
	RunGroups []*RunGroup
}

// Axis is one named dimension of a matrix with its candidate values.
type Axis struct {
	Name   string
	Values []string
}

// RunGroup is one matrix block.
type RunGroup struct {
	Options

	Index  int
	Matrix []Axis
	Runs   []*Run
}

// HasAxis reports whether the block declares the named axis.
func (g *RunGroup) HasAxis(name string) bool {
	for _, a := range g.Matrix {
		if a.Name == name {
			return true
		}
	}
	return false
}

// Scope locates a run in the source configuration. It is a non-owning
// reference used for reporting only.
type Scope struct {
	Env   string
	Group int
	Row   int
}

// Properties are the effective, flattened properties of a run.
type Properties struct {
	Strategy Strategy
	Setenv   map[string]string
	Tags     []string
	Groups   []string
	Extras   []string
	Markers  []*marker.Marker
}

// Run is one concrete point of the matrix. It is immutable once built; ID
// and Slug are computed on first use and cached.
type Run struct {
	Python       string
	Dependencies []Dependency
	Scope        Scope
	Properties   Properties

	idOnce   sync.Once
	id       string
	slugOnce sync.Once
	slug     string
}

// NewRun builds a run from already normalised parts.
func NewRun(python string, deps []Dependency, scope Scope, props Properties) *Run {
	return &Run{
		Python:       python,
		Dependencies: append([]Dependency(nil), deps...),
		Scope:        scope,
		Properties:   props,
	}
}

// ID returns the run identity, computing it on first use.
func (r *Run) ID() string {
	r.idOnce.Do(func() {
		r.id = Identity(r)
	})
	return r.id
}

// Name joins the interpreter version and the dependencies.
func (r *Run) Name() string {
	parts := make([]string, 0, len(r.Dependencies)+1)
	parts = append(parts, r.Python)
	for _, d := range r.Dependencies {
		parts = append(parts, d.String())
	}
	return strings.Join(parts, ",")
}

// Slug is the human readable description of the run.
func (r *Run) Slug() string {
	r.slugOnce.Do(func() {
		deps := make([]string, len(r.Dependencies))
		for i, d := range r.Dependencies {
			deps[i] = d.String()
		}
		r.slug = fmt.Sprintf("%s: python=%s; %s", r.Scope.Env, r.Python, strings.Join(deps, ";"))
	})
	return r.slug
}

func (r *Run) String() string {
	return fmt.Sprintf("[%s] %s", r.ID(), r.Slug())
}

// Directory returns the run's artifact directory under root.
func (r *Run) Directory(root string) string {
	return filepath.Join(root, r.Scope.Env, r.ID())
}

// Setenv returns the variables exported to the run: the merged scope
// variables plus the bookkeeping variables describing the run itself.
func (r *Run) Setenv() map[string]string {
	env := make(map[string]string, len(r.Properties.Setenv)+3)
	for k, v := range r.Properties.Setenv {
		env[k] = v
	}
	env[EnvName] = r.Scope.Env
	env[EnvPython] = r.Python
	env[EnvConstraints] = constraintsString(r.Dependencies)
	return env
}

// HasTag reports whether the run carries any of the given tags.
func (r *Run) HasTag(tags ...string) bool {
	for _, t := range r.Properties.Tags {
		for _, want := range tags {
			if t == want {
				return true
			}
		}
	}
	return false
}

// Eligible evaluates the run's markers against env.
func (r *Run) Eligible(env marker.Environment) (bool, error) {
	return marker.EvaluateAll(r.Properties.Markers, env)
}
