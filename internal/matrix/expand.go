// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package matrix

import (
	"context"
	"errors"

	"github.com/specialistvlad/ptm/internal/ctxlog"
)

// Product returns the cartesian product of the axis values. Rows follow the
// axis order with the last axis varying fastest. An axis without values
// yields no rows.
func Product(axes []Axis) [][]string {
	if len(axes) == 0 {
		return nil
	}
	total := 1
	for _, a := range axes {
		total *= len(a.Values)
	}
	rows := make([][]string, 0, total)
	idx := make([]int, len(axes))
	for n := 0; n < total; n++ {
		row := make([]string, len(axes))
		for i, a := range axes {
			row[i] = a.Values[idx[i]]
		}
		rows = append(rows, row)
		for i := len(axes) - 1; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(axes[i].Values) {
				break
			}
			idx[i] = 0
		}
	}
	return rows
}

// expand turns a matrix block into runs. A missing python axis aborts the
// block before any run exists. Rows with an invalid dependency or an
// identity that is already registered are recorded in cfg.Problems and
// skipped.
func expand(ctx context.Context, cfg *Config, env *Environment, group *RunGroup) error {
	logger := ctxlog.FromContext(ctx).With("env", env.Name, "matrix", group.Index)

	pythonAt := -1
	for i, a := range group.Matrix {
		if a.Name == PythonAxis {
			pythonAt = i
			break
		}
	}
	if pythonAt < 0 {
		return &MissingPythonAxisError{Env: env.Name, Group: group.Index}
	}

	props, err := Resolve(cfg, env, group)
	if err != nil {
		return err
	}

	for rowIdx, row := range Product(group.Matrix) {
		python := cfg.ResolveAlias(row[pythonAt])
		deps, err := rowDependencies(cfg, group.Matrix, row, pythonAt)
		if err != nil {
			var invalid *InvalidDependencyError
			if errors.As(err, &invalid) {
				invalid.Env, invalid.Group, invalid.Row = env.Name, group.Index, rowIdx
			}
			logger.Warn("Skipping matrix row.", "row", rowIdx, "error", err)
			cfg.Problems = append(cfg.Problems, err)
			continue
		}

		run := NewRun(python, deps, Scope{Env: env.Name, Group: group.Index, Row: rowIdx}, props)
		if err := cfg.Registry.Add(run); err != nil {
			var dup *DuplicateRunError
			if errors.As(err, &dup) {
				logger.Warn("Duplicate run dropped.",
					"id", dup.ID, "run", run.Name(), "existing", dup.Existing.Name(), "existing_env", dup.Existing.Scope.Env)
			}
			cfg.Problems = append(cfg.Problems, err)
			continue
		}
		group.Runs = append(group.Runs, run)
	}
	logger.Debug("Matrix block expanded.", "runs", len(group.Runs))
	return nil
}

func rowDependencies(cfg *Config, axes []Axis, row []string, pythonAt int) ([]Dependency, error) {
	deps := make([]Dependency, 0, len(axes)-1)
	for i, a := range axes {
		if i == pythonAt {
			continue
		}
		dep, err := ParseDependency(a.Name, cfg.ResolveAlias(row[i]))
		if err != nil {
			return nil, err
		}
		deps = append(deps, dep)
	}
	return deps, nil
}
