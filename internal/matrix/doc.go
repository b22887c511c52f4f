// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package matrix is the configuration resolution and run-identity engine.
//
// # Core Concepts
//
// The scope tree is owned top-down:
//
//   - Config: one per project. Holds project-wide defaults (strategy,
//     setenv, groups, extras), the alias table and the run registry.
//
//   - Environment: a named child of Config with its own overrides and an
//     ordered list of matrix blocks.
//
//   - RunGroup: one matrix block. Its axes are expanded with a cartesian
//     product into Runs.
//
//   - Run: one fully resolved point of the matrix. A Run does not point back
//     into the tree; its effective properties are flattened at construction
//     time and it only remembers where it came from (Scope) for reporting.
//
// Every Run is identified by a content hash over everything that changes
// the environment it describes. Two runs with the same hash are the same
// environment and only the first one is kept.
package matrix
