// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file turns a matrix cell (package name + raw token) into a Dependency.
//
// A token is tried, in order, as a constraint expression (">=1.0,<2"), as a
// bare version ("3.8", "1.0rc1") and finally as a source locator
// ("git+https://..."). Bare versions get a default operator: exact equality,
// except for major.minor versions which mean "any patch release of".

package matrix

import (
	"errors"
	"net/url"
	"strings"

	"github.com/specialistvlad/ptm/internal/pyver"
)

// Dependency is a canonical package name with either a normalised
// constraint or a pinned source locator.
type Dependency struct {
	Package   string
	Specifier pyver.SpecifierSet
	Locator   string
}

// String renders the requirement line for the dependency, for example
// "numpy~=1.26.0" or "attrs @ git+https://github.com/python-attrs/attrs".
func (d Dependency) String() string {
	if d.Locator != "" {
		return d.Package + " @ " + d.Locator
	}
	return d.Package + d.Specifier.String()
}

var errUnrecognizedToken = errors.New("not a version, a constraint or a source locator")

// ParseDependency normalises the token declared for package pkg.
func ParseDependency(pkg, token string) (Dependency, error) {
	name, err := pyver.CanonicalizeName(pkg, true)
	if err != nil {
		return Dependency{}, &InvalidDependencyError{Package: pkg, Token: token, Err: err}
	}

	if spec, err := pyver.ParseSpecifierSet(token); err == nil {
		return Dependency{Package: name, Specifier: spec}, nil
	}

	if v, err := pyver.ParseVersion(token); err == nil {
		var clause string
		switch {
		case v.IsPrerelease() || v.IsPostrelease() || v.Local != "":
			clause = "==" + v.String()
		case strings.Count(strings.TrimSpace(token), ".") == 1:
			clause = "~=" + v.String() + ".0"
		default:
			clause = "==" + v.String()
		}
		spec, err := pyver.ParseSpecifierSet(clause)
		if err != nil {
			return Dependency{}, &InvalidDependencyError{Package: pkg, Token: token, Err: err}
		}
		return Dependency{Package: name, Specifier: spec}, nil
	}

	if loc, ok := sourceLocator(token); ok {
		return Dependency{Package: name, Locator: loc}, nil
	}
	return Dependency{}, &InvalidDependencyError{Package: pkg, Token: token, Err: errUnrecognizedToken}
}

// sourceLocator accepts URLs with a scheme and a host, and file: URLs.
func sourceLocator(token string) (string, bool) {
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t\n;") {
		return "", false
	}
	u, err := url.Parse(token)
	if err != nil || u.Scheme == "" {
		return "", false
	}
	if u.Host == "" && u.Scheme != "file" {
		return "", false
	}
	return token, true
}

// constraintsString joins the dependency strings the way they are exported
// to a run's environment.
func constraintsString(deps []Dependency) string {
	parts := make([]string, len(deps))
	for i, d := range deps {
		parts[i] = d.String()
	}
	return strings.Join(parts, ";")
}
