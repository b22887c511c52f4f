// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package matrix

// Filter selects runs by environment name and by tag. An empty set places
// no restriction.
type Filter struct {
	Envs []string
	Tags []string
}

// AllowsEnv reports whether the environment called name is selected.
func (f Filter) AllowsEnv(name string) bool {
	if len(f.Envs) == 0 {
		return true
	}
	for _, e := range f.Envs {
		if e == name {
			return true
		}
	}
	return false
}

// Runs returns the runs matching f in expansion order. It reads the
// already expanded tree and never expands again.
func (c *Config) Runs(f Filter) []*Run {
	var out []*Run
	for _, env := range c.Environments {
		if !f.AllowsEnv(env.Name) {
			continue
		}
		for _, g := range env.RunGroups {
			for _, run := range g.Runs {
				if len(f.Tags) > 0 && !run.HasTag(f.Tags...) {
					continue
				}
				out = append(out, run)
			}
		}
	}
	return out
}

// Lookup finds a run by identity, ignoring case.
func (c *Config) Lookup(id string) (*Run, bool) {
	return c.Registry.Lookup(id)
}

// Complete lists the identities starting with prefix.
func (c *Config) Complete(prefix string) []string {
	return c.Registry.Complete(prefix)
}
