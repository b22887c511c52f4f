// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package matrix

import (
	"sort"
	"strings"
)

// Registry indexes the runs of one Config by identity and by tag. It is
// written only while the tree is built and is read-only afterwards.
type Registry struct {
	ids     map[string]*Run
	order   []*Run
	tags    map[string][]*Run
	tagSeen []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		ids:  make(map[string]*Run),
		tags: make(map[string][]*Run),
	}
}

// Add registers run under its identity and under every tag it carries. A
// run whose identity is already taken is rejected with a *DuplicateRunError
// and leaves the registry unchanged.
func (r *Registry) Add(run *Run) error {
	id := run.ID()
	if existing, ok := r.ids[id]; ok {
		return &DuplicateRunError{ID: id, Run: run, Existing: existing}
	}
	r.ids[id] = run
	r.order = append(r.order, run)
	for _, tag := range run.Properties.Tags {
		if _, ok := r.tags[tag]; !ok {
			r.tagSeen = append(r.tagSeen, tag)
		}
		r.tags[tag] = append(r.tags[tag], run)
	}
	return nil
}

// Lookup finds a run by its identity, ignoring case.
func (r *Registry) Lookup(id string) (*Run, bool) {
	run, ok := r.ids[strings.ToLower(strings.TrimSpace(id))]
	return run, ok
}

// Complete returns the sorted identities starting with prefix.
func (r *Registry) Complete(prefix string) []string {
	prefix = strings.ToLower(prefix)
	var out []string
	for id := range r.ids {
		if strings.HasPrefix(id, prefix) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Tagged returns the runs carrying tag, in registration order.
func (r *Registry) Tagged(tag string) []*Run {
	return append([]*Run(nil), r.tags[tag]...)
}

// Tags returns every tag in first-seen order.
func (r *Registry) Tags() []string {
	return append([]string(nil), r.tagSeen...)
}

// Runs returns every registered run in registration order.
func (r *Registry) Runs() []*Run {
	return append([]*Run(nil), r.order...)
}

// Len is the number of registered runs.
func (r *Registry) Len() int {
	return len(r.ids)
}
