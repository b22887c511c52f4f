// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file contains the property resolver: the rules that combine the
// Config, Environment and RunGroup scopes into a Run's effective properties.
//
//   - strategy: most specific non-empty value wins, nothing is merged.
//   - setenv:   maps are layered from least to most specific; later layers
//     override keys set by earlier ones.
//   - tags:     union of Environment and RunGroup.
//   - groups, extras: union of Config, Environment and RunGroup.
//   - markers:  Environment markers followed by RunGroup markers; all of
//     them must hold.
//
// Resolve is pure. It can be called again at any time on the same tree and
// returns the same result.

package matrix

import (
	"fmt"
	"sort"

	"dario.cat/mergo"

	"github.com/specialistvlad/ptm/internal/marker"
)

// Resolve computes the effective properties shared by every run of group.
func Resolve(cfg *Config, env *Environment, group *RunGroup) (Properties, error) {
	setenv, err := layerSetenv(cfg.Setenv, env.Setenv, group.Setenv)
	if err != nil {
		return Properties{}, fmt.Errorf("merging setenv for env %q matrix[%d]: %w", env.Name, group.Index, err)
	}
	return Properties{
		Strategy: firstStrategy(group.Strategy, env.Strategy, cfg.Strategy),
		Setenv:   setenv,
		Tags:     union(env.Tags, group.Tags),
		Groups:   union(cfg.Groups, env.Groups, group.Groups),
		Extras:   union(cfg.Extras, env.Extras, group.Extras),
		Markers:  concatMarkers(env.Markers, group.Markers),
	}, nil
}

func firstStrategy(candidates ...Strategy) Strategy {
	for _, s := range candidates {
		if s != "" {
			return s
		}
	}
	return ""
}

func layerSetenv(layers ...map[string]string) (map[string]string, error) {
	merged := make(map[string]string)
	for _, layer := range layers {
		if len(layer) == 0 {
			continue
		}
		if err := mergo.Merge(&merged, layer, mergo.WithOverride); err != nil {
			return nil, err
		}
	}
	return merged, nil
}

// union returns the sorted set of all values.
func union(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, v := range list {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

func concatMarkers(lists ...[]*marker.Marker) []*marker.Marker {
	var out []*marker.Marker
	for _, list := range lists {
		out = append(out, list...)
	}
	return out
}
