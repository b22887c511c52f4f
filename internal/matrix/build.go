// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package matrix

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/ptm/internal/config"
	"github.com/specialistvlad/ptm/internal/ctxlog"
	"github.com/specialistvlad/ptm/internal/marker"
)

// Defaults applied when the document leaves a setting out.
const (
	DefaultDotDir = ".ptm"
	DefaultDriver = "uv"
)

// DefaultGroups is the dependency group selection used when none is set.
var DefaultGroups = []string{"dev"}

// DriverSet is the subset of a driver registry the builder needs.
type DriverSet interface {
	Has(name string) bool
}

// BuildOptions carry the collaborators injected into Build.
type BuildOptions struct {
	// ProjectDir is the directory holding the configuration file.
	ProjectDir string
	// Fetcher resolves environments declared as a locator string.
	Fetcher config.Fetcher
	// Drivers, when set, is used to validate the configured driver name.
	Drivers DriverSet
}

// Build assembles the scope tree from a parsed document and expands every
// matrix block. Structural problems abort the build; per-row problems are
// collected in Config.Problems.
func Build(ctx context.Context, doc *config.Table, opts BuildOptions) (*Config, error) {
	logger := ctxlog.FromContext(ctx)

	section, err := toolSection(doc)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ProjectDir: opts.ProjectDir,
		DotDir:     DefaultDotDir,
		Driver:     DefaultDriver,
		Aliases:    map[string]string{},
		Registry:   NewRegistry(),
	}
	cfg.Groups = append([]string(nil), DefaultGroups...)

	if err := readOptions(section, "tool.ptm", "", &cfg.Options, false); err != nil {
		return nil, err
	}
	if s, ok, err := section.String("dot_dir"); err != nil {
		return nil, configErr("tool.ptm", err)
	} else if ok {
		if s == "" || filepath.IsAbs(s) {
			return nil, &ConfigurationError{Path: "tool.ptm.dot_dir", Msg: "must be a relative directory name"}
		}
		cfg.DotDir = s
	}
	if aliases, ok, err := section.StringMap("aliases"); err != nil {
		return nil, configErr("tool.ptm", err)
	} else if ok {
		cfg.Aliases = aliases
	}
	if d, ok, err := section.String("driver"); err != nil {
		return nil, configErr("tool.ptm", err)
	} else if ok {
		cfg.Driver = d
	}
	if opts.Drivers != nil && !opts.Drivers.Has(cfg.Driver) {
		return nil, &ConfigurationError{Path: "tool.ptm.driver", Msg: fmt.Sprintf("unknown driver %q", cfg.Driver)}
	}

	envs, ok, err := section.SubTable("env")
	if err != nil || !ok {
		return nil, &ConfigurationError{Path: "tool.ptm.env", Msg: "must be configured as a table of environments", Err: err}
	}

	for _, name := range envs.Keys() {
		raw, _ := envs.Get(name)
		env, err := buildEnvironment(ctx, cfg, name, raw, opts.Fetcher)
		if err != nil {
			return nil, err
		}
		cfg.Environments = append(cfg.Environments, env)
	}

	logger.Debug("Configuration built.",
		"environments", len(cfg.Environments), "runs", cfg.Registry.Len(), "problems", len(cfg.Problems))
	return cfg, nil
}

func toolSection(doc *config.Table) (*config.Table, error) {
	tool, ok, err := doc.SubTable("tool")
	if err != nil || !ok {
		return nil, &ConfigurationError{Path: "tool.ptm", Msg: "must be configured", Err: err}
	}
	section, ok, err := tool.SubTable("ptm")
	if err != nil || !ok {
		return nil, &ConfigurationError{Path: "tool.ptm", Msg: "must be configured", Err: err}
	}
	return section, nil
}

func buildEnvironment(ctx context.Context, cfg *Config, name string, raw any, fetcher config.Fetcher) (*Environment, error) {
	path := "tool.ptm.env." + name
	env := &Environment{Name: name}

	var tbl *config.Table
	switch v := raw.(type) {
	case string:
		if fetcher == nil {
			return nil, &RemoteConfigError{Env: name, Locator: v, Err: errors.New("no remote fetcher configured")}
		}
		ctxlog.FromContext(ctx).Debug("Fetching remote environment.", "env", name, "locator", v)
		fetched, err := fetcher.Fetch(ctx, v)
		if err != nil {
			return nil, &RemoteConfigError{Env: name, Locator: v, Err: err}
		}
		env.Source = v
		tbl = fetched
	case *config.Table:
		tbl = v
	default:
		return nil, &ConfigurationError{Path: path, Msg: "must be a table or a locator string, got " + config.KindOf(raw)}
	}

	if err := readOptions(tbl, path, "", &env.Options, true); err != nil {
		return nil, err
	}

	blocks, _, err := tbl.Tables("matrix")
	if err != nil {
		return nil, configErr(path, err)
	}
	for i, block := range blocks {
		group, err := buildGroup(block, fmt.Sprintf("%s.matrix[%d]", path, i), i)
		if err != nil {
			return nil, err
		}
		if err := expand(ctx, cfg, env, group); err != nil {
			return nil, err
		}
		env.RunGroups = append(env.RunGroups, group)
	}
	return env, nil
}

// groupOptions are the keys of a matrix block that are not axes.
var groupOptions = map[string]bool{
	"strategy": true, "setenv": true, "tags": true, "groups": true, "extras": true, "markers": true,
}

func buildGroup(block *config.Table, path string, index int) (*RunGroup, error) {
	group := &RunGroup{Index: index}
	for _, key := range block.Keys() {
		if opt, ok := strings.CutPrefix(key, "-"); ok {
			if !groupOptions[opt] {
				return nil, &ConfigurationError{Path: path, Msg: fmt.Sprintf("unknown matrix option %q", key)}
			}
			continue
		}
		values, _, err := block.StringList(key)
		if err != nil {
			return nil, configErr(path, err)
		}
		group.Matrix = append(group.Matrix, Axis{Name: key, Values: values})
	}
	if err := readOptions(block, path, "-", &group.Options, true); err != nil {
		return nil, err
	}
	return group, nil
}

// readOptions reads the override fields shared by every scope. Keys are
// looked up with prefix prepended. Tags and markers are read only for
// environments and matrix blocks.
func readOptions(tbl *config.Table, path, prefix string, into *Options, scoped bool) error {
	if s, ok, err := tbl.String(prefix + "strategy"); err != nil {
		return configErr(path, err)
	} else if ok {
		st, err := ParseStrategy(s)
		if err != nil {
			return configErr(path+"."+prefix+"strategy", err)
		}
		into.Strategy = st
	}
	if m, ok, err := tbl.StringMap(prefix + "setenv"); err != nil {
		return configErr(path, err)
	} else if ok {
		into.Setenv = m
	}
	if l, ok, err := tbl.StringList(prefix + "groups"); err != nil {
		return configErr(path, err)
	} else if ok {
		into.Groups = l
	}
	if l, ok, err := tbl.StringList(prefix + "extras"); err != nil {
		return configErr(path, err)
	} else if ok {
		into.Extras = l
	}
	if !scoped {
		return nil
	}
	if l, ok, err := tbl.StringList(prefix + "tags"); err != nil {
		return configErr(path, err)
	} else if ok {
		into.Tags = l
	}
	if l, ok, err := tbl.StringList(prefix + "markers"); err != nil {
		return configErr(path, err)
	} else if ok {
		for _, s := range l {
			m, err := marker.Parse(s)
			if err != nil {
				return configErr(path+"."+prefix+"markers", err)
			}
			into.Markers = append(into.Markers, m)
		}
	}
	return nil
}

func configErr(path string, err error) error {
	return &ConfigurationError{Path: path, Err: err}
}
