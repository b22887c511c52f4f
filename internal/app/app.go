package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/ptm/internal/config"
	"github.com/specialistvlad/ptm/internal/ctxlog"
	"github.com/specialistvlad/ptm/internal/fsutil"
	"github.com/specialistvlad/ptm/internal/hcl_adapter"
	"github.com/specialistvlad/ptm/internal/marker"
	"github.com/specialistvlad/ptm/internal/matrix"
	"github.com/specialistvlad/ptm/internal/registry"
	"github.com/specialistvlad/ptm/internal/remote"
	"github.com/specialistvlad/ptm/internal/tomlsrc"
)

// ConfigFileNames are looked up, in order, in every directory from the
// working directory upwards.
var ConfigFileNames = []string{"pyproject.toml", "ptm.hcl"}

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	registry *registry.Registry
	project  *matrix.Config
	driver   registry.Driver
	probe    marker.Probe
}

// NewApp loads the project configuration, expands it and binds the
// configured driver. Modules default to the drivers compiled into the
// binary; tests pass fakes.
func NewApp(outW, logW io.Writer, cfg *Config, modules ...registry.Module) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	path := cfg.ConfigPath
	if path == "" {
		found, err := fsutil.FindUpwards(cfg.WorkDir, ConfigFileNames...)
		if err != nil {
			return nil, err
		}
		path = found
	}
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	projectDir := filepath.Dir(path)
	logger.Debug("Using configuration file.", "path", path)

	tomlLoader, hclLoader := tomlsrc.NewLoader(), hcl_adapter.NewLoader()
	doc, err := loaderFor(path, tomlLoader, hclLoader).Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if len(modules) == 0 {
		modules = coreModules(projectDir)
	}
	reg := registry.Load(ctx, modules...)
	logger.Debug("All driver modules registered.", "count", len(modules))

	fetcher := remote.New(tomlLoader, hclLoader, cfg.FetchTimeout)
	defer fetcher.Close()

	project, err := matrix.Build(ctx, doc, matrix.BuildOptions{
		ProjectDir: projectDir,
		Fetcher:    fetcher,
		Drivers:    reg,
	})
	if err != nil {
		return nil, err
	}
	for _, p := range project.Problems {
		logger.Debug("Configuration problem.", "error", p)
	}
	logger.Debug("Matrix expanded.", "environments", len(project.Environments), "runs", project.Registry.Len(), "problems", len(project.Problems))

	driver, err := reg.ForConfig(ctx, project)
	if err != nil {
		return nil, err
	}

	return &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		registry: reg,
		project:  project,
		driver:   driver,
		probe:    marker.InterpreterProbe(cfg.Python),
	}, nil
}

func loaderFor(path string, tomlLoader, hclLoader config.Loader) config.Loader {
	if strings.EqualFold(filepath.Ext(path), ".hcl") {
		return hclLoader
	}
	return tomlLoader
}

// Project returns the expanded project configuration.
func (a *App) Project() *matrix.Config {
	return a.project
}

// Registry returns the application's driver registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// withLogger attaches the App's logger to ctx.
func (a *App) withLogger(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}
