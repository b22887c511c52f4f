package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/specialistvlad/ptm/internal/artifact"
	"github.com/specialistvlad/ptm/internal/buildinfo"
	"github.com/specialistvlad/ptm/internal/ctxlog"
	"github.com/specialistvlad/ptm/internal/marker"
	"github.com/specialistvlad/ptm/internal/matrix"
	"golang.org/x/sync/errgroup"
)

// GenerateOptions selects what Generate produces.
type GenerateOptions struct {
	Filter matrix.Filter
	// Force regenerates runs the manifest already records.
	Force bool
}

// GenerateResult reports what Generate did, each list in expansion order.
type GenerateResult struct {
	Generated []*matrix.Run
	// UpToDate runs were recorded in the manifest and left alone.
	UpToDate []*matrix.Run
	// Ineligible runs have markers that are false here.
	Ineligible []*matrix.Run
	// Pruned holds the identities of stale run directories that were removed.
	Pruned []string
}

type generateJob struct {
	run      *matrix.Run
	manifest *artifact.Manifest
}

// Generate writes the descriptor and driver artifacts of every selected run
// on a bounded worker pool. Run directories of an environment that no
// longer belong to it are pruned first. Manifests are saved even when a
// worker fails so that completed runs are not generated again.
func (a *App) Generate(ctx context.Context, opts GenerateOptions) (*GenerateResult, error) {
	ctx = a.withLogger(ctx)
	logger := ctxlog.FromContext(ctx)
	logger.Debug("App.Generate method started.", "envs", opts.Filter.Envs, "tags", opts.Filter.Tags, "force", opts.Force)

	if err := a.CheckFilter(opts.Filter); err != nil {
		return nil, err
	}
	selected := a.project.Runs(opts.Filter)
	menv, err := a.markerEnvironment(ctx, selected)
	if err != nil {
		return nil, err
	}

	res := &GenerateResult{}
	manifests := make(map[string]*artifact.Manifest)
	for _, env := range a.project.Environments {
		if !opts.Filter.AllowsEnv(env.Name) {
			continue
		}
		envDir := a.project.EnvironmentDirectory(env.Name)
		m, err := artifact.LoadManifest(envDir, env.Name, buildinfo.Version)
		if err != nil {
			return nil, err
		}
		pruned, err := m.Prune(envDir, environmentIDs(env))
		if err != nil {
			return nil, fmt.Errorf("pruning %s: %w", envDir, err)
		}
		for _, id := range pruned {
			logger.Info("Pruned stale run.", "env", env.Name, "id", id)
		}
		res.Pruned = append(res.Pruned, pruned...)
		manifests[env.Name] = m
	}

	var jobs []generateJob
	for _, run := range selected {
		ok, err := run.Eligible(menv)
		if err != nil {
			return nil, fmt.Errorf("evaluating markers of run %s: %w", run.ID(), err)
		}
		if !ok {
			logger.Debug("Run skipped by markers.", "id", run.ID())
			res.Ineligible = append(res.Ineligible, run)
			continue
		}
		m := manifests[run.Scope.Env]
		if !opts.Force && m.Generated(a.project.EnvironmentDirectory(run.Scope.Env), run.ID()) {
			res.UpToDate = append(res.UpToDate, run)
			continue
		}
		jobs = append(jobs, generateJob{run: run, manifest: m})
	}

	var (
		mu   sync.Mutex
		done = make(map[*matrix.Run]bool, len(jobs))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.config.Workers)
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			entry, err := a.generateRun(gctx, job.run)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			job.manifest.Runs[entry.ID] = entry
			done[job.run] = true
			return nil
		})
	}
	runErr := g.Wait()

	for name, m := range manifests {
		if err := m.Save(a.project.EnvironmentDirectory(name)); err != nil && runErr == nil {
			runErr = err
		}
	}
	for _, job := range jobs {
		if done[job.run] {
			res.Generated = append(res.Generated, job.run)
		}
	}
	logger.Info("Generation finished.", "generated", len(res.Generated), "up_to_date", len(res.UpToDate), "ineligible", len(res.Ineligible), "pruned", len(res.Pruned))
	return res, runErr
}

// generateRun writes the run's descriptor and asks the driver for its
// artifacts.
func (a *App) generateRun(ctx context.Context, run *matrix.Run) (artifact.Entry, error) {
	logger := ctxlog.FromContext(ctx).With("id", run.ID())
	dir := a.project.RunDirectory(run)

	if _, err := artifact.WriteEnvFile(dir, run.Setenv(), run.ID()); err != nil {
		return artifact.Entry{}, err
	}
	logger.Debug("Descriptor written.", "dir", dir)

	art, err := a.driver.Generate(ctx, run, dir)
	if err != nil {
		return artifact.Entry{}, err
	}
	logger.Info("Generated run.", "slug", run.Slug())

	deps := make([]string, len(run.Dependencies))
	for i, d := range run.Dependencies {
		deps[i] = d.String()
	}
	return artifact.Entry{
		ID:           run.ID(),
		Slug:         run.Slug(),
		Python:       run.Python,
		Dependencies: deps,
		Artifact:     art.Path,
		GeneratedAt:  time.Now().UTC(),
	}, nil
}

// markerEnvironment probes the interpreter only when one of runs declares
// markers.
func (a *App) markerEnvironment(ctx context.Context, runs []*matrix.Run) (marker.Environment, error) {
	needed := false
	for _, run := range runs {
		if len(run.Properties.Markers) > 0 {
			needed = true
			break
		}
	}
	if !needed {
		return marker.Current(ctx, nil)
	}
	env, err := marker.Current(ctx, a.probe)
	if err != nil {
		return nil, fmt.Errorf("building marker environment: %w", err)
	}
	return env, nil
}

func environmentIDs(env *matrix.Environment) map[string]bool {
	ids := make(map[string]bool)
	for _, g := range env.RunGroups {
		for _, run := range g.Runs {
			ids[run.ID()] = true
		}
	}
	return ids
}
