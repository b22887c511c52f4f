package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/specialistvlad/ptm/internal/artifact"
	"github.com/specialistvlad/ptm/internal/buildinfo"
	"github.com/specialistvlad/ptm/internal/matrix"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by Render.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// RunInfo is the listing view of a run.
type RunInfo struct {
	ID           string   `json:"id" yaml:"id"`
	Env          string   `json:"env" yaml:"env"`
	Python       string   `json:"python" yaml:"python"`
	Dependencies []string `json:"dependencies" yaml:"dependencies"`
	Tags         []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Eligible     bool     `json:"eligible" yaml:"eligible"`
	Generated    bool     `json:"generated" yaml:"generated"`
	Directory    string   `json:"directory" yaml:"directory"`
}

// CheckFilter rejects environment names the project does not declare.
func (a *App) CheckFilter(f matrix.Filter) error {
	for _, name := range f.Envs {
		if _, ok := a.project.Environment(name); !ok {
			names := make([]string, len(a.project.Environments))
			for i, env := range a.project.Environments {
				names[i] = env.Name
			}
			return &matrix.ConfigurationError{
				Path: "env",
				Msg:  fmt.Sprintf("unknown environment %q (declared: %s)", name, strings.Join(names, ", ")),
			}
		}
	}
	return nil
}

// List describes the runs matching f in expansion order.
func (a *App) List(ctx context.Context, f matrix.Filter) ([]RunInfo, error) {
	ctx = a.withLogger(ctx)
	if err := a.CheckFilter(f); err != nil {
		return nil, err
	}
	runs := a.project.Runs(f)
	menv, err := a.markerEnvironment(ctx, runs)
	if err != nil {
		return nil, err
	}

	manifests := make(map[string]*artifact.Manifest)
	infos := make([]RunInfo, 0, len(runs))
	for _, run := range runs {
		envDir := a.project.EnvironmentDirectory(run.Scope.Env)
		m, ok := manifests[run.Scope.Env]
		if !ok {
			m, err = artifact.LoadManifest(envDir, run.Scope.Env, buildinfo.Version)
			if err != nil {
				return nil, err
			}
			manifests[run.Scope.Env] = m
		}
		eligible, err := run.Eligible(menv)
		if err != nil {
			return nil, fmt.Errorf("evaluating markers of run %s: %w", run.ID(), err)
		}
		deps := make([]string, len(run.Dependencies))
		for i, d := range run.Dependencies {
			deps[i] = d.String()
		}
		infos = append(infos, RunInfo{
			ID:           run.ID(),
			Env:          run.Scope.Env,
			Python:       run.Python,
			Dependencies: deps,
			Tags:         run.Properties.Tags,
			Eligible:     eligible,
			Generated:    m.Generated(envDir, run.ID()),
			Directory:    a.project.RunDirectory(run),
		})
	}
	return infos, nil
}

// Render writes infos to w in the given format.
func Render(w io.Writer, infos []RunInfo, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(infos); err != nil {
			return err
		}
		return enc.Close()
	case FormatText, "":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tENV\tPYTHON\tDEPENDENCIES\tTAGS\tSTATUS")
		for _, info := range infos {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				info.ID, info.Env, info.Python,
				strings.Join(info.Dependencies, ";"),
				strings.Join(info.Tags, ","),
				status(info))
		}
		return tw.Flush()
	}
	return fmt.Errorf("unknown output format %q (want text, json or yaml)", format)
}

func status(info RunInfo) string {
	switch {
	case !info.Eligible:
		return "skipped"
	case info.Generated:
		return "generated"
	}
	return "pending"
}
