package hcl_adapter

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"

	"github.com/specialistvlad/ptm/internal/config"
	"github.com/specialistvlad/ptm/internal/ctxlog"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

var _ config.Loader = (*Loader)(nil)

// Load reads a ptm.hcl project file. The file holds the ptm section
// directly, so the result is nested under tool.ptm to match the layout of
// pyproject.toml.
func (l *Loader) Load(ctx context.Context, path string) (*config.Table, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	body, err := l.Parse(ctx, path, src)
	if err != nil {
		return nil, err
	}
	tool := config.NewTable()
	tool.Set("ptm", body)
	doc := config.NewTable()
	doc.Set("tool", tool)
	return doc, nil
}

// Parse translates HCL source into a document. Remote environment
// definitions are parsed with this method directly.
func (l *Loader) Parse(ctx context.Context, name string, src []byte) (*config.Table, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "source", name)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, name)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", name, diags)
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("failed to parse HCL file %s: unexpected body type %T", name, file.Body)
	}

	doc, diags := l.translateBody(ctx, body, scopeRoot)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", name, diags)
	}
	logger.Debug("HCL loading complete.", "source", name, "keys", doc.Len())
	return doc, nil
}

func errorDiag(rng hcl.Range, summary, detail string) *hcl.Diagnostic {
	return &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  summary,
		Detail:   detail,
		Subject:  rng.Ptr(),
	}
}
