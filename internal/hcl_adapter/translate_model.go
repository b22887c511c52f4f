// This file translates the block structure of a ptm.hcl file into the
// format-agnostic document consumed by the matrix builder.
//
//	strategy = "lowest"
//	aliases  = { latest = "2.1" }
//
//	env "unit" {
//	  tags = ["slow"]
//	  matrix {
//	    python = ["3.9", "3.12"]
//	    numpy  = ["1.26", "latest"]
//	    options {
//	      tags = ["db"]
//	    }
//	  }
//	}
//
//	env "shared" {
//	  source = "https://example.com/ptm/shared.hcl"
//	}
//
// "env" blocks become entries of the env table, "matrix" blocks are appended
// to the matrix array, and the attributes of an "options" block are copied
// onto the enclosing matrix with a leading "-". An env block whose only
// attribute is "source" becomes a remote locator string.

package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"

	"github.com/specialistvlad/ptm/internal/config"
	"github.com/specialistvlad/ptm/internal/ctxlog"
)

type scope int

const (
	scopeRoot scope = iota
	scopeEnv
	scopeMatrix
	scopeOptions
)

// allowedBlocks lists the block types each scope accepts.
var allowedBlocks = map[scope]map[string]scope{
	scopeRoot:    {"env": scopeEnv, "matrix": scopeMatrix},
	scopeEnv:     {"matrix": scopeMatrix},
	scopeMatrix:  {"options": scopeOptions},
	scopeOptions: {},
}

const sourceAttr = "source"

func (l *Loader) translateBody(ctx context.Context, body *hclsyntax.Body, s scope) (*config.Table, hcl.Diagnostics) {
	logger := ctxlog.FromContext(ctx)
	var diags hcl.Diagnostics
	out := config.NewTable()

	for _, attr := range sortedAttributes(body) {
		v, d := exprValue(attr.Expr)
		diags = append(diags, d...)
		out.Set(attr.Name, v)
	}

	for _, block := range body.Blocks {
		child, ok := allowedBlocks[s][block.Type]
		if !ok {
			diags = append(diags, errorDiag(block.TypeRange, "Unsupported block type",
				fmt.Sprintf("Blocks of type %q are not expected here.", block.Type)))
			continue
		}
		wantLabels := 0
		if child == scopeEnv {
			wantLabels = 1
		}
		if len(block.Labels) != wantLabels {
			diags = append(diags, errorDiag(block.TypeRange, "Wrong number of block labels",
				fmt.Sprintf("A %q block needs %d label(s), got %d.", block.Type, wantLabels, len(block.Labels))))
			continue
		}

		translated, d := l.translateBody(ctx, block.Body, child)
		diags = append(diags, d...)

		switch child {
		case scopeEnv:
			name := block.Labels[0]
			logger.Debug("Translating env block.", "env", name)
			envs := subTable(out, "env")
			if envs.Has(name) {
				diags = append(diags, errorDiag(block.LabelRanges[0], "Duplicate env block",
					fmt.Sprintf("An env block named %q was already declared.", name)))
				continue
			}
			if src, isRemote := remoteSource(translated); isRemote {
				if translated.Len() != 1 {
					diags = append(diags, errorDiag(block.DefRange(), "Invalid remote env",
						"An env block with a source attribute cannot declare anything else."))
					continue
				}
				envs.Set(name, src)
				continue
			}
			envs.Set(name, translated)
		case scopeMatrix:
			existing, _ := out.Get("matrix")
			list, _ := existing.([]any)
			out.Set("matrix", append(list, translated))
		case scopeOptions:
			for _, k := range translated.Keys() {
				v, _ := translated.Get(k)
				out.Set("-"+k, v)
			}
		}
	}
	return out, diags
}

func subTable(t *config.Table, key string) *config.Table {
	if sub, ok, err := t.SubTable(key); ok && err == nil {
		return sub
	}
	sub := config.NewTable()
	t.Set(key, sub)
	return sub
}

func remoteSource(t *config.Table) (string, bool) {
	s, ok, err := t.String(sourceAttr)
	return s, ok && err == nil
}
