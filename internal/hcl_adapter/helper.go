package hcl_adapter

import (
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/ptm/internal/config"
)

// sortedAttributes returns the body's attributes in source order. The
// parser keeps them in a map.
func sortedAttributes(body *hclsyntax.Body) []*hclsyntax.Attribute {
	attrs := make([]*hclsyntax.Attribute, 0, len(body.Attributes))
	for _, a := range body.Attributes {
		attrs = append(attrs, a)
	}
	sort.Slice(attrs, func(i, j int) bool {
		return attrs[i].SrcRange.Start.Byte < attrs[j].SrcRange.Start.Byte
	})
	return attrs
}

// exprValue evaluates a literal expression. Object constructors are walked
// item by item so that their key order survives.
func exprValue(expr hclsyntax.Expression) (any, hcl.Diagnostics) {
	switch e := expr.(type) {
	case *hclsyntax.ObjectConsExpr:
		var diags hcl.Diagnostics
		t := config.NewTable()
		for _, item := range e.Items {
			key, ok := objectKey(item.KeyExpr)
			if !ok {
				diags = append(diags, errorDiag(item.KeyExpr.Range(), "Invalid object key",
					"Keys must be simple identifiers or quoted strings, not complex expressions."))
				continue
			}
			v, d := exprValue(item.ValueExpr)
			diags = append(diags, d...)
			t.Set(key, v)
		}
		return t, diags
	case *hclsyntax.TupleConsExpr:
		var diags hcl.Diagnostics
		out := make([]any, 0, len(e.Exprs))
		for _, x := range e.Exprs {
			v, d := exprValue(x)
			diags = append(diags, d...)
			out = append(out, v)
		}
		return out, diags
	}

	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	native, err := ctyToNative(val)
	if err != nil {
		return nil, append(diags, errorDiag(expr.Range(), "Unsupported value", err.Error()))
	}
	return native, diags
}

// objectKey unwraps the key of an object constructor item.
func objectKey(expr hclsyntax.Expression) (string, bool) {
	keyExpr, ok := expr.(*hclsyntax.ObjectConsKeyExpr)
	if !ok {
		return "", false
	}
	switch k := keyExpr.Wrapped.(type) {
	case *hclsyntax.ScopeTraversalExpr:
		if len(k.Traversal) == 1 {
			return k.Traversal.RootName(), true
		}
	case *hclsyntax.TemplateExpr:
		if len(k.Parts) == 1 {
			if lit, isLit := k.Parts[0].(*hclsyntax.LiteralValueExpr); isLit && lit.Val.Type().Equals(cty.String) {
				return lit.Val.AsString(), true
			}
		}
	}
	return "", false
}

// ctyToNative converts a cty value into a document value.
func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() {
		return nil, nil
	}
	if !v.IsWhollyKnown() {
		return nil, errUnknownValue
	}
	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil
	case ty == cty.Bool:
		return v.True(), nil
	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return i, nil
			}
		}
		f, _ := bf.Float64()
		return f, nil
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		out := make([]any, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			n, err := ctyToNative(ev)
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		}
		return out, nil
	case ty.IsMapType() || ty.IsObjectType():
		m := make(map[string]any, v.LengthInt())
		for k, ev := range v.AsValueMap() {
			n, err := ctyToNative(ev)
			if err != nil {
				return nil, err
			}
			m[k] = n
		}
		return config.FromMap(m), nil
	}
	return nil, errUnsupportedType(ty)
}

var errUnknownValue = errors.New("value is not known until evaluation")

func errUnsupportedType(ty cty.Type) error {
	return fmt.Errorf("values of type %s are not supported", ty.FriendlyName())
}
