// Package marker parses and evaluates environment markers: the boolean
// expressions over interpreter and platform attributes (for example
// `python_version >= "3.9" and sys_platform == "linux"`) that gate whether a
// run is eligible on the current machine.
package marker

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/ptm/internal/pyver"
)

// Variables lists every environment name a marker may reference.
var Variables = []string{
	"implementation_name",
	"implementation_version",
	"os_name",
	"platform_machine",
	"platform_python_implementation",
	"platform_release",
	"platform_system",
	"platform_version",
	"python_full_version",
	"python_version",
	"sys_platform",
	"extra",
}

// Environment maps marker variable names to their values at evaluation time.
type Environment map[string]string

// SyntaxError describes a marker that could not be parsed.
type SyntaxError struct {
	Marker string
	Pos    int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid marker %q at offset %d: %s", e.Marker, e.Pos, e.Msg)
}

// Marker is a parsed marker expression.
type Marker struct {
	root node
}

// Parse parses a PEP 508 marker expression.
func Parse(s string) (*Marker, error) {
	p := &parser{src: s}
	if err := p.tokenize(); err != nil {
		return nil, err
	}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.done() {
		return nil, p.errorf("unexpected %q", p.peek().text)
	}
	return &Marker{root: root}, nil
}

// MustParse is like Parse but panics on error. It is intended for tests and
// package-level constants.
func MustParse(s string) *Marker {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// String renders the marker in canonical form: double quoted literals and
// single spaces around operators.
func (m *Marker) String() string {
	var b strings.Builder
	m.root.write(&b)
	return b.String()
}

// Evaluate reports whether the marker holds in env.
func (m *Marker) Evaluate(env Environment) (bool, error) {
	return m.root.eval(env)
}

// EvaluateAll evaluates markers conjunctively. An empty list is true.
func EvaluateAll(markers []*Marker, env Environment) (bool, error) {
	for _, m := range markers {
		ok, err := m.Evaluate(env)
		if err != nil {
			return false, fmt.Errorf("evaluating %s: %w", m, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

type node interface {
	eval(env Environment) (bool, error)
	write(b *strings.Builder)
}

type boolOp struct {
	op          string
	left, right node
}

func (n *boolOp) eval(env Environment) (bool, error) {
	l, err := n.left.eval(env)
	if err != nil {
		return false, err
	}
	if n.op == "and" && !l {
		return false, nil
	}
	if n.op == "or" && l {
		return true, nil
	}
	return n.right.eval(env)
}

func (n *boolOp) write(b *strings.Builder) {
	n.left.write(b)
	b.WriteString(" " + n.op + " ")
	n.right.write(b)
}

type group struct {
	inner node
}

func (n *group) eval(env Environment) (bool, error) { return n.inner.eval(env) }

func (n *group) write(b *strings.Builder) {
	b.WriteByte('(')
	n.inner.write(b)
	b.WriteByte(')')
}

// operand is either a variable reference or a string literal.
type operand struct {
	variable string
	literal  string
}

func (o operand) value(env Environment) string {
	if o.variable != "" {
		return env[o.variable]
	}
	return o.literal
}

func (o operand) write(b *strings.Builder) {
	if o.variable != "" {
		b.WriteString(o.variable)
		return
	}
	// Literals have no escapes, so one holding a double quote can only have
	// been written in single quotes.
	if strings.Contains(o.literal, `"`) {
		b.WriteString(`'` + o.literal + `'`)
		return
	}
	b.WriteString(`"` + o.literal + `"`)
}

type compare struct {
	left  operand
	op    string
	right operand
}

func (n *compare) write(b *strings.Builder) {
	n.left.write(b)
	b.WriteString(" " + n.op + " ")
	n.right.write(b)
}

func (n *compare) eval(env Environment) (bool, error) {
	lhs, rhs := n.left.value(env), n.right.value(env)
	switch n.op {
	case "in":
		return strings.Contains(rhs, lhs), nil
	case "not in":
		return !strings.Contains(rhs, lhs), nil
	}

	// Version semantics apply whenever the right hand side forms a valid
	// specifier and the left hand side is a valid version.
	if spec, err := pyver.ParseSpecifierSet(n.op + rhs); err == nil && len(spec) == 1 {
		if v, err := pyver.ParseVersion(lhs); err == nil {
			return spec.Contains(v), nil
		}
	}

	switch n.op {
	case "==":
		return lhs == rhs, nil
	case "!=":
		return lhs != rhs, nil
	case "<":
		return lhs < rhs, nil
	case "<=":
		return lhs <= rhs, nil
	case ">":
		return lhs > rhs, nil
	case ">=":
		return lhs >= rhs, nil
	}
	return false, fmt.Errorf("operator %s is undefined for %q and %q", n.op, lhs, rhs)
}
