// Package tomlsrc loads TOML documents (pyproject.toml and remote environment
// definitions) into the ordered configuration document.
//
// The decoder returns plain Go maps, so document order is reconstructed
// from the decoder metadata. Order matters: matrix axes are expanded in the
// order they are written and environments are listed in the order they are
// declared.
package tomlsrc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/specialistvlad/ptm/internal/config"
	"github.com/specialistvlad/ptm/internal/ctxlog"
)

// Loader implements config.Loader for TOML.
type Loader struct{}

// NewLoader creates a TOML loader.
func NewLoader() *Loader {
	return &Loader{}
}

var _ config.Loader = (*Loader)(nil)

// Load reads and parses the file at path.
func (l *Loader) Load(ctx context.Context, path string) (*config.Table, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return l.Parse(ctx, path, src)
}

// Parse decodes src. name is used in error messages.
func (l *Loader) Parse(ctx context.Context, name string, src []byte) (*config.Table, error) {
	var raw map[string]any
	md, err := toml.Decode(string(src), &raw)
	if err != nil {
		var perr toml.ParseError
		if errors.As(err, &perr) {
			return nil, fmt.Errorf("parsing %s: %s", name, perr.ErrorWithPosition())
		}
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}

	o := newOrderer(raw)
	for _, key := range md.Keys() {
		o.visit(key)
	}
	doc := o.table(raw, "")
	ctxlog.FromContext(ctx).Debug("TOML document parsed.", "source", name, "keys", len(md.Keys()))
	return doc, nil
}

// orderer records, per concrete location in the decoded value, the order in
// which child keys appear in the source.
type orderer struct {
	root    map[string]any
	order   map[string][]string
	seen    map[string]map[string]bool
	cursors map[string]int
}

func newOrderer(root map[string]any) *orderer {
	return &orderer{
		root:    root,
		order:   make(map[string][]string),
		seen:    make(map[string]map[string]bool),
		cursors: make(map[string]int),
	}
}

func (o *orderer) record(loc, key string) {
	if o.seen[loc] == nil {
		o.seen[loc] = make(map[string]bool)
	}
	if o.seen[loc][key] {
		return
	}
	o.seen[loc][key] = true
	o.order[loc] = append(o.order[loc], key)
}

// visit walks one metadata key down the decoded value. Arrays of tables
// carry no index in the metadata, so a cursor per array picks the element:
// it moves on when the current element lacks the key, or already recorded
// it, which means the source has started a new element.
func (o *orderer) visit(key toml.Key) {
	cur := o.root
	loc := ""
	for i, part := range key {
		o.record(loc, part)
		if i == len(key)-1 {
			return
		}
		next := cur[part]
		childLoc := loc + "\x00" + part
		switch v := next.(type) {
		case map[string]any:
			cur, loc = v, childLoc
		case []map[string]any, []any:
			elems := tableElements(v)
			if len(elems) == 0 {
				return
			}
			c := o.cursors[childLoc]
			nextPart := key[i+1]
			direct := i+1 == len(key)-1
			for c < len(elems) {
				_, has := elems[c][nextPart]
				elemLoc := childLoc + "\x00#" + strconv.Itoa(c)
				if has && !(direct && o.seen[elemLoc][nextPart]) {
					break
				}
				c++
			}
			if c == len(elems) {
				return
			}
			o.cursors[childLoc] = c
			cur, loc = elems[c], childLoc+"\x00#"+strconv.Itoa(c)
		default:
			return
		}
	}
}

func tableElements(v any) []map[string]any {
	switch x := v.(type) {
	case []map[string]any:
		return x
	case []any:
		out := make([]map[string]any, 0, len(x))
		for _, e := range x {
			m, ok := e.(map[string]any)
			if !ok {
				return nil
			}
			out = append(out, m)
		}
		return out
	}
	return nil
}

func (o *orderer) table(m map[string]any, loc string) *config.Table {
	t := config.NewTable()
	keys := o.order[loc]
	if len(keys) < len(m) {
		var rest []string
		for k := range m {
			if !o.seen[loc][k] {
				rest = append(rest, k)
			}
		}
		sort.Strings(rest)
		keys = append(append([]string(nil), keys...), rest...)
	}
	for _, k := range keys {
		v, ok := m[k]
		if !ok {
			continue
		}
		t.Set(k, o.value(v, loc+"\x00"+k))
	}
	return t
}

func (o *orderer) value(v any, loc string) any {
	switch x := v.(type) {
	case map[string]any:
		return o.table(x, loc)
	case []map[string]any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = o.table(e, loc+"\x00#"+strconv.Itoa(i))
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = o.value(e, loc+"\x00#"+strconv.Itoa(i))
		}
		return out
	}
	return v
}
