package config

import (
	"fmt"
	"sort"
)

// Table is an ordered mapping from string keys to document values. Values
// are one of: string, bool, int64, float64, []any or *Table.
type Table struct {
	keys   []string
	values map[string]any
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{values: make(map[string]any)}
}

// FromMap builds a table from a plain map. Nested maps become nested tables.
// Go maps carry no order, so keys are inserted in sorted order.
func FromMap(m map[string]any) *Table {
	t := NewTable()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		t.Set(k, normalize(m[k]))
	}
	return t
}

func normalize(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return FromMap(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalize(e)
		}
		return out
	case []string:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = e
		}
		return out
	case []map[string]any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = FromMap(e)
		}
		return out
	case int:
		return int64(x)
	}
	return v
}

// Set stores v under key. A new key is appended to the key order; setting an
// existing key replaces its value and keeps its position.
func (t *Table) Set(key string, v any) {
	if _, ok := t.values[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.values[key] = v
}

// Get returns the raw value stored under key.
func (t *Table) Get(key string) (any, bool) {
	if t == nil {
		return nil, false
	}
	v, ok := t.values[key]
	return v, ok
}

// Has reports whether key is present.
func (t *Table) Has(key string) bool {
	_, ok := t.Get(key)
	return ok
}

// Keys returns the keys in document order.
func (t *Table) Keys() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.keys...)
}

// Len returns the number of keys.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.keys)
}

// TypeError reports a document value of an unexpected kind.
type TypeError struct {
	Key  string
	Want string
	Got  any
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("%q must be %s, got %s", e.Key, e.Want, KindOf(e.Got))
}

// KindOf names the document kind of v for error messages.
func KindOf(v any) string {
	switch v.(type) {
	case string:
		return "a string"
	case bool:
		return "a boolean"
	case int64, float64:
		return "a number"
	case []any:
		return "an array"
	case *Table:
		return "a table"
	case nil:
		return "nothing"
	}
	return fmt.Sprintf("%T", v)
}

// String returns the string stored under key.
func (t *Table) String(key string) (string, bool, error) {
	v, ok := t.Get(key)
	if !ok {
		return "", false, nil
	}
	s, isString := v.(string)
	if !isString {
		return "", true, &TypeError{Key: key, Want: "a string", Got: v}
	}
	return s, true, nil
}

// StringList returns the strings stored under key. A bare string is treated
// as a list of one.
func (t *Table) StringList(key string) ([]string, bool, error) {
	v, ok := t.Get(key)
	if !ok {
		return nil, false, nil
	}
	list, err := AsStringList(v)
	if err != nil {
		return nil, true, &TypeError{Key: key, Want: "a string or an array of strings", Got: v}
	}
	return list, true, nil
}

// AsStringList converts a string or an array of strings into a slice.
func AsStringList(v any) ([]string, error) {
	switch x := v.(type) {
	case string:
		return []string{x}, nil
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("array element is %s, not a string", KindOf(e))
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("value is %s", KindOf(v))
}

// StringMap returns the string-to-string table stored under key.
func (t *Table) StringMap(key string) (map[string]string, bool, error) {
	sub, ok, err := t.SubTable(key)
	if !ok || err != nil {
		return nil, ok, err
	}
	out := make(map[string]string, sub.Len())
	for _, k := range sub.keys {
		s, isString := sub.values[k].(string)
		if !isString {
			return nil, true, &TypeError{Key: key + "." + k, Want: "a string", Got: sub.values[k]}
		}
		out[k] = s
	}
	return out, true, nil
}

// SubTable returns the nested table stored under key.
func (t *Table) SubTable(key string) (*Table, bool, error) {
	v, ok := t.Get(key)
	if !ok {
		return nil, false, nil
	}
	sub, isTable := v.(*Table)
	if !isTable {
		return nil, true, &TypeError{Key: key, Want: "a table", Got: v}
	}
	return sub, true, nil
}

// Tables returns the array of tables stored under key.
func (t *Table) Tables(key string) ([]*Table, bool, error) {
	v, ok := t.Get(key)
	if !ok {
		return nil, false, nil
	}
	list, isList := v.([]any)
	if !isList {
		return nil, true, &TypeError{Key: key, Want: "an array of tables", Got: v}
	}
	out := make([]*Table, 0, len(list))
	for _, e := range list {
		sub, isTable := e.(*Table)
		if !isTable {
			return nil, true, &TypeError{Key: key, Want: "an array of tables", Got: e}
		}
		out = append(out, sub)
	}
	return out, true, nil
}
