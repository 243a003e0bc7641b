// Package document holds the parsed task file: an immutable tree of ordered
// tables, arrays and scalars decoded from TOML.
package document

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pelletier/go-toml/v2/unstable"
)

// DefaultFileName is the task file looked up in the working directory.
const DefaultFileName = "atomic.toml"

// ErrMalformed marks configuration entries with a missing key or a value of
// the wrong shape.
var ErrMalformed = errors.New("malformed configuration")

// FieldError reports a malformed entry by its dotted key path.
type FieldError struct {
	Path   string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

func (e *FieldError) Unwrap() error { return ErrMalformed }

// JoinPath renders a dotted key path, skipping empty segments.
func JoinPath(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ".")
}

// Document is a parsed task file.
type Document struct {
	path string
	root *Table
}

// New wraps an already built root table.
func New(root *Table) *Document {
	if root == nil {
		root = NewTable()
	}
	return &Document{root: root}
}

func (d *Document) Root() *Table { return d.root }

// Path is the file the document was loaded from, empty for in-memory documents.
func (d *Document) Path() string { return d.path }

// Dir is the directory relative script paths are resolved against.
func (d *Document) Dir() string {
	if d.path == "" {
		return ""
	}
	return filepath.Dir(d.path)
}

// Section returns a top-level table by name.
func (d *Document) Section(name string) (*Table, bool) {
	v, ok := d.root.Get(name)
	if !ok {
		return nil, false
	}
	return v.AsTable()
}

// Load reads and parses the task file at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	doc.path = path
	return doc, nil
}

// Parse decodes TOML into a Document, keeping the key order of the source.
func Parse(data []byte) (*Document, error) {
	raw := map[string]any{}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse toml: %w", err)
	}
	order, err := scanKeyOrder(data)
	if err != nil {
		return nil, fmt.Errorf("parse toml: %w", err)
	}
	return &Document{root: buildTable(raw, nil, order)}, nil
}

// keyOrder maps a table path to its child keys in the order they appear.
// Array elements share the path of their array.
type keyOrder map[string][]string

func pathKey(path []string) string { return strings.Join(path, "\x1f") }

func (o keyOrder) add(path []string, key string) {
	p := pathKey(path)
	for _, k := range o[p] {
		if k == key {
			return
		}
	}
	o[p] = append(o[p], key)
}

// addDotted registers every segment of a dotted key below base.
func (o keyOrder) addDotted(base, parts []string) {
	for i, part := range parts {
		prefix := make([]string, 0, len(base)+i)
		prefix = append(prefix, base...)
		prefix = append(prefix, parts[:i]...)
		o.add(prefix, part)
	}
}

func (o keyOrder) inline(path []string, n *unstable.Node) {
	switch n.Kind {
	case unstable.InlineTable:
		it := n.Children()
		for it.Next() {
			kv := it.Node()
			if kv.Kind != unstable.KeyValue {
				continue
			}
			parts := keyParts(kv.Key())
			o.addDotted(path, parts)
			o.inline(concat(path, parts), kv.Value())
		}
	case unstable.Array:
		it := n.Children()
		for it.Next() {
			o.inline(path, it.Node())
		}
	}
}

func scanKeyOrder(data []byte) (keyOrder, error) {
	order := keyOrder{}
	var p unstable.Parser
	p.Reset(data)
	var current []string
	for p.NextExpression() {
		expr := p.Expression()
		switch expr.Kind {
		case unstable.Table, unstable.ArrayTable:
			current = keyParts(expr.Key())
			order.addDotted(nil, current)
		case unstable.KeyValue:
			parts := keyParts(expr.Key())
			order.addDotted(current, parts)
			order.inline(concat(current, parts), expr.Value())
		}
	}
	if err := p.Error(); err != nil {
		return nil, err
	}
	return order, nil
}

func keyParts(it unstable.Iterator) []string {
	var parts []string
	for it.Next() {
		parts = append(parts, string(it.Node().Data))
	}
	return parts
}

func concat(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

func buildTable(raw map[string]any, path []string, order keyOrder) *Table {
	t := NewTable()
	seen := make(map[string]bool, len(raw))
	for _, k := range order[pathKey(path)] {
		v, ok := raw[k]
		if !ok || seen[k] {
			continue
		}
		seen[k] = true
		t.Set(k, buildValue(v, concat(path, []string{k}), order))
	}
	rest := make([]string, 0, len(raw)-len(seen))
	for k := range raw {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		t.Set(k, buildValue(raw[k], concat(path, []string{k}), order))
	}
	return t
}

func buildValue(raw any, path []string, order keyOrder) Value {
	switch v := raw.(type) {
	case string:
		return StringValue(v)
	case bool:
		return BoolValue(v)
	case int64:
		return IntValue(v)
	case float64:
		return FloatValue(v)
	case map[string]any:
		return TableValue(buildTable(v, path, order))
	case []any:
		items := make([]Value, 0, len(v))
		for _, item := range v {
			items = append(items, buildValue(item, path, order))
		}
		return Value{kind: Array, items: items}
	case nil:
		return Value{}
	default:
		return Value{kind: Datetime, scalar: v}
	}
}
