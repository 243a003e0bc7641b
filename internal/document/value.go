package document

import (
	"fmt"
	"strings"
)

// Kind identifies the shape of a Value.
type Kind int

const (
	Invalid Kind = iota
	String
	Integer
	Float
	Bool
	Datetime
	Array
	TableKind
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Integer:
		return "integer"
	case Float:
		return "float"
	case Bool:
		return "boolean"
	case Datetime:
		return "datetime"
	case Array:
		return "array"
	case TableKind:
		return "table"
	default:
		return "invalid"
	}
}

// Value is one node of the document tree. The zero Value is Invalid.
type Value struct {
	kind   Kind
	str    string
	scalar any
	items  []Value
	table  *Table
}

func StringValue(s string) Value { return Value{kind: String, str: s} }
func IntValue(i int64) Value     { return Value{kind: Integer, scalar: i} }
func FloatValue(f float64) Value { return Value{kind: Float, scalar: f} }
func BoolValue(b bool) Value     { return Value{kind: Bool, scalar: b} }
func TableValue(t *Table) Value  { return Value{kind: TableKind, table: t} }

// ArrayValue builds an array from items.
func ArrayValue(items ...Value) Value {
	out := make([]Value, len(items))
	copy(out, items)
	return Value{kind: Array, items: out}
}

// StringsValue builds an array of strings.
func StringsValue(items ...string) Value {
	out := make([]Value, 0, len(items))
	for _, s := range items {
		out = append(out, StringValue(s))
	}
	return Value{kind: Array, items: out}
}

func (v Value) Kind() Kind    { return v.kind }
func (v Value) IsValid() bool { return v.kind != Invalid }

func (v Value) AsString() (string, bool) {
	if v.kind != String {
		return "", false
	}
	return v.str, true
}

func (v Value) AsBool() (bool, bool) {
	if v.kind != Bool {
		return false, false
	}
	b, ok := v.scalar.(bool)
	return b, ok
}

func (v Value) AsInt() (int64, bool) {
	if v.kind != Integer {
		return 0, false
	}
	i, ok := v.scalar.(int64)
	return i, ok
}

// AsArray returns a copy of the array items.
func (v Value) AsArray() ([]Value, bool) {
	if v.kind != Array {
		return nil, false
	}
	out := make([]Value, len(v.items))
	copy(out, v.items)
	return out, true
}

func (v Value) AsTable() (*Table, bool) {
	if v.kind != TableKind || v.table == nil {
		return nil, false
	}
	return v.table, true
}

// Strings returns the array items when every item is a string. The index of
// the first offending item is returned otherwise.
func (v Value) Strings() ([]string, int, bool) {
	if v.kind != Array {
		return nil, -1, false
	}
	out := make([]string, 0, len(v.items))
	for i, item := range v.items {
		s, ok := item.AsString()
		if !ok {
			return nil, i, false
		}
		out = append(out, s)
	}
	return out, -1, true
}

// String renders the value in a compact TOML-like form for messages.
func (v Value) String() string {
	switch v.kind {
	case String:
		return fmt.Sprintf("%q", v.str)
	case Array:
		parts := make([]string, 0, len(v.items))
		for _, item := range v.items {
			parts = append(parts, item.String())
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case TableKind:
		if v.table == nil {
			return "{}"
		}
		parts := make([]string, 0, v.table.Len())
		for _, k := range v.table.keys {
			parts = append(parts, k+" = "+v.table.entries[k].String())
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case Invalid:
		return "<invalid>"
	default:
		return fmt.Sprint(v.scalar)
	}
}

// Table is an ordered mapping. Keys keep the order they were first written in.
type Table struct {
	keys    []string
	entries map[string]Value
}

func NewTable() *Table {
	return &Table{entries: map[string]Value{}}
}

// Set adds or replaces key. It is meant for building documents; the engine
// never mutates a table it was given.
func (t *Table) Set(key string, v Value) *Table {
	if _, ok := t.entries[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.entries[key] = v
	return t
}

func (t *Table) Get(key string) (Value, bool) {
	if t == nil {
		return Value{}, false
	}
	v, ok := t.entries[key]
	return v, ok
}

func (t *Table) Has(key string) bool {
	_, ok := t.Get(key)
	return ok
}

// Keys returns the keys in document order.
func (t *Table) Keys() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.keys)
}
