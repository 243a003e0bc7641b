// Package command resolves named entries of the task file into execution
// plans and runs them step by step.
package command

import "atomic/internal/document"

// CustomSection is the conventional home of user commands.
const CustomSection = "custom"

// Match is a name found in the document. Section is empty for root keys.
type Match struct {
	Section string
	Name    string
	Value   document.Value
}

func (m Match) KeyPath() string {
	return document.JoinPath(m.Section, m.Name)
}

// IsCommand reports whether the matched value has a command shape.
func (m Match) IsCommand() bool {
	switch m.Value.Kind() {
	case document.String, document.Array, document.TableKind:
		return true
	}
	return false
}

// Lookup finds name in the document. The search order is fixed: the root
// table, then each top-level table in document order, then the custom
// section. The first hit wins.
func Lookup(doc *document.Document, name string) (Match, bool) {
	root := doc.Root()
	if v, ok := root.Get(name); ok {
		return Match{Name: name, Value: v}, true
	}
	for _, section := range root.Keys() {
		v, _ := root.Get(section)
		tbl, ok := v.AsTable()
		if !ok {
			continue
		}
		if inner, ok := tbl.Get(name); ok {
			return Match{Section: section, Name: name, Value: inner}, true
		}
	}
	// Explicit custom fallback, part of the documented lookup order.
	if custom, ok := doc.Section(CustomSection); ok {
		if v, ok := custom.Get(name); ok {
			return Match{Section: CustomSection, Name: name, Value: v}, true
		}
	}
	return Match{}, false
}
