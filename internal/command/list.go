package command

import (
	"slices"

	"atomic/internal/document"
)

// Listing describes one command-shaped entry of the task file.
type Listing struct {
	Section string `json:"section,omitempty"`
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Desc    string `json:"desc,omitempty"`
	Error   string `json:"error,omitempty"`
}

// List returns every command-shaped entry in document order. Sections named
// in skip (such as the plugin table) are left out.
func List(doc *document.Document, skip ...string) []Listing {
	var out []Listing
	root := doc.Root()
	for _, key := range root.Keys() {
		v, _ := root.Get(key)
		tbl, ok := v.AsTable()
		if !ok {
			if m := (Match{Name: key, Value: v}); m.IsCommand() {
				out = append(out, listing(m))
			}
			continue
		}
		if slices.Contains(skip, key) {
			continue
		}
		for _, name := range tbl.Keys() {
			inner, _ := tbl.Get(name)
			if m := (Match{Section: key, Name: name, Value: inner}); m.IsCommand() {
				out = append(out, listing(m))
			}
		}
	}
	return out
}

func listing(m Match) Listing {
	l := Listing{Section: m.Section, Name: m.Name}
	plan, err := Interpret(m)
	if err != nil {
		l.Kind = "invalid"
		l.Error = err.Error()
		return l
	}
	l.Kind = plan.Kind.String()
	l.Desc = plan.Desc
	return l
}
