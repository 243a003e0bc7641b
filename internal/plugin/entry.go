// Package plugin runs the externally scripted entries of the [plugin] section.
package plugin

import (
	"errors"
	"fmt"

	"atomic/internal/document"

	"github.com/google/shlex"
)

// Section is the task file table holding plugin entries.
const Section = "plugin"

var (
	ErrPluginNotFound = errors.New("plugin not found")
	ErrPluginFailed   = errors.New("plugin failed")
)

// Entry is one [plugin.<name>] table.
type Entry struct {
	Name      string
	Script    string
	Args      []string
	Preferred string
	Silent    bool
	Desc      string
}

// Names lists the plugins declared in doc, in document order.
func Names(doc *document.Document) []string {
	sec, ok := doc.Section(Section)
	if !ok {
		return nil
	}
	return sec.Keys()
}

// LoadEntry reads and validates the plugin called name.
func LoadEntry(doc *document.Document, name string) (Entry, error) {
	sec, ok := doc.Section(Section)
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrPluginNotFound, name)
	}
	v, ok := sec.Get(name)
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrPluginNotFound, name)
	}
	path := document.JoinPath(Section, name)
	tbl, ok := v.AsTable()
	if !ok {
		return Entry{}, &document.FieldError{Path: path, Reason: fmt.Sprintf("must be a table, got %s", v.Kind())}
	}

	e := Entry{Name: name}
	script, ok := tbl.Get("script")
	if !ok {
		return Entry{}, &document.FieldError{Path: document.JoinPath(path, "script"), Reason: "missing required key"}
	}
	if e.Script, ok = script.AsString(); !ok || e.Script == "" {
		return Entry{}, &document.FieldError{Path: document.JoinPath(path, "script"), Reason: "must be a non-empty string"}
	}

	if v, ok := tbl.Get("args"); ok {
		args, err := parseArgs(document.JoinPath(path, "args"), v)
		if err != nil {
			return Entry{}, err
		}
		e.Args = args
	}
	if v, ok := tbl.Get("preferred"); ok {
		if e.Preferred, ok = v.AsString(); !ok {
			return Entry{}, &document.FieldError{Path: document.JoinPath(path, "preferred"), Reason: "must be a string"}
		}
	}
	if v, ok := tbl.Get("silent"); ok {
		if e.Silent, ok = v.AsBool(); !ok {
			return Entry{}, &document.FieldError{Path: document.JoinPath(path, "silent"), Reason: "must be a boolean"}
		}
	}
	if v, ok := tbl.Get("desc"); ok {
		e.Desc, _ = v.AsString()
	}
	return e, nil
}

// parseArgs accepts an array of strings or a single shell-words string.
func parseArgs(path string, v document.Value) ([]string, error) {
	if s, ok := v.AsString(); ok {
		args, err := shlex.Split(s)
		if err != nil {
			return nil, &document.FieldError{Path: path, Reason: fmt.Sprintf("parse: %v", err)}
		}
		return args, nil
	}
	if v.Kind() != document.Array {
		return nil, &document.FieldError{Path: path, Reason: fmt.Sprintf("must be an array of strings, got %s", v.Kind())}
	}
	args, bad, ok := v.Strings()
	if !ok {
		return nil, &document.FieldError{Path: fmt.Sprintf("%s[%d]", path, bad), Reason: "must be a string"}
	}
	return args, nil
}
