// Package script maps plugin script references to interpreter invocations by
// file extension.
package script

import (
	"slices"
	"strings"
)

// Platform restricts an engine to a family of operating systems.
type Platform int

const (
	Any Platform = iota
	Windows
	Unix
)

func (p Platform) String() string {
	switch p {
	case Windows:
		return "windows"
	case Unix:
		return "unix"
	default:
		return "any"
	}
}

// Matches reports whether the platform applies to a runtime.GOOS value.
func (p Platform) Matches(goos string) bool {
	switch p {
	case Windows:
		return goos == "windows"
	case Unix:
		return goos != "windows"
	default:
		return true
	}
}

// Engine describes how to run a script with a given extension.
type Engine struct {
	Ext      string
	Program  string
	Args     []string
	Platform Platform
	// Direct engines run the script file itself; Program and Args are unused.
	Direct bool
}

// Engines is an ordered engine table. Order decides which file wins when
// several candidates exist. The zero value is an empty table.
type Engines struct {
	list []Engine
}

func NewEngines(list ...Engine) Engines {
	out := make([]Engine, len(list))
	for i, e := range list {
		e.Ext = normalizeExt(e.Ext)
		e.Args = slices.Clone(e.Args)
		out[i] = e
	}
	return Engines{list: out}
}

// DefaultEngines returns the built-in table.
func DefaultEngines() Engines {
	return NewEngines(
		Engine{Ext: "bat", Program: "cmd", Args: []string{"/C"}, Platform: Windows},
		Engine{Ext: "cmd", Program: "cmd", Args: []string{"/C"}, Platform: Windows},
		Engine{Ext: "ps1", Program: "powershell", Args: []string{"-ExecutionPolicy", "Bypass", "-File"}, Platform: Windows},
		Engine{Ext: "exe", Platform: Windows, Direct: true},
		Engine{Ext: "sh", Program: "sh", Platform: Unix},
		Engine{Ext: "py", Program: "python", Platform: Windows},
		Engine{Ext: "py", Program: "python3", Platform: Unix},
	)
}

// All returns a copy of every engine in table order.
func (e Engines) All() []Engine {
	out := make([]Engine, len(e.list))
	for i, eng := range e.list {
		eng.Args = slices.Clone(eng.Args)
		out[i] = eng
	}
	return out
}

// For returns the engines that apply to goos, in table order.
func (e Engines) For(goos string) []Engine {
	var out []Engine
	for _, eng := range e.All() {
		if eng.Platform.Matches(goos) {
			out = append(out, eng)
		}
	}
	return out
}

// Lookup finds the first engine for ext that applies to goos.
func (e Engines) Lookup(ext, goos string) (Engine, bool) {
	ext = normalizeExt(ext)
	for _, eng := range e.For(goos) {
		if eng.Ext == ext {
			return eng, true
		}
	}
	return Engine{}, false
}

// Extensions lists the distinct extensions available on goos in table order.
func (e Engines) Extensions(goos string) []string {
	var out []string
	for _, eng := range e.For(goos) {
		if !slices.Contains(out, eng.Ext) {
			out = append(out, eng.Ext)
		}
	}
	return out
}

// WithPrograms returns a copy of the table with the interpreter program of
// each listed extension replaced. Direct engines are left alone.
func (e Engines) WithPrograms(programs map[string]string) Engines {
	out := e.All()
	for i := range out {
		if out[i].Direct {
			continue
		}
		if p, ok := programs[out[i].Ext]; ok && strings.TrimSpace(p) != "" {
			out[i].Program = p
		}
	}
	return Engines{list: out}
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}
