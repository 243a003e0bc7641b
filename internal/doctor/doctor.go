package doctor

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"atomic/internal/config"
	"atomic/internal/document"
	"atomic/internal/plugin"
	"atomic/internal/script"
	"atomic/internal/shell"
)

// Result represents a diagnostic check.
type Result struct {
	Name   string
	Pass   bool
	Detail string
}

// Run executes doctor checks. Plugin checks only run when the task file
// parses.
func Run(cfg *config.Config, taskPath string, resolver *script.Resolver) []Result {
	results := []Result{
		checkFile("config path", cfg.Paths.ConfigPath),
		checkShell(cfg.Exec.Shell),
	}
	doc, res := checkTaskFile(taskPath)
	results = append(results, res)
	if doc == nil {
		return results
	}
	for _, name := range plugin.Names(doc) {
		results = append(results, checkPlugin(doc, name, resolver))
	}
	return results
}

func checkFile(label, path string) Result {
	if path == "" {
		return Result{Name: label, Pass: false, Detail: "not set"}
	}
	if _, err := os.Stat(os.ExpandEnv(path)); err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	return Result{Name: label, Pass: true, Detail: path}
}

func checkTaskFile(path string) (*document.Document, Result) {
	label := "task file"
	doc, err := document.Load(path)
	if err != nil {
		return nil, Result{Name: label, Pass: false, Detail: err.Error()}
	}
	return doc, Result{Name: label, Pass: true, Detail: doc.Path()}
}

func checkShell(override string) Result {
	label := "exec.shell"
	sh, err := shell.ParseShell(override)
	if err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	if len(sh) == 0 {
		sh = shell.DefaultShell(runtime.GOOS)
	}
	return checkProgram(label, sh[0])
}

func checkPlugin(doc *document.Document, name string, resolver *script.Resolver) Result {
	label := "plugin " + name
	e, err := plugin.LoadEntry(doc, name)
	if err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	ref := e.Script
	if !filepath.IsAbs(ref) {
		ref = filepath.Join(doc.Dir(), ref)
	}
	res, err := resolver.Resolve(ref, e.Preferred)
	if err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	prog := checkProgram(label, res.Command.Program)
	if prog.Pass {
		prog.Detail = res.Command.String()
		if len(res.Ambiguous) > 0 {
			prog.Detail += fmt.Sprintf(" (also found: %s)", strings.Join(res.Ambiguous[1:], ", "))
		}
	}
	return prog
}

// checkProgram accepts an explicit path or a name found on PATH.
func checkProgram(label, program string) Result {
	path := os.ExpandEnv(program)
	if strings.Contains(path, "/") || strings.Contains(path, "\\") {
		info, err := os.Stat(path)
		if err != nil {
			return Result{Name: label, Pass: false, Detail: err.Error()}
		}
		if info.IsDir() {
			return Result{Name: label, Pass: false, Detail: path + " is a directory"}
		}
		if runtime.GOOS != "windows" && info.Mode().Perm()&0o111 == 0 {
			return Result{Name: label, Pass: false, Detail: path + " is not executable"}
		}
		return Result{Name: label, Pass: true, Detail: path}
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	return Result{Name: label, Pass: true, Detail: resolved}
}
