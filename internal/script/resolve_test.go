package script

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"
)

func newTestResolver(goos string, files ...string) (*Resolver, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	fs := afero.NewMemMapFs()
	for _, f := range files {
		_ = afero.WriteFile(fs, f, []byte("#!/bin/sh\n"), 0o755)
	}
	return &Resolver{Engines: DefaultEngines(), OS: goos, Fs: fs, Logger: logger}, hook
}

func TestExplicitExtensionSkipsExistenceCheck(t *testing.T) {
	cases := []struct {
		goos   string
		ref    string
		expect []string
	}{
		{"linux", "scripts/build.sh", []string{"sh", "scripts/build.sh"}},
		{"linux", "scripts/build.py", []string{"python3", "scripts/build.py"}},
		{"darwin", "x.PY", []string{"python3", "x.PY"}},
		{"windows", `scripts\build.ps1`, []string{"powershell", "-ExecutionPolicy", "Bypass", "-File", `scripts\build.ps1`}},
		{"windows", "build.bat", []string{"cmd", "/C", "build.bat"}},
		{"windows", "build.py", []string{"python", "build.py"}},
		{"windows", "tool.exe", []string{"tool.exe"}},
	}
	for _, c := range cases {
		r, _ := newTestResolver(c.goos)
		res, err := r.Resolve(c.ref, "")
		if err != nil {
			t.Fatalf("%s %s: %v", c.goos, c.ref, err)
		}
		if got := res.Command.Argv(); !reflect.DeepEqual(got, c.expect) {
			t.Fatalf("%s %s: argv=%v want %v", c.goos, c.ref, got, c.expect)
		}
	}
}

func TestUnsupportedExtension(t *testing.T) {
	cases := []struct{ goos, ref string }{
		{"linux", "deploy.rb"},
		{"linux", "deploy.ps1"},
		{"windows", "deploy.sh"},
	}
	for _, c := range cases {
		r, _ := newTestResolver(c.goos)
		_, err := r.Resolve(c.ref, "")
		var extErr *ExtensionError
		if !errors.As(err, &extErr) || !errors.Is(err, ErrUnsupportedExtension) {
			t.Fatalf("%s %s: expected extension error, got %v", c.goos, c.ref, err)
		}
		if !strings.Contains(err.Error(), Ext(c.ref)) {
			t.Fatalf("error should name the extension: %v", err)
		}
	}
}

func TestAmbiguousPicksTableOrder(t *testing.T) {
	r, hook := newTestResolver("linux", "deploy.sh", "deploy.py")
	res, err := r.Resolve("deploy", "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Command.Program != "sh" || res.Command.Path != "deploy.sh" {
		t.Fatalf("command = %+v", res.Command)
	}
	if want := []string{"deploy.sh", "deploy.py"}; !reflect.DeepEqual(res.Ambiguous, want) {
		t.Fatalf("ambiguous = %v", res.Ambiguous)
	}
	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.WarnLevel {
		t.Fatalf("expected a warning, got %v", entry)
	}
	if !strings.Contains(entry.Message, "sh") || !strings.Contains(entry.Message, "py") {
		t.Fatalf("warning should name both extensions: %q", entry.Message)
	}
}

func TestPreferredExtensionWins(t *testing.T) {
	for _, pref := range []string{"py", ".py", "PY"} {
		r, _ := newTestResolver("linux", "tools/fmt.sh", "tools/fmt.py")
		res, err := r.Resolve("tools/fmt", pref)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if want := []string{"python3", "tools/fmt.py"}; !reflect.DeepEqual(res.Command.Argv(), want) {
			t.Fatalf("preferred %q: argv=%v", pref, res.Command.Argv())
		}
	}
}

func TestPreferredNotAvailableIsIgnored(t *testing.T) {
	r, hook := newTestResolver("linux", "tools/fmt.sh")
	res, err := r.Resolve("tools/fmt", "ps1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Command.Path != "tools/fmt.sh" {
		t.Fatalf("path = %q", res.Command.Path)
	}
	if len(hook.Entries) != 1 || hook.Entries[0].Level != logrus.WarnLevel {
		t.Fatalf("expected one warning, got %v", hook.Entries)
	}
}

func TestFileUsedAsDirectoryIsNotFound(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix stat semantics")
	}
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "tools"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	r, _ := newTestResolver("linux")
	r.Fs = afero.NewOsFs()
	_, err := r.Resolve(filepath.Join(dir, "tools", "fmt"), "")
	if !errors.Is(err, ErrScriptNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMissingScript(t *testing.T) {
	r, _ := newTestResolver("linux")
	_, err := r.Resolve("missing", "")
	var nf *NotFoundError
	if !errors.As(err, &nf) || !errors.Is(err, ErrScriptNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if want := []string{"sh", "py"}; !reflect.DeepEqual(nf.Tried, want) {
		t.Fatalf("tried = %v", nf.Tried)
	}
	if !strings.Contains(err.Error(), "missing") {
		t.Fatalf("error should name the reference: %v", err)
	}
}

func TestDirectoryIsNotAScript(t *testing.T) {
	r, _ := newTestResolver("linux")
	if err := r.Fs.MkdirAll("build.sh", 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if _, err := r.Resolve("build", ""); !errors.Is(err, ErrScriptNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestWindowsCandidateOrder(t *testing.T) {
	r, _ := newTestResolver("windows", "run.py", "run.exe", "run.cmd")
	res, err := r.Resolve("run", "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if want := []string{"cmd", "/C", "run.cmd"}; !reflect.DeepEqual(res.Command.Argv(), want) {
		t.Fatalf("argv = %v", res.Command.Argv())
	}
	if want := []string{"bat", "cmd", "ps1", "exe", "py"}; !reflect.DeepEqual(r.Engines.Extensions("windows"), want) {
		t.Fatalf("extensions = %v", r.Engines.Extensions("windows"))
	}
}

func TestDotfileHasNoExtension(t *testing.T) {
	if got := Ext("hooks/.envrc"); got != "" {
		t.Fatalf("Ext(.envrc) = %q", got)
	}
	if got := Ext("v1.2/run"); got != "" {
		t.Fatalf("Ext(v1.2/run) = %q", got)
	}
	if got := Ext("a/b.sh"); got != "sh" {
		t.Fatalf("Ext(b.sh) = %q", got)
	}
	r, _ := newTestResolver("linux", "hooks/.envrc.sh")
	res, err := r.Resolve("hooks/.envrc", "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Command.Path != "hooks/.envrc.sh" {
		t.Fatalf("path = %q", res.Command.Path)
	}
}

func TestWithProgramsOverridesInterpreter(t *testing.T) {
	engines := DefaultEngines().WithPrograms(map[string]string{"py": "/opt/py/bin/python", "exe": "ignored"})
	r, _ := newTestResolver("linux")
	r.Engines = engines
	res, err := r.Resolve("fmt.py", "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Command.Program != "/opt/py/bin/python" {
		t.Fatalf("program = %q", res.Command.Program)
	}
	if eng, _ := engines.Lookup("exe", "windows"); !eng.Direct || eng.Program != "" {
		t.Fatalf("direct engine changed: %+v", eng)
	}
	if eng, _ := DefaultEngines().Lookup("py", "linux"); eng.Program != "python3" {
		t.Fatalf("default table mutated: %+v", eng)
	}
}
