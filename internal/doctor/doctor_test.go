package doctor

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"atomic/internal/config"
	"atomic/internal/logging"
	"atomic/internal/script"
)

func TestRunChecksPlugins(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix shell required")
	}
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(cfgPath, []byte(""), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "fmt.sh"), []byte("true\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	task := filepath.Join(dir, "atomic.toml")
	src := "[plugin.fmt]\nscript = \"fmt\"\n\n[plugin.gone]\nscript = \"gone\"\n\n[plugin.bad]\nargs = []\n"
	if err := os.WriteFile(task, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Default()
	if err != nil {
		t.Fatal(err)
	}
	cfg.Paths.ConfigPath = cfgPath
	resolver := script.NewResolver(script.DefaultEngines(), logging.NewTestLogger())

	results := Run(cfg, task, resolver)
	byName := map[string]Result{}
	for _, r := range results {
		byName[r.Name] = r
	}
	expect := map[string]bool{
		"config path": true,
		"exec.shell":  true,
		"task file":   true,
		"plugin fmt":  true,
		"plugin gone": false,
		"plugin bad":  false,
	}
	for name, pass := range expect {
		r, ok := byName[name]
		if !ok {
			t.Fatalf("missing result %q in %+v", name, results)
		}
		if r.Pass != pass {
			t.Fatalf("%s pass=%v want %v (%s)", name, r.Pass, pass, r.Detail)
		}
	}
	if !strings.HasPrefix(byName["plugin fmt"].Detail, "sh ") {
		t.Fatalf("plugin fmt detail = %q", byName["plugin fmt"].Detail)
	}
}

func TestRunMissingTaskFile(t *testing.T) {
	cfg, err := config.Default()
	if err != nil {
		t.Fatal(err)
	}
	cfg.Exec.Shell = "definitely-not-a-shell-atomic -c"
	results := Run(cfg, filepath.Join(t.TempDir(), "atomic.toml"), script.NewResolver(script.DefaultEngines(), logging.NewTestLogger()))
	if len(results) != 3 {
		t.Fatalf("plugin checks should be skipped: %+v", results)
	}
	for _, r := range results {
		if r.Pass {
			t.Fatalf("%s should fail: %+v", r.Name, r)
		}
	}
}
