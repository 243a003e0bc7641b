package shell

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"runtime"
	"strings"
	"testing"
	"time"

	"atomic/internal/logging"
)

func newTestExecutor(stdout, stderr *bytes.Buffer) *Executor {
	e := NewExecutor(logging.NewTestLogger())
	e.Stdin = strings.NewReader("")
	e.Stdout = stdout
	e.Stderr = stderr
	return e
}

func TestExecuteStreamsOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix shell required")
	}
	var stdout, stderr bytes.Buffer
	e := newTestExecutor(&stdout, &stderr)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out := e.Execute(ctx, "echo hello; echo oops 1>&2")
	if !out.OK() {
		t.Fatalf("expected success, got %v", out)
	}
	if stdout.String() != "hello\n" {
		t.Fatalf("stdout = %q", stdout.String())
	}
	if stderr.String() != "oops\n" {
		t.Fatalf("stderr = %q", stderr.String())
	}
}

func TestExecuteReportsExitCode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix shell required")
	}
	var stdout, stderr bytes.Buffer
	e := newTestExecutor(&stdout, &stderr)

	out := e.Execute(context.Background(), "exit 3")
	if out.OK() {
		t.Fatalf("expected failure")
	}
	if out.ExitCode != 3 || out.Err != nil {
		t.Fatalf("exit code = %d err = %v", out.ExitCode, out.Err)
	}
}

func TestExecuteSpawnFailureIsNotExitCode(t *testing.T) {
	var stdout, stderr bytes.Buffer
	e := newTestExecutor(&stdout, &stderr)
	e.Shell = []string{"definitely-not-a-shell-atomic", "-c"}

	out := e.Execute(context.Background(), "true")
	var spawnErr *SpawnError
	if !errors.As(out.Err, &spawnErr) {
		t.Fatalf("expected spawn error, got %v", out.Err)
	}
	if spawnErr.Program != "definitely-not-a-shell-atomic" {
		t.Fatalf("program = %q", spawnErr.Program)
	}
	if out.ExitCode != -1 {
		t.Fatalf("exit code = %d", out.ExitCode)
	}
}

func TestExecuteBlankIsSkipped(t *testing.T) {
	var stdout, stderr bytes.Buffer
	e := newTestExecutor(&stdout, &stderr)
	e.Echo = true

	out := e.Execute(context.Background(), "   ")
	if !out.Skipped || !out.OK() {
		t.Fatalf("expected skipped ok outcome, got %+v", out)
	}
	if stderr.String() != "$ (empty command skipped)\n" {
		t.Fatalf("blank command should be reported: %q", stderr.String())
	}

	stderr.Reset()
	e.Echo = false
	e.Execute(context.Background(), "")
	if stderr.Len() != 0 {
		t.Fatalf("nothing echoed without Echo: %q", stderr.String())
	}
}

func TestExecuteEchoAndEnv(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix shell required")
	}
	var stdout, stderr bytes.Buffer
	e := newTestExecutor(&stdout, &stderr)
	e.Echo = true
	e.Env = map[string]string{"GREETING": "hi"}

	out := e.Execute(context.Background(), `echo "$GREETING $ATOMIC"`)
	if !out.OK() {
		t.Fatalf("run: %v", out)
	}
	if stdout.String() != "hi 1\n" {
		t.Fatalf("stdout = %q", stdout.String())
	}
	if !strings.HasPrefix(stderr.String(), `$ echo "$GREETING $ATOMIC"`) {
		t.Fatalf("echo missing: %q", stderr.String())
	}
}

func TestDefaultShell(t *testing.T) {
	if got := DefaultShell("windows"); !reflect.DeepEqual(got, []string{"cmd", "/C"}) {
		t.Fatalf("windows shell = %v", got)
	}
	if got := DefaultShell("linux"); !reflect.DeepEqual(got, []string{"sh", "-c"}) {
		t.Fatalf("linux shell = %v", got)
	}
}

func TestParseShell(t *testing.T) {
	cases := []struct {
		raw    string
		expect []string
	}{
		{"", nil},
		{"bash -eu -c", []string{"bash", "-eu", "-c"}},
		{`"/opt/my shell/zsh" -c`, []string{"/opt/my shell/zsh", "-c"}},
	}
	for _, c := range cases {
		got, err := ParseShell(c.raw)
		if err != nil {
			t.Fatalf("ParseShell(%q): %v", c.raw, err)
		}
		if !reflect.DeepEqual(got, c.expect) {
			t.Fatalf("ParseShell(%q)=%v want %v", c.raw, got, c.expect)
		}
	}
}
