// Package shell runs literal command strings through the platform shell.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/google/shlex"
	"github.com/sirupsen/logrus"
)

const goosWindows = "windows"

// Outcome is the result of one literal. A non-zero exit sets ExitCode; a
// process that could not be started sets Err instead.
type Outcome struct {
	Command  string
	ExitCode int
	Err      error
	Skipped  bool
	Duration time.Duration
}

// OK reports whether the step ran (or was skipped) and exited zero.
func (o Outcome) OK() bool {
	return o.Err == nil && o.ExitCode == 0
}

func (o Outcome) String() string {
	switch {
	case o.Skipped:
		return "skipped (empty command)"
	case o.Err != nil:
		return o.Err.Error()
	case o.ExitCode != 0:
		return fmt.Sprintf("%q exited with code %d", o.Command, o.ExitCode)
	default:
		return fmt.Sprintf("%q ok", o.Command)
	}
}

// SpawnError is returned when the shell itself could not be started.
type SpawnError struct {
	Program string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("start %s: %v", e.Program, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// Executor runs literals synchronously with the caller's terminal attached.
type Executor struct {
	// Shell is the program and leading arguments; the literal is appended.
	Shell []string
	Env   map[string]string
	Dir   string
	// Echo prints "$ <literal>" to Stderr before each run.
	Echo bool

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	logger *logrus.Logger
}

func NewExecutor(logger *logrus.Logger) *Executor {
	return &Executor{
		Shell:  DefaultShell(runtime.GOOS),
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		logger: logger,
	}
}

// DefaultShell returns the shell invocation for goos.
func DefaultShell(goos string) []string {
	if goos == goosWindows {
		return []string{"cmd", "/C"}
	}
	return []string{"sh", "-c"}
}

// ParseShell splits a shell override such as "bash -eu -c".
func ParseShell(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts, err := shlex.Split(raw)
	if err != nil {
		return nil, fmt.Errorf("parse shell %q: %w", raw, err)
	}
	return parts, nil
}

// Execute runs literal and waits for it. Failures are reported in the
// Outcome; they never abort the caller's sequence.
func (e *Executor) Execute(ctx context.Context, literal string) Outcome {
	out := Outcome{Command: literal}
	if strings.TrimSpace(literal) == "" {
		out.Skipped = true
		e.logger.Info("skipping empty command")
		if e.Echo && e.Stderr != nil {
			_, _ = fmt.Fprintln(e.Stderr, "$ (empty command skipped)")
		}
		return out
	}

	sh := e.Shell
	if len(sh) == 0 {
		sh = DefaultShell(runtime.GOOS)
	}
	args := append(append([]string{}, sh[1:]...), literal)
	cmd := exec.CommandContext(ctx, sh[0], args...)
	cmd.Dir = e.Dir
	cmd.Env = os.Environ()
	for k, v := range e.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	cmd.Env = append(cmd.Env, "ATOMIC=1")
	cmd.Stdin = e.Stdin
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr

	if e.Echo && e.Stderr != nil {
		_, _ = fmt.Fprintf(e.Stderr, "$ %s\n", literal)
	}
	e.logger.Debugf("run: %s %s", strings.Join(sh, " "), literal)

	start := time.Now()
	err := cmd.Run()
	out.Duration = time.Since(start)
	if err == nil {
		return out
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		out.ExitCode = exitErr.ExitCode()
		e.logger.Infof("command %q exited with code %d", literal, out.ExitCode)
		return out
	}
	out.ExitCode = -1
	out.Err = &SpawnError{Program: sh[0], Err: err}
	e.logger.Errorf("command %q: %v", literal, out.Err)
	return out
}
