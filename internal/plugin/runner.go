package plugin

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"atomic/internal/document"
	"atomic/internal/script"
	"atomic/internal/shell"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logTimeLayout = "2006-01-02 15:04:05"
	logMaxSizeMB  = 10
	logMaxBackups = 3
)

var (
	stdoutColor = color.New(color.FgGreen)
	stderrColor = color.New(color.FgRed)
)

// ExitError reports a plugin process that ran and exited non-zero.
type ExitError struct {
	Plugin string
	Code   int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("plugin '%s' failed with exit code %d", e.Plugin, e.Code)
}

func (e *ExitError) Unwrap() error { return ErrPluginFailed }

// Runner spawns plugin scripts. Stdout and Stderr are each written from a
// single goroutine.
type Runner struct {
	Resolver *script.Resolver
	LogDir   string
	// Dir is the working directory for plugins; relative script paths are
	// taken from here.
	Dir    string
	Env    map[string]string
	Stdout io.Writer
	Stderr io.Writer
	Logger *logrus.Logger

	now func() time.Time
}

func NewRunner(resolver *script.Resolver, logDir string, logger *logrus.Logger) *Runner {
	return &Runner{
		Resolver: resolver,
		LogDir:   logDir,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		Logger:   logger,
		now:      time.Now,
	}
}

// LogPath is where silent output of the named plugin goes.
func (r *Runner) LogPath(name string) string {
	safe := strings.NewReplacer("/", "_", `\`, "_").Replace(name)
	return filepath.Join(r.LogDir, safe+".log")
}

// Run loads the plugin called name from doc and runs it.
func (r *Runner) Run(ctx context.Context, doc *document.Document, name string) error {
	entry, err := LoadEntry(doc, name)
	if err != nil {
		return err
	}
	return r.RunEntry(ctx, entry)
}

// RunEntry resolves the entry's script, runs it to completion and reports a
// non-zero exit as *ExitError.
func (r *Runner) RunEntry(ctx context.Context, e Entry) error {
	ref := e.Script
	if r.Dir != "" && !filepath.IsAbs(ref) {
		ref = filepath.Join(r.Dir, ref)
	}
	res, err := r.Resolver.Resolve(ref, e.Preferred)
	if err != nil {
		return fmt.Errorf("plugin %s: %w", e.Name, err)
	}
	argv := append(res.Command.Argv(), e.Args...)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = r.Dir
	cmd.Env = os.Environ()
	for k, v := range r.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	cmd.Env = append(cmd.Env, "ATOMIC_PLUGIN="+e.Name)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("plugin %s: stdout pipe: %w", e.Name, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("plugin %s: stderr pipe: %w", e.Name, err)
	}

	emitOut, emitErr := r.streamSinks()
	var sink *lumberjack.Logger
	if e.Silent {
		if err := os.MkdirAll(r.LogDir, 0o755); err != nil {
			return fmt.Errorf("plugin %s: log dir: %w", e.Name, err)
		}
		sink = &lumberjack.Logger{
			Filename:   r.LogPath(e.Name),
			MaxSize:    logMaxSizeMB,
			MaxBackups: logMaxBackups,
		}
		defer sink.Close()
		emitOut, emitErr = r.logSink(sink, "stdout"), r.logSink(sink, "stderr")
	}

	r.logger().Infof("plugin %s: %s", e.Name, strings.Join(argv, " "))
	start := time.Now()
	if err := cmd.Start(); err != nil {
		r.logger().Errorf("plugin %s: start failed: %v", e.Name, err)
		return fmt.Errorf("plugin %s: %w", e.Name, &shell.SpawnError{Program: argv[0], Err: err})
	}

	var g errgroup.Group
	g.Go(func() error { return drain(stdout, emitOut) })
	g.Go(func() error { return drain(stderr, emitErr) })
	drainErr := g.Wait()
	waitErr := cmd.Wait()

	if sink != nil {
		fmt.Fprintf(r.Stdout, "output logged to %s\n", sink.Filename)
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			r.logger().Infof("plugin %s exited with code %d after %s", e.Name, exitErr.ExitCode(), time.Since(start).Round(time.Millisecond))
			return &ExitError{Plugin: e.Name, Code: exitErr.ExitCode()}
		}
		return fmt.Errorf("plugin %s: wait: %w", e.Name, waitErr)
	}
	if drainErr != nil {
		return fmt.Errorf("plugin %s: capture output: %w", e.Name, drainErr)
	}
	r.logger().Infof("plugin %s finished in %s", e.Name, time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(r.Stdout, "plugin '%s' executed successfully\n", e.Name)
	return nil
}

func (r *Runner) streamSinks() (func(string) error, func(string) error) {
	stdoutMarker, stderrMarker := stdoutColor.Sprint("▶"), stderrColor.Sprint("!")
	out := func(line string) error {
		_, err := fmt.Fprintf(r.Stdout, "%s %s\n", stdoutMarker, line)
		return err
	}
	errw := func(line string) error {
		_, err := fmt.Fprintf(r.Stderr, "%s %s\n", stderrMarker, line)
		return err
	}
	return out, errw
}

// logSink writes each line with a single Write call; lumberjack serializes
// concurrent writers.
func (r *Runner) logSink(w io.Writer, stream string) func(string) error {
	now := r.now
	if now == nil {
		now = time.Now
	}
	return func(line string) error {
		_, err := fmt.Fprintf(w, "[%s] [%s] %s\n", now().Format(logTimeLayout), stream, line)
		return err
	}
}

func (r *Runner) logger() *logrus.Logger {
	if r.Logger == nil {
		return logrus.StandardLogger()
	}
	return r.Logger
}

// drain reads r line by line until EOF. If emit fails the rest of the stream
// is discarded so the child never blocks on a full pipe.
func drain(r io.Reader, emit func(string) error) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			if werr := emit(strings.TrimRight(line, "\r\n")); werr != nil {
				_, _ = io.Copy(io.Discard, br)
				return werr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
