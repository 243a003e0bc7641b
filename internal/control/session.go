package control

import (
	"errors"
	"fmt"
	"io"
	"os"

	"atomic/internal/command"
	"atomic/internal/config"
	"atomic/internal/document"
	"atomic/internal/logging"
	"atomic/internal/plugin"
	"atomic/internal/script"
	"atomic/internal/shell"

	"github.com/sirupsen/logrus"
)

// Session is what a single CLI invocation works with: settings, logger and
// the parsed task file.
type Session struct {
	Config *config.Config
	Logger *logrus.Logger
	Doc    *document.Document
	Stdout io.Writer
	Stderr io.Writer
}

// Open loads settings and the task file. taskFile overrides paths.task_file.
func Open(cfgPath, taskFile string, stdout, stderr io.Writer) (*Session, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.Configure(cfg, stderr)
	if err != nil {
		return nil, err
	}
	path := TaskFilePath(cfg, taskFile)
	doc, err := document.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("task file %s not found (use -f or set paths.task_file)", path)
		}
		return nil, err
	}
	logger.Debugf("loaded %s", doc.Path())
	return &Session{Config: cfg, Logger: logger, Doc: doc, Stdout: stdout, Stderr: stderr}, nil
}

// TaskFilePath picks the flag value over the configured task file.
func TaskFilePath(cfg *config.Config, flag string) string {
	if flag != "" {
		return os.ExpandEnv(flag)
	}
	if cfg.Paths.TaskFile != "" {
		return os.ExpandEnv(cfg.Paths.TaskFile)
	}
	return config.DefaultTaskFile
}

// Executor builds the shell executor for steps. Steps run in the task file's
// directory.
func (s *Session) Executor() (*shell.Executor, error) {
	e := shell.NewExecutor(s.Logger)
	if s.Config.Exec.Shell != "" {
		sh, err := shell.ParseShell(s.Config.Exec.Shell)
		if err != nil {
			return nil, err
		}
		e.Shell = sh
	}
	e.Env = s.Config.Exec.Env
	e.Echo = s.Config.Exec.Echo
	e.Dir = s.Doc.Dir()
	e.Stdout = s.Stdout
	e.Stderr = s.Stderr
	return e, nil
}

func (s *Session) CommandRunner() (*command.Runner, error) {
	e, err := s.Executor()
	if err != nil {
		return nil, err
	}
	return command.NewRunner(s.Doc, e, s.Logger, command.WithMaxDepth(s.Config.Exec.MaxDepth)), nil
}

func (s *Session) Resolver() *script.Resolver {
	return NewResolver(s.Config, s.Logger)
}

func (s *Session) PluginRunner() *plugin.Runner {
	r := plugin.NewRunner(s.Resolver(), s.Config.LogDirFor(s.Doc.Dir()), s.Logger)
	r.Dir = s.Doc.Dir()
	r.Env = s.Config.Exec.Env
	r.Stdout = s.Stdout
	r.Stderr = s.Stderr
	return r
}

// NewResolver returns a script resolver honoring [exec.interpreters].
func NewResolver(cfg *config.Config, logger *logrus.Logger) *script.Resolver {
	engines := script.DefaultEngines().WithPrograms(cfg.Exec.Interpreters)
	return script.NewResolver(engines, logger)
}
