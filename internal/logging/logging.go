package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"atomic/internal/config"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var warnColor = color.New(color.FgYellow)

// Configure sets up logrus with rotation. The log file only reaches the
// terminal when logging.stdout is set; otherwise warnings are still echoed
// to stderr through a StderrHook.
func Configure(cfg *config.Config, stderr io.Writer) (*logrus.Logger, error) {
	if err := config.MustStatePaths(cfg); err != nil {
		return nil, err
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := logrus.New()
	switch strings.ToLower(cfg.Logging.Format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if lvl, err := logrus.ParseLevel(strings.ToLower(cfg.Logging.Level)); err == nil {
		logger.SetLevel(lvl)
	}
	rotator := &lumberjack.Logger{
		Filename:   cfg.Paths.LogPath,
		MaxSize:    20, // megabytes
		MaxBackups: 3,
		MaxAge:     30,
	}
	if cfg.Logging.Stdout {
		// stdout belongs to the commands being run
		logger.SetOutput(io.MultiWriter(stderr, rotator))
	} else {
		logger.SetOutput(rotator)
		logger.AddHook(&StderrHook{W: stderr})
	}
	return logger, nil
}

// StderrHook prints warning entries as a single "warning: <msg>" line.
// Errors are left to the callers, which return them.
type StderrHook struct {
	W io.Writer
}

func (h *StderrHook) Levels() []logrus.Level {
	return []logrus.Level{logrus.WarnLevel}
}

func (h *StderrHook) Fire(entry *logrus.Entry) error {
	_, err := fmt.Fprintf(h.W, "%s %s\n", warnColor.Sprint("warning:"), entry.Message)
	return err
}

// NewTestLogger returns a logger that discards everything.
func NewTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.DebugLevel)
	return logger
}
