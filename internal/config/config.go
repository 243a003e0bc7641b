package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultTaskFile      = "atomic.toml"
	DefaultLogDir        = "atomic-logs"
	DefaultMaxDepth      = 32
	defaultStateDirLinux = ".local/state/atomic"
	defaultConfigDir     = ".config/atomic"
)

// Config holds user settings loaded from TOML. The task file itself is a
// separate document; see internal/document.
type Config struct {
	Logging struct {
		Level  string `toml:"level"`  // debug, info, warn, error
		Format string `toml:"format"` // text, json
		Stdout bool   `toml:"stdout"` // also write logs to stderr
	} `toml:"logging"`

	Paths struct {
		TaskFile   string `toml:"task_file"`
		LogDir     string `toml:"log_dir"` // silent plugin logs, relative to the task file
		StateDir   string `toml:"state_dir"`
		LogPath    string `toml:"log_path"`
		ConfigPath string `toml:"-"`
	} `toml:"paths"`

	Exec ExecConfig `toml:"exec"`
}

// Default returns Config populated with defaults.
func Default() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	stateDir := filepath.Join(home, defaultStateDirLinux)
	// macOS prefers ~/Library/Application Support/atomic for state/logs
	if isMac() {
		stateDir = filepath.Join(home, "Library", "Application Support", "atomic")
	}

	cfg := &Config{}

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"

	cfg.Paths.TaskFile = DefaultTaskFile
	cfg.Paths.LogDir = DefaultLogDir
	cfg.Paths.StateDir = stateDir
	cfg.Paths.LogPath = filepath.Join(stateDir, "atomic.log")

	cfg.Exec.MaxDepth = DefaultMaxDepth
	cfg.Exec.Echo = true
	cfg.Exec.Env = map[string]string{}
	cfg.Exec.Interpreters = map[string]string{}

	return cfg, nil
}

// Load loads config from file, applying defaults.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	if path == "" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, defaultConfigDir, "config.toml")
	}

	// Read if exists; otherwise write template.
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if err := Save(cfg, path); err != nil {
				return nil, err
			}
			cfg.Paths.ConfigPath = path
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Paths.ConfigPath = path
	applyEnvOverrides(cfg)
	if cfg.Exec.MaxDepth <= 0 {
		cfg.Exec.MaxDepth = DefaultMaxDepth
	}
	return cfg, nil
}

// Save writes cfg to path.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o600)
}

func isMac() bool {
	return runtime.GOOS == "darwin"
}

// MustStatePaths ensures state dirs exist.
func MustStatePaths(cfg *Config) error {
	for _, p := range []string{cfg.Paths.StateDir, filepath.Dir(cfg.Paths.LogPath)} {
		if p == "" {
			continue
		}
		if err := os.MkdirAll(p, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// LogDirFor resolves the plugin log directory against the task file location.
func (c *Config) LogDirFor(taskDir string) string {
	dir := os.ExpandEnv(c.Paths.LogDir)
	if dir == "" {
		dir = DefaultLogDir
	}
	if filepath.IsAbs(dir) || taskDir == "" {
		return dir
	}
	return filepath.Join(taskDir, dir)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ATOMIC_TASK_FILE"); v != "" {
		cfg.Paths.TaskFile = v
	}
	if v := os.Getenv("ATOMIC_LOG_DIR"); v != "" {
		cfg.Paths.LogDir = v
	}
	if v := os.Getenv("ATOMIC_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ATOMIC_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("ATOMIC_SHELL"); v != "" {
		cfg.Exec.Shell = v
	}
	if v := os.Getenv("ATOMIC_MAX_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Exec.MaxDepth = n
		}
	}
	if v := os.Getenv("ATOMIC_ECHO"); v != "" {
		cfg.Exec.Echo = v != "0" && strings.ToLower(v) != "false"
	}
}
