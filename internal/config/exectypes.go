package config

// ExecConfig controls how shell steps and plugin interpreters are spawned.
type ExecConfig struct {
	Shell        string            `toml:"shell"`        // e.g. "bash -eu -c"; empty uses sh -c / cmd /C
	MaxDepth     int               `toml:"max_depth"`    // nested command references before giving up
	Echo         bool              `toml:"echo"`         // print "$ cmd" before each step
	Env          map[string]string `toml:"env"`          // extra environment for steps and plugins
	Interpreters map[string]string `toml:"interpreters"` // extension -> program, e.g. py = "python3.12"
}
