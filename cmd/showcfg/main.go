package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"atomic/internal/config"
	"atomic/internal/control"
	"atomic/internal/logging"
)

func main() {
	path := ""
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	cfg, err := config.Load(path)
	if err != nil {
		panic(err)
	}
	fmt.Printf("config=%s task_file=%q log_dir=%q log_path=%q\n", cfg.Paths.ConfigPath, cfg.Paths.TaskFile, cfg.Paths.LogDir, cfg.Paths.LogPath)
	fmt.Printf("exec.shell=%q max_depth=%d echo=%v env=%d\n", cfg.Exec.Shell, cfg.Exec.MaxDepth, cfg.Exec.Echo, len(cfg.Exec.Env))
	resolver := control.NewResolver(cfg, logging.NewTestLogger())
	for _, e := range resolver.Engines.For(runtime.GOOS) {
		if e.Direct {
			fmt.Printf("engine .%s -> <script>\n", e.Ext)
			continue
		}
		fmt.Printf("engine .%s -> %s %s\n", e.Ext, e.Program, strings.Join(e.Args, " "))
	}
}
