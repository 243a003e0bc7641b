package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"atomic/internal/control"

	"github.com/spf13/cobra"
)

const version = "0.2.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	root := &cobra.Command{
		Use:   "atomic [name]",
		Short: "atomic — run the commands and plugins declared in atomic.toml",
		Long: `atomic reads atomic.toml and runs what it declares: literal shell commands, chains of other
commands, before/command/after hook tables, and plugin scripts picked by file extension.

Key commands:
  <name> | run <name>       Run a command (chains resolve names recursively)
  plugin <name> | -p <name> Run a [plugin.<name>] script
  plan <name>               Show the resolved steps without running them
  list [--json] | -l        List commands and plugins
  doctor                    Check task file, shell and interpreters
  tail-log [plugin]         Show last log lines

Env overrides: ATOMIC_TASK_FILE, ATOMIC_LOG_DIR, ATOMIC_LOG_LEVEL/FORMAT,
               ATOMIC_SHELL, ATOMIC_MAX_DEPTH, ATOMIC_ECHO`,
		Example: `  atomic ci
  atomic run deploy
  atomic -p fmt
  atomic plan ci
  atomic list --json
  atomic tail-log fmt -n 20`,
		Args:                  cobra.MaximumNArgs(1),
		DisableFlagsInUseLine: true,
		SilenceUsage:          true,
		SilenceErrors:         true,
	}

	root.Version = version
	root.SetVersionTemplate("atomic v{{.Version}}\n")

	cfgPath := root.PersistentFlags().StringP("config", "c", "", "Path to settings file (TOML). Defaults to ~/.config/atomic/config.toml")
	filePath := root.PersistentFlags().StringP("file", "f", "", "Path to the task file. Defaults to ./atomic.toml")
	listFlag := root.Flags().BoolP("list", "l", false, "List all commands found in the task file")
	pluginName := root.Flags().StringP("plugin", "p", "", "Run a plugin defined in [plugin]")
	root.MarkFlagsMutuallyExclusive("list", "plugin")
	root.CompletionOptions.DisableDefaultCmd = true

	root.RunE = func(cmd *cobra.Command, args []string) error {
		switch {
		case *listFlag:
			return control.ListEntries(cmd, *cfgPath, *filePath, false)
		case *pluginName != "":
			if len(args) > 0 {
				return fmt.Errorf("--plugin cannot be combined with a command name")
			}
			return control.RunPlugin(cmd, *cfgPath, *filePath, *pluginName)
		case len(args) == 1:
			return control.RunCommand(cmd, *cfgPath, *filePath, args[0])
		}
		return cmd.Help()
	}

	root.AddCommand(control.NewRunCmd(cfgPath, filePath))
	root.AddCommand(control.NewPluginCmd(cfgPath, filePath))
	root.AddCommand(control.NewPlanCmd(cfgPath, filePath))
	root.AddCommand(control.NewListCmd(cfgPath, filePath))
	root.AddCommand(control.NewDoctorCmd(cfgPath, filePath))
	root.AddCommand(control.NewTailLogCmd(cfgPath, filePath))

	applyColorHelp(root)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return root.ExecuteContext(ctx)
}

func applyColorHelp(root *cobra.Command) {
	const (
		boldBlue = "\033[1;34m"
		green    = "\033[32m"
		bold     = "\033[1m"
		dim      = "\033[2m"
		reset    = "\033[0m"
	)
	root.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if cmd != root {
			// subcommands keep cobra's plain help
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n%s", cmd.Short, cmd.UsageString())
			return
		}
		out := cmd.OutOrStdout()
		write := func(format string, args ...any) { _, _ = fmt.Fprintf(out, format, args...) }
		writeln := func(line string) { _, _ = fmt.Fprintln(out, line) }

		write("%satomic%s — task runner for atomic.toml %s(v%s)%s\n", boldBlue, reset, dim, version, reset)
		write("%sRuns literals, chains, hook tables and plugin scripts.%s\n\n", dim, reset)

		write("%sUsage%s\n", bold, reset)
		write("  atomic <name> | atomic [command] [flags]\n\n")

		write("%sKey commands%s\n", bold, reset)
		writeln("  <name>, run <name>          run a command from the task file")
		writeln("  plugin <name>, -p <name>    run a plugin script")
		writeln("  plan <name>                 show resolved steps (dry run)")
		writeln("  list [--json], -l           list commands and plugins")
		writeln("  doctor                      check task file/shell/interpreters")
		writeln("  tail-log [plugin] [-n N]    show last log lines")
		writeln("")

		write("%sNotable flags & env%s\n", bold, reset)
		writeln("  -f, --file <path>       task file (default ./atomic.toml)")
		writeln("  -c, --config <path>     settings file (default ~/.config/atomic/config.toml)")
		writeln("  Env: ATOMIC_TASK_FILE=ci/atomic.toml, ATOMIC_SHELL=\"bash -eu -c\",")
		writeln("       ATOMIC_LOG_LEVEL=debug, ATOMIC_LOG_FORMAT=json,")
		writeln("       ATOMIC_MAX_DEPTH=16, ATOMIC_ECHO=0, ATOMIC_LOG_DIR=logs")
		writeln("")

		write("%sExamples%s\n", bold, reset)
		writeln("  atomic ci")
		writeln("  atomic run deploy")
		writeln("  atomic -p fmt")
		writeln("  atomic plan ci")
		writeln("  atomic list --json")
		writeln("  atomic tail-log fmt -n 20")
		writeln("")

		write("%sCommands%s\n", bold, reset)
		for _, c := range cmd.Commands() {
			if c.Hidden {
				continue
			}
			write("  %s%-15s%s %s\n", green, c.Name(), reset, c.Short)
		}
	})
}
