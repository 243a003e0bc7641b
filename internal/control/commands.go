package control

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"atomic/internal/command"
	"atomic/internal/config"
	"atomic/internal/doctor"
	"atomic/internal/logging"
	"atomic/internal/plugin"

	"github.com/spf13/cobra"
)

// NewRunCmd runs a configured command by name.
func NewRunCmd(cfgPath, filePath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run <name>",
		Short: "Run a command from the task file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunCommand(cmd, *cfgPath, *filePath, args[0])
		},
	}
}

// RunCommand runs name and reports failed steps. Any failed step or invalid
// nested entry makes the whole run fail after the sequence has finished.
func RunCommand(cmd *cobra.Command, cfgPath, filePath, name string) error {
	s, err := Open(cfgPath, filePath, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	runner, err := s.CommandRunner()
	if err != nil {
		return err
	}
	rep, err := runner.Run(cmd.Context(), name)
	if err != nil {
		return err
	}
	if rep.OK() {
		s.Logger.Infof("command %s ok (%d steps)", name, len(rep.Outcomes))
		return nil
	}
	failed := rep.Failed()
	for _, o := range failed {
		fmt.Fprintf(s.Stderr, "failed: %s\n", o)
	}
	for _, e := range rep.Errors {
		fmt.Fprintf(s.Stderr, "skipped: %v\n", e)
	}
	return fmt.Errorf("command %q: %d of %d steps failed, %d invalid entries", name, len(failed), len(rep.Outcomes), len(rep.Errors))
}

// NewPluginCmd runs a [plugin.<name>] entry.
func NewPluginCmd(cfgPath, filePath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "plugin <name>",
		Short: "Run a plugin script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunPlugin(cmd, *cfgPath, *filePath, args[0])
		},
	}
}

func RunPlugin(cmd *cobra.Command, cfgPath, filePath, name string) error {
	s, err := Open(cfgPath, filePath, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	return s.PluginRunner().Run(cmd.Context(), s.Doc, name)
}

// NewPlanCmd prints what a command would run.
func NewPlanCmd(cfgPath, filePath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "plan <name>",
		Short: "Show the steps a command resolves to without running them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := Open(*cfgPath, *filePath, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			runner, err := s.CommandRunner()
			if err != nil {
				return err
			}
			tree, err := runner.Tree(args[0])
			fmt.Fprint(s.Stdout, tree)
			return err
		},
	}
}

// NewListCmd lists commands and plugins.
func NewListCmd(cfgPath, filePath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List commands and plugins in the task file",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			return ListEntries(cmd, *cfgPath, *filePath, jsonOut)
		},
	}
	cmd.Flags().Bool("json", false, "output JSON")
	return cmd
}

func ListEntries(cmd *cobra.Command, cfgPath, filePath string, jsonOut bool) error {
	s, err := Open(cfgPath, filePath, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	inv := BuildInventory(s)
	if jsonOut {
		enc := json.NewEncoder(s.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(inv)
	}
	writeInventory(s.Stdout, inv)
	return nil
}

// BuildInventory collects commands and plugins in document order.
func BuildInventory(s *Session) Inventory {
	inv := Inventory{
		TaskFile: s.Doc.Path(),
		Commands: command.List(s.Doc, plugin.Section),
	}
	for _, name := range plugin.Names(s.Doc) {
		e, err := plugin.LoadEntry(s.Doc, name)
		if err != nil {
			inv.Plugins = append(inv.Plugins, PluginListing{Name: name, Error: err.Error()})
			continue
		}
		inv.Plugins = append(inv.Plugins, PluginListing{
			Name:      name,
			Script:    e.Script,
			Preferred: e.Preferred,
			Silent:    e.Silent,
			Desc:      e.Desc,
		})
	}
	return inv
}

func writeInventory(w io.Writer, inv Inventory) {
	fmt.Fprintln(w, "commands:")
	if len(inv.Commands) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, c := range inv.Commands {
		detail := c.Desc
		if c.Error != "" {
			detail = c.Error
		}
		fmt.Fprintf(w, "  %-20s %-8s %s\n", keyPath(c), c.Kind, detail)
	}
	fmt.Fprintln(w, "plugins:")
	if len(inv.Plugins) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, p := range inv.Plugins {
		if p.Error != "" {
			fmt.Fprintf(w, "  %-20s %-8s %s\n", p.Name, "invalid", p.Error)
			continue
		}
		mode := "stream"
		if p.Silent {
			mode = "silent"
		}
		fmt.Fprintf(w, "  %-20s %-8s %s %s\n", p.Name, mode, p.Script, p.Desc)
	}
}

func keyPath(l command.Listing) string {
	return command.Match{Section: l.Section, Name: l.Name}.KeyPath()
}

// NewDoctorCmd runs environment checks.
func NewDoctorCmd(cfgPath, filePath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check task file, shell and interpreters",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			logger, err := logging.Configure(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			results := doctor.Run(cfg, TaskFilePath(cfg, *filePath), NewResolver(cfg, logger))
			exitCode := 0
			for _, r := range results {
				status := "ok"
				if !r.Pass {
					status = "fail"
					exitCode = 1
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s %-4s %s\n", r.Name, status, r.Detail)
			}
			if exitCode != 0 {
				return fmt.Errorf("doctor found issues")
			}
			return nil
		},
	}
}

// NewTailLogCmd prints the end of a silent plugin's log, or of the atomic log
// when no plugin is named.
func NewTailLogCmd(cfgPath, filePath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tail-log [plugin]",
		Short: "Show last log lines",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, _ := cmd.Flags().GetInt("lines")
			if len(args) == 0 {
				cfg, err := config.Load(*cfgPath)
				if err != nil {
					return err
				}
				return tailFile(cmd.OutOrStdout(), cfg.Paths.LogPath, n)
			}
			s, err := Open(*cfgPath, *filePath, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return tailFile(s.Stdout, s.PluginRunner().LogPath(args[0]), n)
		},
	}
	cmd.Flags().IntP("lines", "n", 50, "number of lines")
	return cmd
}

func tailFile(w io.Writer, path string, n int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			fmt.Fprintln(w, l)
		}
	}
	return nil
}
