package script

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

var (
	ErrUnsupportedExtension = errors.New("unsupported script extension")
	ErrScriptNotFound       = errors.New("no supported script found")
)

// ExtensionError reports a script whose extension has no engine on this
// platform.
type ExtensionError struct {
	Ref string
	Ext string
}

func (e *ExtensionError) Error() string {
	return fmt.Sprintf("%s: %v .%s", e.Ref, ErrUnsupportedExtension, e.Ext)
}

func (e *ExtensionError) Unwrap() error { return ErrUnsupportedExtension }

// NotFoundError reports an extensionless reference for which no candidate
// file exists.
type NotFoundError struct {
	Ref   string
	Tried []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%v for %q (tried .%s)", ErrScriptNotFound, e.Ref, strings.Join(e.Tried, ", ."))
}

func (e *NotFoundError) Unwrap() error { return ErrScriptNotFound }

// Command is a resolved invocation.
type Command struct {
	Program string
	Args    []string
	Path    string
	Ext     string
}

// Argv returns the program followed by its arguments.
func (c Command) Argv() []string {
	return append([]string{c.Program}, c.Args...)
}

func (c Command) String() string {
	return strings.Join(c.Argv(), " ")
}

type Resolution struct {
	Command Command
	// Ambiguous lists every candidate file found when more than one existed.
	Ambiguous []string
}

type Resolver struct {
	Engines Engines
	OS      string
	Fs      afero.Fs
	Logger  *logrus.Logger
}

func NewResolver(engines Engines, logger *logrus.Logger) *Resolver {
	return &Resolver{
		Engines: engines,
		OS:      runtime.GOOS,
		Fs:      afero.NewOsFs(),
		Logger:  logger,
	}
}

// Resolve turns ref into a command. A reference with an extension is mapped
// directly without touching the filesystem. Otherwise each candidate
// extension is tried on disk, preferred first, and the first existing file
// wins.
func (r *Resolver) Resolve(ref, preferred string) (Resolution, error) {
	if ext := Ext(ref); ext != "" {
		cmd, err := r.build(ref, ext)
		return Resolution{Command: cmd}, err
	}

	candidates := r.candidates(preferred)
	var found, exts []string
	for _, ext := range candidates {
		path := ref + "." + ext
		ok, err := r.isFile(path)
		if err != nil {
			return Resolution{}, fmt.Errorf("check %s: %w", path, err)
		}
		if ok {
			found = append(found, path)
			exts = append(exts, ext)
		}
	}
	if len(found) == 0 {
		return Resolution{}, &NotFoundError{Ref: ref, Tried: candidates}
	}

	res := Resolution{}
	if len(found) > 1 {
		r.logger().Warnf("multiple scripts found for %s: [%s]; using %s", ref, strings.Join(exts, ", "), found[0])
		res.Ambiguous = found
	}
	cmd, err := r.build(found[0], exts[0])
	res.Command = cmd
	return res, err
}

func (r *Resolver) build(path, ext string) (Command, error) {
	eng, ok := r.Engines.Lookup(ext, r.goos())
	if !ok {
		return Command{}, &ExtensionError{Ref: path, Ext: normalizeExt(ext)}
	}
	if eng.Direct {
		return Command{Program: path, Path: path, Ext: eng.Ext}, nil
	}
	args := append(slices.Clone(eng.Args), path)
	return Command{Program: eng.Program, Args: args, Path: path, Ext: eng.Ext}, nil
}

func (r *Resolver) candidates(preferred string) []string {
	all := r.Engines.Extensions(r.goos())
	pref := normalizeExt(preferred)
	if pref == "" {
		return all
	}
	if !slices.Contains(all, pref) {
		r.logger().Warnf("preferred extension %q is not available on %s; ignoring", preferred, r.goos())
		return all
	}
	out := []string{pref}
	for _, ext := range all {
		if ext != pref {
			out = append(out, ext)
		}
	}
	return out
}

func (r *Resolver) isFile(path string) (bool, error) {
	fsys := r.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	info, err := fsys.Stat(path)
	if err != nil {
		// a regular file used as a directory fails with ENOTDIR
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

func (r *Resolver) goos() string {
	if r.OS == "" {
		return runtime.GOOS
	}
	return r.OS
}

func (r *Resolver) logger() *logrus.Logger {
	if r.Logger == nil {
		return logrus.StandardLogger()
	}
	return r.Logger
}

// Ext returns the extension of ref without the dot. Dotfiles such as .envrc
// have none.
func Ext(ref string) string {
	base := filepath.Base(ref)
	ext := filepath.Ext(base)
	if ext == base {
		return ""
	}
	return strings.TrimPrefix(ext, ".")
}
