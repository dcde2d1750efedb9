// Package process builds the child command line and environment and runs
// exactly one child to completion.
package process

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"mvdan.cc/sh/v3/syntax"

	"launcher/pkg/common"
	"launcher/pkg/environ"
)

// Process is a pending child invocation.
// Mutable
type Process struct {
	executable  string
	origArgs    []string
	args        []string
	origEnv     environ.Snapshot
	runfilesEnv map[string]string
	envs        map[string]string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Create prepares a child that inherits origArgs[1:] and the original
// environment, with the launcher's standard streams.
func Create(origArgs []string, origEnv environ.Snapshot) *Process {
	return &Process{
		origArgs: origArgs,
		origEnv:  origEnv,
		envs:     make(map[string]string),
		Stdin:    os.Stdin,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
	}
}

// SetCommand sets the binary and the arguments placed between argv[0] and
// the original trailing arguments.
func (p *Process) SetCommand(executable string, args ...string) {
	p.executable = executable
	p.args = args
}

// SetRunfilesEnv sets the lowest-precedence environment layer.
func (p *Process) SetRunfilesEnv(env map[string]string) {
	p.runfilesEnv = maps.Clone(env)
}

// SetEnv adds an override above the runfiles layer. The original
// environment still wins.
func (p *Process) SetEnv(name, value string) {
	p.envs[name] = value
}

// Argv returns argv[0] of the original command line, the computed
// arguments, then the original arguments after argv[0].
func (p *Process) Argv() []string {
	argv := make([]string, 0, len(p.origArgs)+len(p.args))
	if len(p.origArgs) > 0 {
		argv = append(argv, p.origArgs[0])
	}
	argv = append(argv, p.args...)
	if len(p.origArgs) > 1 {
		argv = append(argv, p.origArgs[1:]...)
	}
	return argv
}

// EnvSlice returns the merged environment sorted by key.
func (p *Process) EnvSlice() []string {
	return environ.Flatten(environ.Merge(p.runfilesEnv, p.envs, p.origEnv.Map()))
}

// Cmd returns an *exec.Cmd for the child. It rejects argument vectors and
// environments that can't be passed to execve.
func (p *Process) Cmd() (*exec.Cmd, error) {
	if p.executable == "" {
		return nil, common.Invariantf("empty executable")
	}
	if len(p.origArgs) == 0 {
		return nil, common.Invariantf("empty original argument vector")
	}
	argv := p.Argv()
	env := p.EnvSlice()
	if err := checkStrings("argument", argv); err != nil {
		return nil, err
	}
	if err := checkStrings("environment entry", env); err != nil {
		return nil, err
	}
	for _, e := range env {
		if strings.HasPrefix(e, "=") {
			return nil, common.Invariantf("environment entry %q has an empty name", e)
		}
	}
	cmd := &exec.Cmd{
		Path:   p.executable,
		Args:   argv,
		Env:    env,
		Stdin:  p.Stdin,
		Stdout: p.Stdout,
		Stderr: p.Stderr,
	}
	return cmd, nil
}

// Spawn runs the child and waits for it. A normal exit yields the child's
// exit code and a signal yields common.ExitSignaled.
func (p *Process) Spawn() (int, error) {
	cmd, err := p.Cmd()
	if err != nil {
		return 0, err
	}
	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		slog.Debug("running child", "binary", p.executable, "cmdline", quote(cmd.Args), "env", len(cmd.Env))
	}
	err = cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			slog.Debug("child terminated by signal", "signal", ws.Signal())
			return common.ExitSignaled, nil
		}
		return exitErr.ExitCode(), nil
	}
	op := "wait"
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		op = pathErr.Op
		err = pathErr.Err
	}
	return 0, &common.OSError{Op: op, Path: p.executable, Err: err}
}

func checkStrings(kind string, list []string) error {
	for _, s := range list {
		if s == "" {
			return common.Invariantf("empty %s", kind)
		}
		if strings.ContainsRune(s, 0) {
			return common.Invariantf("%s %q contains a NUL byte", kind, s)
		}
	}
	return nil
}

// quote renders argv as a shell command line for logs.
func quote(argv []string) string {
	parts := make([]string, 0, len(argv))
	for _, a := range argv {
		q, err := syntax.Quote(a, syntax.LangBash)
		if err != nil {
			q = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
		}
		parts = append(parts, q)
	}
	return strings.Join(parts, " ")
}
