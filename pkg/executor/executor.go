// Package executor runs one interpreter action: it resolves runfiles,
// assembles the command line, writes the manifest for sandboxed actions,
// spawns the child and, for tests, converts the test report.
package executor

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"

	"launcher/pkg/action"
	"launcher/pkg/argfiles"
	"launcher/pkg/common"
	"launcher/pkg/config"
	"launcher/pkg/environ"
	"launcher/pkg/loadpath"
	"launcher/pkg/manifest"
	"launcher/pkg/pathutil"
	"launcher/pkg/process"
	"launcher/pkg/report"
	"launcher/pkg/runfiles"
	"launcher/pkg/tempfile"
)

// Executor is bound to one launcher invocation.
type Executor struct {
	origArgs []string
	env      environ.Snapshot
	runfiles *runfiles.Adapter
	random   *tempfile.Random
	cfg      config.ReadOnly

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// Option configures an Executor.
type Option func(*Executor)

// WithRandom sets the temporary file name generator.
func WithRandom(r *tempfile.Random) Option {
	return func(e *Executor) { e.random = r }
}

// WithStdio replaces the standard streams passed to the child.
func WithStdio(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(e *Executor) {
		e.stdin, e.stdout, e.stderr = stdin, stdout, stderr
	}
}

// New returns an executor for the original argument vector origArgs and the
// environment snapshot env. It never consults the process environment.
func New(origArgs []string, env environ.Snapshot, src runfiles.Source, cfg config.ReadOnly, opts ...Option) *Executor {
	e := &Executor{
		origArgs: append([]string(nil), origArgs...),
		env:      env,
		runfiles: runfiles.NewAdapter(src),
		cfg:      cfg,
		stdin:    os.Stdin,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.random == nil {
		e.random = tempfile.NewRandom()
	}
	return e
}

// RunEmacs runs the interpreter from an installation directory, which must
// contain bin/emacs and exactly one versioned share/emacs/<version>
// directory.
func (e *Executor) RunEmacs(install string) (int, error) {
	dir, err := e.runfiles.Resolve(install)
	if err != nil {
		return 0, err
	}
	emacs := pathutil.Join(dir, "bin", "emacs")
	shared, err := pathutil.FindUniqueDir(pathutil.Join(dir, "share", "emacs"), `[0-9][.0-9]*`)
	if err != nil {
		return 0, err
	}
	etc := pathutil.Join(shared, "etc")
	env := map[string]string{
		"EMACSDATA":     etc,
		"EMACSDOC":      etc,
		"EMACSLOADPATH": pathutil.Join(shared, "lisp"),
		"EMACSPATH":     pathutil.Join(dir, "libexec"),
	}
	slog.Info("launching interpreter", "binary", emacs, "shared", shared)
	return e.run(emacs, nil, env)
}

// RunBinary runs a scripted binary.
func (e *Executor) RunBinary(a *action.Action) (code int, err error) {
	if err := checkAction(a); err != nil {
		return 0, err
	}
	wrapper, err := e.runfiles.Resolve(a.Wrapper)
	if err != nil {
		return 0, err
	}

	var args []string
	mf, args, err := e.addManifest(a.Mode, args)
	if err != nil {
		return 0, err
	}
	defer closeOnError(mf, &err)

	args = append(args, "--quick", "--batch")
	if args, err = e.addLoadPath(args, a.LoadPath); err != nil {
		return 0, err
	}
	for _, file := range a.LoadFiles {
		abs, err := e.runfiles.Resolve(file)
		if err != nil {
			return 0, err
		}
		args = append(args, "--load="+abs)
	}

	if mf != nil {
		root := e.runfiles.Root()
		inputs, err := argfiles.Extract(e.origArgs, root, a.InputArgs)
		if err != nil {
			return 0, err
		}
		outputs, err := argfiles.Extract(e.origArgs, root, a.OutputArgs)
		if err != nil {
			return 0, err
		}
		if err := e.writeManifest(mf, a, inputs, outputs); err != nil {
			return 0, err
		}
	}

	slog.Info("launching binary", "wrapper", wrapper, "mode", a.Mode)
	code, err = e.run(wrapper, args, nil)
	if err != nil {
		return 0, err
	}
	if err := mf.Close(); err != nil {
		return 0, err
	}
	return code, nil
}

// RunTest runs the tests in a.LoadFiles through the interpreter's test
// runner. When XML_OUTPUT_FILE is set, the runner's JSON report is
// converted into an XML report at that location.
func (e *Executor) RunTest(a *action.Action) (code int, err error) {
	if err := checkAction(a); err != nil {
		return 0, err
	}
	wrapper, err := e.runfiles.Resolve(a.Wrapper)
	if err != nil {
		return 0, err
	}

	var args []string
	mf, args, err := e.addManifest(a.Mode, args)
	if err != nil {
		return 0, err
	}
	defer closeOnError(mf, &err)

	args = append(args, "--quick", "--batch")
	if args, err = e.addLoadPath(args, a.LoadPath); err != nil {
		return 0, err
	}
	runner, err := e.runfiles.Resolve(e.cfg.GetRunnerRunfile())
	if err != nil {
		return 0, fmt.Errorf("test runner: %w", err)
	}
	args = append(args, "--load="+runner)
	for _, src := range a.LoadFiles {
		abs, err := e.runfiles.Resolve(src)
		if err != nil {
			return 0, err
		}
		args = append(args, "--test-source="+pathutil.Literal(abs))
	}
	for _, name := range a.SkipTests {
		args = append(args, "--skip-test="+name)
	}
	for _, tag := range a.SkipTags {
		args = append(args, "--skip-tag="+tag)
	}

	xmlOutput := e.env.Get("XML_OUTPUT_FILE")
	var rf *tempfile.File
	if xmlOutput != "" {
		dir := e.env.Get("TEST_TMPDIR")
		if dir == "" {
			dir = e.cfg.GetTempDir()
		}
		if rf, err = tempfile.Create(dir, "test-report-*.json", e.random); err != nil {
			return 0, err
		}
		defer closeOnError(rf, &err)
		args = append(args, "--report="+pathutil.Literal(rf.Path()))
	}
	args = append(args, "--funcall="+e.cfg.GetRunnerFunction())

	if mf != nil {
		var outputs []string
		if rf != nil {
			outputs = append(outputs, rf.Path())
		}
		if e.env.Get("COVERAGE") == "1" {
			if dir := e.env.Get("COVERAGE_DIR"); dir != "" {
				outputs = append(outputs, pathutil.Join(dir, "emacs-lisp.dat"))
			}
		}
		if err := e.writeManifest(mf, a, nil, outputs); err != nil {
			return 0, err
		}
	}

	slog.Info("launching test", "wrapper", wrapper, "mode", a.Mode, "sources", len(a.LoadFiles))
	code, err = e.run(wrapper, args, nil)
	if err != nil {
		return 0, err
	}
	if rf != nil {
		err := e.convertReport(rf, xmlOutput, code)
		err = errors.Join(err, rf.Close())
		if err != nil {
			return 0, err
		}
	}
	if err := mf.Close(); err != nil {
		return 0, err
	}
	return code, nil
}

func (e *Executor) addManifest(mode common.Mode, args []string) (*tempfile.File, []string, error) {
	switch mode {
	case common.ModeDirect:
		return nil, args, nil
	case common.ModeWrap:
		f, err := tempfile.Create(e.cfg.GetTempDir(), "manifest-*.json", e.random)
		if err != nil {
			return nil, nil, err
		}
		return f, append(args, "--manifest="+f.Path(), "--"), nil
	default:
		return nil, nil, common.Invariantf("unknown mode %q", mode)
	}
}

func (e *Executor) addLoadPath(args []string, entries []string) ([]string, error) {
	asm := loadpath.New(e.runfiles, loadpath.Handler{
		Shim:     e.cfg.GetHandlerRunfile(),
		Function: e.cfg.GetHandlerFunction(),
	})
	dirs, err := asm.Args(entries)
	if err != nil {
		return nil, err
	}
	return append(args, dirs...), nil
}

func (e *Executor) writeManifest(f *tempfile.File, a *action.Action, inputs, outputs []string) error {
	b, err := manifest.Write(f, manifest.Declaration{
		LoadPath:    a.LoadPath,
		LoadFiles:   a.LoadFiles,
		DataFiles:   a.DataFiles,
		Tags:        a.Tags,
		ExtraInputs: inputs,
		Outputs:     outputs,
	})
	if err != nil {
		return err
	}
	slog.Debug("wrote manifest", "path", f.Path(), "size", humanize.Bytes(uint64(len(b))), "blake3", manifest.Digest(b))
	return nil
}

func (e *Executor) convertReport(rf *tempfile.File, xmlOutput string, code int) error {
	data, err := rf.ReadAll()
	if err != nil {
		return err
	}
	slog.Debug("converting test report", "report", rf.Path(), "size", humanize.Bytes(pathutil.FileSize(rf.Path())))
	if len(data) == 0 && code != 0 {
		slog.Warn("test runner wrote no report", "exit", code, "report", rf.Path())
		return nil
	}
	if err := report.ConvertFile(data, e.env.Get("TEST_TARGET"), xmlOutput); err != nil {
		return fmt.Errorf("converting test report: %w", err)
	}
	return nil
}

func (e *Executor) run(binary string, args []string, env map[string]string) (int, error) {
	p := process.Create(e.origArgs, e.env)
	p.SetCommand(binary, args...)
	p.SetRunfilesEnv(e.runfiles.Env())
	for k, v := range env {
		p.SetEnv(k, v)
	}
	p.Stdin, p.Stdout, p.Stderr = e.stdin, e.stdout, e.stderr
	code, err := p.Spawn()
	if err != nil {
		return 0, err
	}
	slog.Debug("child exited", "binary", binary, "exit", code)
	return code, nil
}

// checkAction rejects malformed declarations before anything is created on disk.
func checkAction(a *action.Action) error {
	if a == nil {
		return common.Invariantf("nil action")
	}
	if a.Wrapper == "" {
		return common.Invariantf("empty wrapper")
	}
	_, err := manifest.Build(manifest.Declaration{
		LoadPath:  a.LoadPath,
		LoadFiles: a.LoadFiles,
		DataFiles: a.DataFiles,
	})
	return err
}

// closeOnError closes f when the surrounding function fails, folding the
// close error into *err.
func closeOnError(f *tempfile.File, err *error) {
	if *err != nil {
		*err = errors.Join(*err, f.Close())
	}
}
