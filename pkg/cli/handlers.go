package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/itchyny/gojq"

	"launcher/pkg/action"
	"launcher/pkg/common"
	"launcher/pkg/config"
	"launcher/pkg/environ"
	"launcher/pkg/executor"
	"launcher/pkg/manifest"
	"launcher/pkg/report"
	"launcher/pkg/runfiles"
)

// Session carries what the handlers of one invocation share.
type Session struct {
	Env    environ.Snapshot
	Config config.ReadOnly
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// RegisterHandlers binds every command of DefaultDSL to s.
func RegisterHandlers(e *Engine, s *Session) {
	e.Register("emacs", HandlerFunc(s.runEmacs))
	e.Register("binary", HandlerFunc(s.runBinary))
	e.Register("test", HandlerFunc(s.runTest))
	e.Register("inspect", HandlerFunc(s.runInspect))
	e.Register("version", HandlerFunc(s.runVersion))
}

func (s *Session) runVersion(ctx context.Context, inv *Invocation) (*common.ExecutionResult, error) {
	fmt.Fprintln(s.Stdout, config.GetBuildInfo())
	return &common.ExecutionResult{ExitCode: 0}, nil
}

func (s *Session) runEmacs(ctx context.Context, inv *Invocation) (*common.ExecutionResult, error) {
	install := inv.Flag("install")
	if install == "" {
		return nil, common.Preconditionf("emacs: --install is required")
	}
	ex, _, err := s.executor(inv)
	if err != nil {
		return nil, err
	}
	return result(ex.RunEmacs(install))
}

func (s *Session) runBinary(ctx context.Context, inv *Invocation) (*common.ExecutionResult, error) {
	ex, a, err := s.prepare(inv, action.KindBinary)
	if err != nil {
		return nil, err
	}
	return result(ex.RunBinary(a))
}

func (s *Session) runTest(ctx context.Context, inv *Invocation) (*common.ExecutionResult, error) {
	ex, a, err := s.prepare(inv, action.KindTest)
	if err != nil {
		return nil, err
	}
	return result(ex.RunTest(a))
}

func (s *Session) prepare(inv *Invocation, kind action.Kind) (*executor.Executor, *action.Action, error) {
	file := inv.Flag("action")
	if file == "" {
		return nil, nil, common.Preconditionf("%s: --action is required", kind)
	}
	ex, src, err := s.executor(inv)
	if err != nil {
		return nil, nil, err
	}
	// Descriptors shipped as runfiles are looked up there when the path
	// doesn't name a file.
	if _, statErr := os.Stat(file); statErr != nil {
		if p, err := runfiles.NewAdapter(src).Resolve(file); err == nil {
			file = p
		}
	}
	a, err := action.Load(file)
	if err != nil {
		return nil, nil, err
	}
	if a.Kind != kind {
		return nil, nil, common.Preconditionf("%s declares %s(...), expected %s(...)", file, a.Kind, kind)
	}
	return ex, a, nil
}

func (s *Session) executor(inv *Invocation) (*executor.Executor, runfiles.Source, error) {
	if len(inv.Rest) == 0 {
		return nil, nil, common.Preconditionf("missing original command line after --")
	}
	src, err := runfiles.New(s.Env, inv.Rest[0])
	if err != nil {
		return nil, nil, fmt.Errorf("locating runfiles: %w", err)
	}
	ex := executor.New(inv.Rest, s.Env, src, s.Config, executor.WithStdio(s.Stdin, s.Stdout, s.Stderr))
	return ex, src, nil
}

func result(code int, err error) (*common.ExecutionResult, error) {
	if err != nil {
		return nil, err
	}
	return &common.ExecutionResult{ExitCode: code}, nil
}

func (s *Session) runInspect(ctx context.Context, inv *Invocation) (*common.ExecutionResult, error) {
	file := inv.Args["file"]
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, &common.OSError{Op: "read", Path: file, Err: err}
	}
	kind := inv.Flag("kind")
	if kind == "" {
		if kind, err = detectKind(b); err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
	}

	var doc any
	var summary string
	switch kind {
	case "manifest":
		m, err := manifest.Parse(b)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		doc = m
		summary = fmt.Sprintf("%d load path entries, %d inputs, %d outputs", len(m.LoadPath), len(m.InputFiles), len(m.OutputFiles))
	case "report":
		r, err := report.Parse(b)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		doc = r
		sum := r.Summarize()
		summary = fmt.Sprintf("%d tests, %d failures, %d errors", sum.Total, sum.Failures, sum.Errors)
	default:
		return nil, common.Preconditionf("unknown document kind %q", kind)
	}

	value, err := toJQValue(doc)
	if err != nil {
		return nil, err
	}
	if q := inv.Flag("query"); q != "" {
		if err := runQuery(ctx, s.Stdout, q, value); err != nil {
			return nil, err
		}
		return &common.ExecutionResult{ExitCode: 0}, nil
	}

	out, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return nil, err
	}
	t := NewTheme(s.Stdout)
	fmt.Fprintf(s.Stdout, "%s\n", out)
	fmt.Fprintf(s.Stdout, "%s %s %s\n", t.Styled(t.Bold, kind+":"), t.Arrow, summary)
	fmt.Fprintf(s.Stdout, "%s %s\n", t.Styled(t.Bold, "blake3:"), t.Styled(t.Dim, manifest.Digest(b)))
	return &common.ExecutionResult{ExitCode: 0}, nil
}

// detectKind tells manifests from test reports by their required fields.
func detectKind(b []byte) (string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return "", common.Malformedf("not a JSON object: %v", err)
	}
	if _, ok := fields["inputFiles"]; ok {
		return "manifest", nil
	}
	if _, ok := fields["tests"]; ok {
		return "report", nil
	}
	return "", common.Malformedf("neither a manifest nor a test report")
}

// toJQValue converts doc into the plain maps and slices gojq operates on.
func toJQValue(doc any) (any, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return normalizeNumbers(v), nil
}

// normalizeNumbers turns json.Number into int or float64, the numeric
// types gojq accepts.
func normalizeNumbers(v any) any {
	switch v := v.(type) {
	case map[string]any:
		for k, x := range v {
			v[k] = normalizeNumbers(x)
		}
		return v
	case []any:
		for i, x := range v {
			v[i] = normalizeNumbers(x)
		}
		return v
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i)
		}
		f, _ := v.Float64()
		return f
	}
	return v
}

func runQuery(ctx context.Context, w io.Writer, src string, value any) error {
	q, err := gojq.Parse(src)
	if err != nil {
		return fmt.Errorf("invalid query %q: %w", src, err)
	}
	iter := q.RunWithContext(ctx, value)
	for {
		v, ok := iter.Next()
		if !ok {
			return nil
		}
		if err, ok := v.(error); ok {
			return fmt.Errorf("query %q: %w", src, err)
		}
		out, err := json.Marshal(v)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\n", out)
	}
}
