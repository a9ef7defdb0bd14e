// Package chart generates, runs and renders visualization code for query results.
//
// Generated code is Go source evaluated by an embedded interpreter. The interpreter
// loads no standard library symbols; the only importable package is askdb/chart,
// and the code sees exactly three bindings: results_df, df (the same Frame) and
// render.
package chart

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"regexp"
	"strings"
	"testing/fstest"

	"github.com/traefik/yaegi/interp"
)

// Sandbox stages reported in SandboxError
const (
	StageScan    = "scan"
	StageCompile = "compile"
	StageRuntime = "runtime"
	StageRender  = "render"
)

// SandboxError describes why chart code failed. Message is fed back to the model.
type SandboxError struct {
	Stage   string
	Message string
	Cause   error
}

func (e *SandboxError) Error() string {
	return e.Message
}

func (e *SandboxError) Unwrap() error {
	return e.Cause
}

type forbiddenPattern struct {
	re     *regexp.Regexp
	reason string
}

// Top level constructs cannot parse inside the Draw body, so they are matched on
// the source text before parsing.
var forbiddenPatterns = []forbiddenPattern{
	{regexp.MustCompile(`(?m)^\s*package\s`), "package clauses are not allowed"},
	{regexp.MustCompile(`\bimport\b`), "imports are not allowed"},
	{regexp.MustCompile(`(?m)^\s*func\s+(\([^)]*\)\s*)?[A-Za-z_]\w*\s*[\[(]`), "func declarations are not allowed"},
}

var stringLiteral = regexp.MustCompile("\"(?:[^\"\\\\\n]|\\\\.)*\"|`[^`]*`|'(?:[^'\\\\\n]|\\\\.)*'")

var forbiddenIdents = map[string]string{
	"unsafe":  "unsafe is not available",
	"syscall": "syscall is not available",
	"reflect": "reflect is not available",
}

var forbiddenPackages = map[string]string{
	"os":   "os is not available",
	"net":  "network access is not available",
	"http": "network access is not available",
	"exec": "exec is not available",
}

// Scan rejects code that reaches outside the chart API or could take down the
// process: goroutines escape the runtime recover and function literals allow
// unbounded recursion. String literal contents are ignored so titles may use
// any words. Code that does not parse is left for the compile stage to report.
func Scan(code string) error {
	bare := stringLiteral.ReplaceAllString(code, `""`)
	for _, p := range forbiddenPatterns {
		if p.re.MatchString(bare) {
			return rejected(p.reason)
		}
	}

	file, err := parser.ParseFile(token.NewFileSet(), "chart.go", Program(code), parser.SkipObjectResolution)
	if err != nil {
		return nil
	}
	var body *ast.BlockStmt
	for _, decl := range file.Decls {
		if fn, ok := decl.(*ast.FuncDecl); ok && fn.Name.Name == "Draw" {
			body = fn.Body
		}
	}
	if body == nil {
		return nil
	}

	var reason string
	ast.Inspect(body, func(n ast.Node) bool {
		if reason != "" {
			return false
		}
		switch x := n.(type) {
		case *ast.GoStmt:
			reason = "goroutines are not allowed"
		case *ast.FuncLit:
			reason = "function literals are not allowed"
		case *ast.SelectorExpr:
			if id, ok := x.X.(*ast.Ident); ok {
				if r, ok := forbiddenPackages[id.Name]; ok {
					reason = r
				}
			}
		case *ast.Ident:
			if r, ok := forbiddenIdents[x.Name]; ok {
				reason = r
			}
		}
		return reason == ""
	})
	if reason != "" {
		return rejected(reason)
	}
	return nil
}

func rejected(reason string) error {
	return &SandboxError{Stage: StageScan, Message: "code rejected: " + reason}
}

const programTemplate = `package main

import "askdb/chart"

var _ = chart.NewBar

func Draw(results_df *chart.Frame, df *chart.Frame, render func(*chart.Figure)) {
%s
}
`

// Program wraps statement code into the interpreted program
func Program(code string) string {
	return fmt.Sprintf(programTemplate, code)
}

type drawFunc = func(*Frame, *Frame, func(*Figure))

// Sandbox evaluates chart code
type Sandbox struct {
	// command, when set, runs Render in a child process
	command []string
}

// NewSandbox creates a Sandbox that evaluates code in the calling process
func NewSandbox() *Sandbox {
	return &Sandbox{}
}

// Run scans, compiles and executes code against frame in the calling process and
// returns the figure passed to the last render call. Every failure is a *SandboxError except cancellation,
// which returns the context error.
func (s *Sandbox) Run(ctx context.Context, code string, frame *Frame) (*Figure, error) {
	if strings.TrimSpace(code) == "" {
		return nil, &SandboxError{Stage: StageScan, Message: "no code found in response"}
	}
	if err := Scan(code); err != nil {
		return nil, err
	}

	i := interp.New(interp.Options{
		GoPath:               "/nonexistent",
		Stdout:               io.Discard,
		Stderr:               io.Discard,
		SourcecodeFilesystem: fstest.MapFS{},
	})
	if err := i.Use(Symbols); err != nil {
		return nil, fmt.Errorf("failed to load chart symbols: %w", err)
	}

	if _, err := i.EvalWithContext(ctx, Program(code)); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &SandboxError{Stage: StageCompile, Message: fmt.Sprintf("compile error: %v", err), Cause: err}
	}
	v, err := i.Eval("main.Draw")
	if err != nil {
		return nil, &SandboxError{Stage: StageCompile, Message: fmt.Sprintf("compile error: %v", err), Cause: err}
	}
	draw, ok := v.Interface().(drawFunc)
	if !ok {
		return nil, &SandboxError{Stage: StageCompile, Message: "compile error: unexpected entry point signature"}
	}

	type outcome struct {
		fig *Figure
		err error
	}
	done := make(chan outcome, 1)

	// An endless loop in generated code cannot be interrupted; cancellation
	// abandons the goroutine.
	go func() {
		var rendered *Figure
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: &SandboxError{Stage: StageRuntime, Message: fmt.Sprintf("runtime error: %v", r)}}
				return
			}
			done <- outcome{fig: rendered}
		}()
		draw(frame, frame, func(f *Figure) { rendered = f })
	}()

	select {
	case o := <-done:
		if o.err != nil {
			return nil, o.err
		}
		if o.fig == nil {
			return nil, &SandboxError{Stage: StageRuntime, Message: "render was never called with a figure; end the code with render(fig)"}
		}
		return o.fig, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Render runs code and renders the resulting figure to HTML. An isolated sandbox
// does both in a child process.
func (s *Sandbox) Render(ctx context.Context, code string, frame *Frame) (string, error) {
	if len(s.command) > 0 {
		return s.renderInChild(ctx, code, frame)
	}
	fig, err := s.Run(ctx, code, frame)
	if err != nil {
		return "", err
	}
	html, err := fig.HTML()
	if err != nil {
		return "", &SandboxError{Stage: StageRender, Message: fmt.Sprintf("render error: %v", err), Cause: err}
	}
	return html, nil
}
