// Package jsonata provides the public API for formatting JSONata expressions.
//
// The package functions are stateless and safe for concurrent use. A
// Formatter adds a parse cache and logging for long-running callers such as
// the HTTP server and the watch command.
package jsonata

import (
	"context"

	"github.com/sambeau/jsonatafmt/pkg/jsonata/ast"
	"github.com/sambeau/jsonatafmt/pkg/jsonata/format"
	"github.com/sambeau/jsonatafmt/pkg/jsonata/parser"
)

// Option adjusts the layout options of a single call.
type Option func(*format.Options)

// WithPrintWidth sets the target line width.
func WithPrintWidth(n int) Option {
	return func(o *format.Options) { o.PrintWidth = n }
}

// WithTabWidth sets the number of columns per indentation level.
func WithTabWidth(n int) Option {
	return func(o *format.Options) { o.TabWidth = n }
}

// WithUseTabs selects tab indentation.
func WithUseTabs(b bool) Option {
	return func(o *format.Options) { o.UseTabs = b }
}

// WithOptions replaces all layout options at once.
func WithOptions(opts format.Options) Option {
	return func(o *format.Options) { *o = opts }
}

func buildOptions(base format.Options, opts []Option) format.Options {
	for _, opt := range opts {
		opt(&base)
	}
	return base
}

// Parse parses src into a program. The error is an *errors.SyntaxError.
func Parse(src string) (*ast.Program, error) {
	return parser.Parse(src)
}

// FormatSource parses and formats src.
func FormatSource(src string, opts ...Option) (string, error) {
	prog, err := parser.Parse(src)
	if err != nil {
		return "", err
	}
	return format.Print(prog, buildOptions(format.DefaultOptions(), opts))
}

// FormatTree formats an already parsed tree. Pass the *ast.Program to keep
// its comments.
func FormatTree(tree ast.Node, opts ...Option) (string, error) {
	return format.Print(tree, buildOptions(format.DefaultOptions(), opts))
}

// Result is delivered by the asynchronous variants.
type Result struct {
	Formatted string
	Err       error
}

// FormatSourceAsync formats src in the background. The channel receives
// exactly one Result and is then closed; if ctx is done first the Result
// carries ctx.Err().
func FormatSourceAsync(ctx context.Context, src string, opts ...Option) <-chan Result {
	return runAsync(ctx, func() (string, error) {
		return FormatSource(src, opts...)
	})
}

// FormatTreeAsync formats tree in the background, like FormatSourceAsync.
func FormatTreeAsync(ctx context.Context, tree ast.Node, opts ...Option) <-chan Result {
	return runAsync(ctx, func() (string, error) {
		return FormatTree(tree, opts...)
	})
}

func runAsync(ctx context.Context, fn func() (string, error)) <-chan Result {
	out := make(chan Result, 1)
	if err := ctx.Err(); err != nil {
		out <- Result{Err: err}
		close(out)
		return out
	}

	done := make(chan Result, 1)
	go func() {
		s, err := fn()
		done <- Result{Formatted: s, Err: err}
	}()
	go func() {
		defer close(out)
		select {
		case r := <-done:
			out <- r
		case <-ctx.Done():
			out <- Result{Err: ctx.Err()}
		}
	}()
	return out
}
