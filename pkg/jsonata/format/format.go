package format

import (
	"errors"
	"fmt"

	"github.com/sambeau/jsonatafmt/pkg/jsonata/ast"
	"github.com/sambeau/jsonatafmt/pkg/jsonata/doc"
)

// ErrUnknownNode is returned when the tree contains a node the printer has
// no rule for, which means it was built by an incompatible parser.
var ErrUnknownNode = errors.New("unknown node type")

// ErrNonFiniteNumber is returned for a NaN or infinite number in the tree.
// JSONata has no literal for these, and printing Infinity would read back
// as a field name.
var ErrNonFiniteNumber = errors.New("number is not finite")

// Options control the layout of formatted output.
type Options struct {
	PrintWidth int  `json:"printWidth" yaml:"print_width"`
	TabWidth   int  `json:"tabWidth" yaml:"tab_width"`
	UseTabs    bool `json:"useTabs" yaml:"use_tabs"`
}

// DefaultOptions returns the default layout.
func DefaultOptions() Options {
	return Options{
		PrintWidth: DefaultPrintWidth,
		TabWidth:   DefaultTabWidth,
		UseTabs:    DefaultUseTabs,
	}
}

// normalized replaces non-positive widths with the defaults.
func (o Options) normalized() Options {
	if o.PrintWidth <= 0 {
		o.PrintWidth = DefaultPrintWidth
	}
	if o.TabWidth <= 0 {
		o.TabWidth = DefaultTabWidth
	}
	return o
}

// Print formats node. A *ast.Program root also restores its comments.
// Each call uses its own printer state, so concurrent calls are safe.
func Print(node ast.Node, opts Options) (string, error) {
	d, err := Document(node)
	if err != nil {
		return "", err
	}
	opts = opts.normalized()
	return doc.Print(d, doc.Options{
		PrintWidth: opts.PrintWidth,
		TabWidth:   opts.TabWidth,
		UseTabs:    opts.UseTabs,
	}), nil
}

// Document converts node into a layout document without laying it out.
func Document(node ast.Node) (doc.Doc, error) {
	if ast.IsNil(node) {
		return nil, fmt.Errorf("%w: <nil>", ErrUnknownNode)
	}
	p := newPrinter()
	d := p.print(node)
	if p.err != nil {
		return nil, p.err
	}
	return d, nil
}
