package format

import (
	"fmt"
	"math"

	"github.com/sambeau/jsonatafmt/pkg/jsonata/ast"
	"github.com/sambeau/jsonatafmt/pkg/jsonata/doc"
)

// printer holds the state of one Print call: the comments still to be
// placed, the position of the last node visited, and the ancestors of the
// node being printed.
type printer struct {
	comments []ast.Comment
	cursor   int
	parents  []ast.Node
	err      error // first node that cannot be printed
}

func newPrinter() *printer {
	return &printer{cursor: ast.NoPos}
}

// fail records the first error; printing continues so the caller sees the
// earliest problem in source order.
func (p *printer) fail(n ast.Node) doc.Doc {
	if ast.IsNil(n) {
		return p.failWith(fmt.Errorf("%w: <nil>", ErrUnknownNode))
	}
	return p.failWith(fmt.Errorf("%w: %s", ErrUnknownNode, n.Type()))
}

func (p *printer) failWith(err error) doc.Doc {
	if p.err == nil {
		p.err = err
	}
	return doc.Empty
}

// number renders a numeric literal, rejecting values JSONata cannot spell.
func (p *printer) number(f float64) doc.Doc {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return p.failWith(fmt.Errorf("%w: %s", ErrNonFiniteNumber, ast.FormatNumber(f)))
	}
	return doc.Text(ast.FormatNumber(f))
}

// parent returns the parent of the node being printed, or nil at the root.
func (p *printer) parent() ast.Node {
	if len(p.parents) < 2 {
		return nil
	}
	return p.parents[len(p.parents)-2]
}

// anchor returns the source position comments are attached against.
func (p *printer) anchor(n ast.Node) int {
	if path, ok := n.(*ast.PathNode); ok {
		if len(path.Steps) > 0 && !ast.IsNil(path.Steps[0]) && path.Steps[0].Pos() != ast.NoPos {
			return path.Steps[0].Pos()
		}
		return p.cursor
	}
	if pos := n.Pos(); pos != ast.NoPos {
		return pos
	}
	return p.cursor
}

// print renders n preceded by the comments that appear in the source between
// the previously visited node and n.
func (p *printer) print(n ast.Node) doc.Doc {
	if ast.IsNil(n) {
		return p.fail(n)
	}
	if prog, ok := n.(*ast.Program); ok {
		p.cursor = ast.NoPos
		p.comments = prog.Comments
	}

	pos := p.anchor(n)
	var leading []doc.Doc
	pending := p.comments[:0:0]
	for _, c := range p.comments {
		if c.Position > p.cursor && c.Position < pos {
			leading = append(leading, printComment(c))
		} else {
			pending = append(pending, c)
		}
	}
	// each comment is printed once, even when the cursor moves back
	if len(leading) > 0 {
		p.comments = pending
	}
	p.cursor = pos

	p.parents = append(p.parents, n)
	out := p.printNode(n)
	p.parents = p.parents[:len(p.parents)-1]

	if len(leading) > 0 {
		return doc.Group(doc.Concat(leading...), out)
	}
	return out
}

func printComment(c ast.Comment) doc.Doc {
	return doc.Group(doc.Text("/* "), doc.Text(c.Text), doc.Text(" */"), doc.HardLine)
}

// printNode dispatches on the node type.
func (p *printer) printNode(n ast.Node) doc.Doc {
	switch n := n.(type) {
	case *ast.Program:
		return p.print(n.Expr)
	case *ast.BinaryNode:
		return p.printBinary(n)
	case *ast.FunctionNode:
		return p.printFunction(n)
	case *ast.VariableNode:
		return doc.Group(doc.Text("$"+n.Value), p.suffix(&n.Decorations))
	case *ast.WildcardNode:
		return doc.Group(doc.Text(n.Value), p.suffix(&n.Decorations))
	case *ast.DescendantNode:
		return doc.Group(doc.Text(n.Value), p.suffix(&n.Decorations))
	case *ast.OperatorNode:
		return doc.Text(n.Value)
	case *ast.NumberNode:
		return doc.Group(p.number(n.Value), p.suffix(&n.Decorations))
	case *ast.StringNode:
		return doc.Group(doc.Text(ast.Quote(n.Value)), p.suffix(&n.Decorations))
	case *ast.NameNode:
		return doc.Group(doc.Text(escapeName(n.Value)), p.suffix(&n.Decorations))
	case *ast.FilterNode:
		return p.printFilter(n)
	case *ast.IndexStage:
		return doc.Text("#$" + n.Value)
	case *ast.BindNode:
		return doc.Group(p.print(n.LHS), doc.Text(" := "), p.print(n.RHS))
	case *ast.LambdaNode:
		return p.printLambda(n)
	case *ast.ConditionNode:
		return p.printCondition(n)
	case *ast.ValueNode:
		if f, ok := n.Value.(float64); ok {
			return doc.Group(p.number(f), p.suffix(&n.Decorations))
		}
		return doc.Group(doc.Text(valueText(n.Value)), p.suffix(&n.Decorations))
	case *ast.BlockNode:
		return p.printBlock(n)
	case *ast.PathNode:
		return p.printPath(n)
	case *ast.ApplyNode:
		return doc.Group(p.print(n.LHS), doc.Indent(doc.Line, doc.Text(n.Value), doc.Text(" "), p.print(n.RHS)))
	case *ast.SortNode:
		return p.printSort(n)
	case *ast.ObjectNode:
		return doc.Group(doc.Text("{"), p.printPairs(n.Pairs), doc.Text("}"), p.suffix(&n.Decorations))
	case *ast.ArrayNode:
		return p.printArray(n)
	case *ast.NegationNode:
		return doc.Group(doc.Text("-"), p.print(n.Expression))
	case *ast.ParentNode:
		return doc.Group(doc.Text("%"), p.suffix(&n.Decorations))
	case *ast.RegexNode:
		return doc.Group(doc.Text("/"+n.Pattern+"/"+regexFlags(n.Flags)), p.suffix(&n.Decorations))
	case *ast.TransformNode:
		return p.printTransform(n)
	}
	return p.fail(n)
}
