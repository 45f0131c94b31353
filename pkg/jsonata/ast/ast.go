// Package ast defines the JSONata syntax tree.
//
// The tree has the shape jsonata-js produces after its AST processing pass:
// names are wrapped in paths, path predicates become stages, unary minus on
// a number literal is folded into the literal, and so on. Nodes are immutable
// once the parser hands them out; the formatter only reads them.
package ast

import "fmt"

// Kind is the jsonata type tag of a node.
type Kind string

const (
	KindProgram    Kind = "program"
	KindName       Kind = "name"
	KindNumber     Kind = "number"
	KindString     Kind = "string"
	KindValue      Kind = "value"
	KindVariable   Kind = "variable"
	KindRegex      Kind = "regex"
	KindParent     Kind = "parent"
	KindWildcard   Kind = "wildcard"
	KindDescendant Kind = "descendant"
	KindOperator   Kind = "operator"
	KindBinary     Kind = "binary"
	KindBind       Kind = "bind"
	KindApply      Kind = "apply"
	KindPath       Kind = "path"
	KindBlock      Kind = "block"
	KindFunction   Kind = "function"
	KindPartial    Kind = "partial"
	KindLambda     Kind = "lambda"
	KindCondition  Kind = "condition"
	KindFilter     Kind = "filter"
	KindIndex      Kind = "index"
	KindSort       Kind = "sort"
	KindUnary      Kind = "unary"
	KindTransform  Kind = "transform"
)

// NoPos marks a node without a source position. Parent references and
// synthesized paths have none.
const NoPos = -1

// Node is any node in the tree. The set of implementations is closed.
type Node interface {
	Type() Kind
	Pos() int
	// Decor returns the node's decorations, or nil for kinds that never
	// carry any (operators, conditions, filters).
	Decor() *Decorations
	node()
}

// Unary is implemented by the three nodes sharing the "unary" tag.
type Unary interface {
	Node
	Op() string
}

// Decorations are the optional suffixes a step can carry. They are
// independent of each other; any subset may be present.
type Decorations struct {
	Focus     string // @$focus
	Index     string // #$index
	Stages    []Node // filters and index stages following a path step
	Predicate []Node // filters on a non-path expression
	Group     *Group // {k: v} grouping
	KeepArray bool   // []
	Tuple     bool
}

// Decor returns d. Embedding Decorations gives a node its Decor method.
func (d *Decorations) Decor() *Decorations { return d }

// Group is the object constructor applied as a grouping suffix.
type Group struct {
	Pairs    []Pair
	Position int
}

// Pair is one key/value entry of an object constructor or group.
type Pair struct {
	Key   Node
	Value Node
}

// Comment is a block comment lifted out of the source.
type Comment struct {
	Position int    // byte offset of the opening "/*"
	Text     string // trimmed body
}

// Program is the root of a parsed expression. It carries the comments found
// in the source so the printer can re-attach them.
type Program struct {
	Expr     Node
	Comments []Comment
}

func (p *Program) Type() Kind          { return KindProgram }
func (p *Program) Pos() int            { return NoPos }
func (p *Program) Decor() *Decorations { return nil }
func (p *Program) node()               {}

// NameNode is a field reference.
type NameNode struct {
	Decorations
	Value    string
	Position int
}

func (n *NameNode) Type() Kind { return KindName }
func (n *NameNode) Pos() int   { return n.Position }
func (n *NameNode) node()      {}

// NumberNode is a numeric literal.
type NumberNode struct {
	Decorations
	Value    float64
	Position int
}

func (n *NumberNode) Type() Kind { return KindNumber }
func (n *NumberNode) Pos() int   { return n.Position }
func (n *NumberNode) node()      {}

// StringNode is a string literal.
type StringNode struct {
	Decorations
	Value    string
	Position int
}

func (n *StringNode) Type() Kind { return KindString }
func (n *StringNode) Pos() int   { return n.Position }
func (n *StringNode) node()      {}

// ValueNode is one of the literals true, false or null. Value holds a bool
// or nil.
type ValueNode struct {
	Decorations
	Value    any
	Position int
}

func (n *ValueNode) Type() Kind { return KindValue }
func (n *ValueNode) Pos() int   { return n.Position }
func (n *ValueNode) node()      {}

// VariableNode is a $variable reference. Value excludes the leading $.
type VariableNode struct {
	Decorations
	Value    string
	Position int
}

func (n *VariableNode) Type() Kind { return KindVariable }
func (n *VariableNode) Pos() int   { return n.Position }
func (n *VariableNode) node()      {}

// RegexNode is a /pattern/flags literal.
type RegexNode struct {
	Decorations
	Pattern  string
	Flags    string
	Position int
}

func (n *RegexNode) Type() Kind { return KindRegex }
func (n *RegexNode) Pos() int   { return n.Position }
func (n *RegexNode) node()      {}

// Slot identifies which ancestor a parent reference resolves to.
type Slot struct {
	Label string
	Level int
	Index int
}

// ParentNode is the % parent reference.
type ParentNode struct {
	Decorations
	Slot     *Slot
	Position int
}

func (n *ParentNode) Type() Kind { return KindParent }
func (n *ParentNode) Pos() int   { return n.Position }
func (n *ParentNode) node()      {}

// WildcardNode is the * field wildcard.
type WildcardNode struct {
	Decorations
	Value    string
	Position int
}

func (n *WildcardNode) Type() Kind { return KindWildcard }
func (n *WildcardNode) Pos() int   { return n.Position }
func (n *WildcardNode) node()      {}

// DescendantNode is the ** descendant wildcard.
type DescendantNode struct {
	Decorations
	Value    string
	Position int
}

func (n *DescendantNode) Type() Kind { return KindDescendant }
func (n *DescendantNode) Pos() int   { return n.Position }
func (n *DescendantNode) node()      {}

// OperatorNode is the ? placeholder of a partial application.
type OperatorNode struct {
	Value    string
	Position int
}

func (n *OperatorNode) Type() Kind          { return KindOperator }
func (n *OperatorNode) Pos() int            { return n.Position }
func (n *OperatorNode) Decor() *Decorations { return nil }
func (n *OperatorNode) node()               {}

// BinaryNode is an infix operator, including the .. range.
type BinaryNode struct {
	Value    string
	LHS      Node
	RHS      Node
	Position int
}

func (n *BinaryNode) Type() Kind          { return KindBinary }
func (n *BinaryNode) Pos() int            { return n.Position }
func (n *BinaryNode) Decor() *Decorations { return nil }
func (n *BinaryNode) node()               {}

// BindNode is a $var := value assignment.
type BindNode struct {
	LHS      Node
	RHS      Node
	Position int
}

func (n *BindNode) Type() Kind          { return KindBind }
func (n *BindNode) Pos() int            { return n.Position }
func (n *BindNode) Decor() *Decorations { return nil }
func (n *BindNode) node()               {}

// ApplyNode is the ~> function chain.
type ApplyNode struct {
	Value     string
	LHS       Node
	RHS       Node
	KeepArray bool
	Position  int
}

func (n *ApplyNode) Type() Kind          { return KindApply }
func (n *ApplyNode) Pos() int            { return n.Position }
func (n *ApplyNode) Decor() *Decorations { return nil }
func (n *ApplyNode) node()               {}

// PathNode is a sequence of navigation steps joined by dots.
type PathNode struct {
	Decorations
	Steps              []Node
	KeepSingletonArray bool
	Position           int
}

func (n *PathNode) Type() Kind { return KindPath }
func (n *PathNode) Pos() int   { return n.Position }
func (n *PathNode) node()      {}

// BlockNode is a parenthesized, semicolon separated expression list.
type BlockNode struct {
	Decorations
	Expressions []Node
	ConsArray   bool
	Position    int
}

func (n *BlockNode) Type() Kind { return KindBlock }
func (n *BlockNode) Pos() int   { return n.Position }
func (n *BlockNode) node()      {}

// FunctionNode is a function invocation. Partial is set when any argument
// is the ? placeholder.
type FunctionNode struct {
	Decorations
	Value     string
	Procedure Node
	Arguments []Node
	Partial   bool
	Position  int
}

func (n *FunctionNode) Type() Kind {
	if n.Partial {
		return KindPartial
	}
	return KindFunction
}
func (n *FunctionNode) Pos() int { return n.Position }
func (n *FunctionNode) node()    {}

// LambdaNode is a function definition. Thunk lambdas are synthesized by the
// parser around calls in tail position and have no source form of their own.
type LambdaNode struct {
	Decorations
	Arguments []Node
	Body      Node
	Signature string
	Thunk     bool
	Position  int
}

func (n *LambdaNode) Type() Kind { return KindLambda }
func (n *LambdaNode) Pos() int   { return n.Position }
func (n *LambdaNode) node()      {}

// ConditionNode is the ternary operator. Else may be nil.
type ConditionNode struct {
	Condition Node
	Then      Node
	Else      Node
	Position  int
}

func (n *ConditionNode) Type() Kind          { return KindCondition }
func (n *ConditionNode) Pos() int            { return n.Position }
func (n *ConditionNode) Decor() *Decorations { return nil }
func (n *ConditionNode) node()               {}

// FilterNode is a [predicate] stage.
type FilterNode struct {
	Expr     Node
	Position int
}

func (n *FilterNode) Type() Kind          { return KindFilter }
func (n *FilterNode) Pos() int            { return n.Position }
func (n *FilterNode) Decor() *Decorations { return nil }
func (n *FilterNode) node()               {}

// IndexStage is a #$var binding that follows a filter stage.
type IndexStage struct {
	Value    string
	Position int
}

func (n *IndexStage) Type() Kind          { return KindIndex }
func (n *IndexStage) Pos() int            { return n.Position }
func (n *IndexStage) Decor() *Decorations { return nil }
func (n *IndexStage) node()               {}

// SortTerm is one ordering key of a sort step.
type SortTerm struct {
	Descending bool
	Expression Node
}

// SortNode is a ^(...) order-by step.
type SortNode struct {
	Decorations
	Terms    []SortTerm
	Position int
}

func (n *SortNode) Type() Kind { return KindSort }
func (n *SortNode) Pos() int   { return n.Position }
func (n *SortNode) node()      {}

// ObjectNode is the {k: v} constructor.
type ObjectNode struct {
	Decorations
	Pairs    []Pair
	Position int
}

func (n *ObjectNode) Type() Kind { return KindUnary }
func (n *ObjectNode) Op() string { return "{" }
func (n *ObjectNode) Pos() int   { return n.Position }
func (n *ObjectNode) node()      {}

// ArrayNode is the [a, b] constructor.
type ArrayNode struct {
	Decorations
	Expressions []Node
	ConsArray   bool
	Position    int
}

func (n *ArrayNode) Type() Kind { return KindUnary }
func (n *ArrayNode) Op() string { return "[" }
func (n *ArrayNode) Pos() int   { return n.Position }
func (n *ArrayNode) node()      {}

// NegationNode is unary minus on anything but a number literal.
type NegationNode struct {
	Expression Node
	Position   int
}

func (n *NegationNode) Type() Kind          { return KindUnary }
func (n *NegationNode) Op() string          { return "-" }
func (n *NegationNode) Pos() int            { return n.Position }
func (n *NegationNode) Decor() *Decorations { return nil }
func (n *NegationNode) node()               {}

// TransformNode is the |pattern|update,delete| object transformer.
type TransformNode struct {
	Decorations
	Pattern  Node
	Update   Node
	Delete   Node
	Position int
}

func (n *TransformNode) Type() Kind { return KindTransform }
func (n *TransformNode) Pos() int   { return n.Position }
func (n *TransformNode) node()      {}

// UnknownNodeError reports a node type this package does not know, which
// usually means the tree came from a newer parser.
type UnknownNodeError struct {
	Type  string
	Value any
}

func (e *UnknownNodeError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("unknown node type: %s (value %v)", e.Type, e.Value)
	}
	return fmt.Sprintf("unknown node type: %s", e.Type)
}
