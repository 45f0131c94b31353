package ast

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Decode reads a tree in the JSON shape emitted by jsonata-js
// (JSON.stringify(jsonata(expr).ast())). A top-level "jsonataComments" list
// becomes the program's comments.
//
// Malformed decorations are dropped rather than reported, so slightly broken
// hand-built trees still print. Unknown node types are an error.
func Decode(data []byte) (*Program, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding AST: %w", err)
	}
	root, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("decoding AST: root must be an object")
	}
	expr, err := decodeNode(root)
	if err != nil {
		return nil, err
	}
	return &Program{Expr: expr, Comments: decodeComments(root["jsonataComments"])}, nil
}

func decodeComments(v any) []Comment {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	var comments []Comment
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		text, ok := m["text"].(string)
		if !ok {
			continue
		}
		pos, ok := m["position"].(float64)
		if !ok {
			continue
		}
		comments = append(comments, Comment{Position: int(pos), Text: text})
	}
	return comments
}

func decodeNode(v any) (Node, error) {
	if v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("decoding AST: node must be an object, got %T", v)
	}
	typ, _ := m["type"].(string)
	pos := position(m)

	switch Kind(typ) {
	case KindName:
		n := &NameNode{Value: str(m["value"]), Position: pos}
		return n, decodeDecorations(m, &n.Decorations)
	case KindNumber:
		f, ok := m["value"].(float64)
		if !ok {
			return nil, fmt.Errorf("decoding AST: number node without numeric value")
		}
		n := &NumberNode{Value: f, Position: pos}
		return n, decodeDecorations(m, &n.Decorations)
	case KindString:
		n := &StringNode{Value: str(m["value"]), Position: pos}
		return n, decodeDecorations(m, &n.Decorations)
	case KindValue:
		n := &ValueNode{Value: m["value"], Position: pos}
		return n, decodeDecorations(m, &n.Decorations)
	case KindVariable:
		n := &VariableNode{Value: str(m["value"]), Position: pos}
		return n, decodeDecorations(m, &n.Decorations)
	case KindRegex:
		n := &RegexNode{Position: pos}
		n.Pattern, n.Flags = decodeRegex(m["value"])
		return n, decodeDecorations(m, &n.Decorations)
	case KindParent:
		n := &ParentNode{Position: pos}
		if s, ok := m["slot"].(map[string]any); ok {
			n.Slot = &Slot{Label: str(s["label"]), Level: integer(s["level"]), Index: integer(s["index"])}
		}
		return n, decodeDecorations(m, &n.Decorations)
	case KindWildcard:
		n := &WildcardNode{Value: str(m["value"]), Position: pos}
		return n, decodeDecorations(m, &n.Decorations)
	case KindDescendant:
		n := &DescendantNode{Value: str(m["value"]), Position: pos}
		return n, decodeDecorations(m, &n.Decorations)
	case KindOperator:
		return &OperatorNode{Value: str(m["value"]), Position: pos}, nil
	case KindBinary, KindBind, KindApply:
		lhs, err := decodeNode(m["lhs"])
		if err != nil {
			return nil, err
		}
		rhs, err := decodeNode(m["rhs"])
		if err != nil {
			return nil, err
		}
		switch Kind(typ) {
		case KindBind:
			return &BindNode{LHS: lhs, RHS: rhs, Position: pos}, nil
		case KindApply:
			keep, _ := m["keepArray"].(bool)
			return &ApplyNode{Value: str(m["value"]), LHS: lhs, RHS: rhs, KeepArray: keep, Position: pos}, nil
		}
		return &BinaryNode{Value: str(m["value"]), LHS: lhs, RHS: rhs, Position: pos}, nil
	case KindPath:
		steps, err := decodeList(m["steps"])
		if err != nil {
			return nil, err
		}
		keep, _ := m["keepSingletonArray"].(bool)
		n := &PathNode{Steps: steps, KeepSingletonArray: keep, Position: pos}
		return n, decodeDecorations(m, &n.Decorations)
	case KindBlock:
		exprs, err := decodeList(m["expressions"])
		if err != nil {
			return nil, err
		}
		cons, _ := m["consarray"].(bool)
		n := &BlockNode{Expressions: exprs, ConsArray: cons, Position: pos}
		return n, decodeDecorations(m, &n.Decorations)
	case KindFunction, KindPartial:
		proc, err := decodeNode(m["procedure"])
		if err != nil {
			return nil, err
		}
		args, err := decodeList(m["arguments"])
		if err != nil {
			return nil, err
		}
		n := &FunctionNode{Value: str(m["value"]), Procedure: proc, Arguments: args, Partial: Kind(typ) == KindPartial, Position: pos}
		return n, decodeDecorations(m, &n.Decorations)
	case KindLambda:
		args, err := decodeList(m["arguments"])
		if err != nil {
			return nil, err
		}
		body, err := decodeNode(m["body"])
		if err != nil {
			return nil, err
		}
		thunk, _ := m["thunk"].(bool)
		sig, _ := m["signature"].(string)
		n := &LambdaNode{Arguments: args, Body: body, Signature: sig, Thunk: thunk, Position: pos}
		return n, decodeDecorations(m, &n.Decorations)
	case KindCondition:
		n := &ConditionNode{Position: pos}
		var err error
		if n.Condition, err = decodeNode(m["condition"]); err != nil {
			return nil, err
		}
		if n.Then, err = decodeNode(m["then"]); err != nil {
			return nil, err
		}
		if n.Else, err = decodeNode(m["else"]); err != nil {
			return nil, err
		}
		return n, nil
	case KindFilter:
		expr, err := decodeNode(m["expr"])
		if err != nil {
			return nil, err
		}
		return &FilterNode{Expr: expr, Position: pos}, nil
	case KindIndex:
		return &IndexStage{Value: str(m["value"]), Position: pos}, nil
	case KindSort:
		n := &SortNode{Position: pos}
		terms, _ := m["terms"].([]any)
		for _, t := range terms {
			tm, ok := t.(map[string]any)
			if !ok {
				continue
			}
			expr, err := decodeNode(tm["expression"])
			if err != nil {
				return nil, err
			}
			desc, _ := tm["descending"].(bool)
			n.Terms = append(n.Terms, SortTerm{Descending: desc, Expression: expr})
		}
		return n, decodeDecorations(m, &n.Decorations)
	case KindTransform:
		n := &TransformNode{Position: pos}
		var err error
		if n.Pattern, err = decodeNode(m["pattern"]); err != nil {
			return nil, err
		}
		if n.Update, err = decodeNode(m["update"]); err != nil {
			return nil, err
		}
		if n.Delete, err = decodeNode(m["delete"]); err != nil {
			return nil, err
		}
		return n, decodeDecorations(m, &n.Decorations)
	case KindUnary:
		return decodeUnary(m, pos)
	}
	return nil, &UnknownNodeError{Type: typ, Value: m["value"]}
}

func decodeUnary(m map[string]any, pos int) (Node, error) {
	switch op := str(m["value"]); op {
	case "{":
		n := &ObjectNode{Position: pos}
		pairs, err := decodePairs(m["lhs"])
		if err != nil {
			return nil, err
		}
		n.Pairs = pairs
		return n, decodeDecorations(m, &n.Decorations)
	case "[":
		exprs, err := decodeList(m["expressions"])
		if err != nil {
			return nil, err
		}
		cons, _ := m["consarray"].(bool)
		n := &ArrayNode{Expressions: exprs, ConsArray: cons, Position: pos}
		return n, decodeDecorations(m, &n.Decorations)
	case "-":
		expr, err := decodeNode(m["expression"])
		if err != nil {
			return nil, err
		}
		return &NegationNode{Expression: expr, Position: pos}, nil
	default:
		return nil, &UnknownNodeError{Type: string(KindUnary), Value: op}
	}
}

func decodeList(v any) ([]Node, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, nil
	}
	nodes := make([]Node, 0, len(list))
	for _, item := range list {
		n, err := decodeNode(item)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// decodePairs reads a list of [key, value] tuples. Anything that is not a
// list of two-element lists yields no pairs.
func decodePairs(v any) ([]Pair, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, nil
	}
	pairs := make([]Pair, 0, len(list))
	for _, item := range list {
		tuple, ok := item.([]any)
		if !ok || len(tuple) != 2 {
			return nil, nil
		}
		k, err := decodeNode(tuple[0])
		if err != nil {
			return nil, err
		}
		val, err := decodeNode(tuple[1])
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, Pair{Key: k, Value: val})
	}
	return pairs, nil
}

func decodeDecorations(m map[string]any, d *Decorations) error {
	if s, ok := m["focus"].(string); ok {
		d.Focus = s
	}
	if s, ok := m["index"].(string); ok {
		d.Index = s
	}
	d.KeepArray, _ = m["keepArray"].(bool)
	d.Tuple, _ = m["tuple"].(bool)

	var err error
	if d.Stages, err = decodeList(m["stages"]); err != nil {
		return err
	}
	if d.Predicate, err = decodeList(m["predicate"]); err != nil {
		return err
	}
	if g, ok := m["group"].(map[string]any); ok {
		if _, ok := g["lhs"].([]any); ok {
			pairs, err := decodePairs(g["lhs"])
			if err != nil {
				return err
			}
			if pairs != nil {
				d.Group = &Group{Pairs: pairs, Position: position(g)}
			}
		}
	}
	return nil
}

// decodeRegex accepts {"source": ..., "flags": ...} or a "/source/flags"
// string. JSON.stringify renders a RegExp as {}, which yields an empty
// pattern.
func decodeRegex(v any) (pattern, flags string) {
	switch r := v.(type) {
	case map[string]any:
		return str(r["source"]), str(r["flags"])
	case string:
		if strings.HasPrefix(r, "/") {
			if end := strings.LastIndex(r, "/"); end > 0 {
				return r[1:end], r[end+1:]
			}
		}
		return r, ""
	}
	return "", ""
}

func position(m map[string]any) int {
	if f, ok := m["position"].(float64); ok {
		return int(f)
	}
	return NoPos
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func integer(v any) int {
	f, _ := v.(float64)
	return int(f)
}

// Encode writes n in the jsonata-js JSON shape. A *Program writes its
// expression with the comments under "jsonataComments".
func Encode(n Node, indent string) ([]byte, error) {
	var v any
	if p, ok := n.(*Program); ok {
		root, _ := encodeNode(p.Expr).(map[string]any)
		if root == nil {
			root = map[string]any{}
		}
		if len(p.Comments) > 0 {
			comments := make([]any, len(p.Comments))
			for i, c := range p.Comments {
				comments[i] = map[string]any{"position": c.Position, "text": c.Text}
			}
			root["jsonataComments"] = comments
		}
		v = root
	} else {
		v = encodeNode(n)
	}
	if indent == "" {
		return json.Marshal(v)
	}
	return json.MarshalIndent(v, "", indent)
}

func encodeNode(n Node) any {
	if n == nil || IsNil(n) {
		return nil
	}
	m := map[string]any{"type": string(n.Type())}
	if p := n.Pos(); p != NoPos {
		m["position"] = p
	}
	switch n := n.(type) {
	case *Program:
		return encodeNode(n.Expr)
	case *NameNode:
		m["value"] = n.Value
	case *NumberNode:
		m["value"] = n.Value
	case *StringNode:
		m["value"] = n.Value
	case *ValueNode:
		m["value"] = n.Value
	case *VariableNode:
		m["value"] = n.Value
	case *RegexNode:
		m["value"] = map[string]any{"source": n.Pattern, "flags": n.Flags}
	case *ParentNode:
		if n.Slot != nil {
			m["slot"] = map[string]any{"label": n.Slot.Label, "level": n.Slot.Level, "index": n.Slot.Index}
		}
	case *WildcardNode:
		m["value"] = n.Value
	case *DescendantNode:
		m["value"] = n.Value
	case *OperatorNode:
		m["value"] = n.Value
	case *BinaryNode:
		m["value"] = n.Value
		m["lhs"] = encodeNode(n.LHS)
		m["rhs"] = encodeNode(n.RHS)
	case *BindNode:
		m["value"] = ":="
		m["lhs"] = encodeNode(n.LHS)
		m["rhs"] = encodeNode(n.RHS)
	case *ApplyNode:
		m["value"] = n.Value
		m["lhs"] = encodeNode(n.LHS)
		m["rhs"] = encodeNode(n.RHS)
		if n.KeepArray {
			m["keepArray"] = true
		}
	case *PathNode:
		m["steps"] = encodeList(n.Steps)
		if n.KeepSingletonArray {
			m["keepSingletonArray"] = true
		}
	case *BlockNode:
		m["expressions"] = encodeList(n.Expressions)
		if n.ConsArray {
			m["consarray"] = true
		}
	case *FunctionNode:
		m["value"] = n.Value
		m["procedure"] = encodeNode(n.Procedure)
		m["arguments"] = encodeList(n.Arguments)
	case *LambdaNode:
		m["arguments"] = encodeList(n.Arguments)
		m["body"] = encodeNode(n.Body)
		if n.Signature != "" {
			m["signature"] = n.Signature
		}
		if n.Thunk {
			m["thunk"] = true
		}
	case *ConditionNode:
		m["condition"] = encodeNode(n.Condition)
		m["then"] = encodeNode(n.Then)
		if n.Else != nil {
			m["else"] = encodeNode(n.Else)
		}
	case *FilterNode:
		m["expr"] = encodeNode(n.Expr)
	case *IndexStage:
		m["value"] = n.Value
	case *SortNode:
		terms := make([]any, len(n.Terms))
		for i, t := range n.Terms {
			terms[i] = map[string]any{"descending": t.Descending, "expression": encodeNode(t.Expression)}
		}
		m["terms"] = terms
	case *ObjectNode:
		m["value"] = "{"
		m["lhs"] = encodePairs(n.Pairs)
	case *ArrayNode:
		m["value"] = "["
		m["expressions"] = encodeList(n.Expressions)
		if n.ConsArray {
			m["consarray"] = true
		}
	case *NegationNode:
		m["value"] = "-"
		m["expression"] = encodeNode(n.Expression)
	case *TransformNode:
		m["pattern"] = encodeNode(n.Pattern)
		m["update"] = encodeNode(n.Update)
		if n.Delete != nil {
			m["delete"] = encodeNode(n.Delete)
		}
	}
	if d := n.Decor(); d != nil {
		encodeDecorations(m, d)
	}
	return m
}

func encodeDecorations(m map[string]any, d *Decorations) {
	if d.Focus != "" {
		m["focus"] = d.Focus
	}
	if d.Index != "" {
		m["index"] = d.Index
	}
	if d.Tuple {
		m["tuple"] = true
	}
	if d.KeepArray {
		m["keepArray"] = true
	}
	if len(d.Stages) > 0 {
		m["stages"] = encodeList(d.Stages)
	}
	if len(d.Predicate) > 0 {
		m["predicate"] = encodeList(d.Predicate)
	}
	if d.Group != nil {
		g := map[string]any{"lhs": encodePairs(d.Group.Pairs)}
		if d.Group.Position != NoPos {
			g["position"] = d.Group.Position
		}
		m["group"] = g
	}
}

func encodeList(nodes []Node) []any {
	out := make([]any, len(nodes))
	for i, n := range nodes {
		out[i] = encodeNode(n)
	}
	return out
}

func encodePairs(pairs []Pair) []any {
	out := make([]any, len(pairs))
	for i, p := range pairs {
		out[i] = []any{encodeNode(p.Key), encodeNode(p.Value)}
	}
	return out
}
