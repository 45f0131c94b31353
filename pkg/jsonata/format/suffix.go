package format

import (
	"strings"
	"unicode"

	"github.com/sambeau/jsonatafmt/pkg/jsonata/ast"
	"github.com/sambeau/jsonatafmt/pkg/jsonata/doc"
)

// suffix renders the decorations that follow a node, always in the same
// order: focus, index, stages, predicate, group, keep-array. The group
// comes after the predicates because JSONata rejects a predicate that
// follows a grouping expression.
func (p *printer) suffix(d *ast.Decorations) doc.Doc {
	if d == nil {
		return doc.Empty
	}
	parts := make([]doc.Doc, 0, 6)
	if d.Focus != "" {
		parts = append(parts, doc.Text("@$"+d.Focus))
	}
	if d.Index != "" {
		parts = append(parts, doc.Text("#$"+d.Index))
	}
	for _, stage := range d.Stages {
		parts = append(parts, p.print(stage))
	}
	for _, pred := range d.Predicate {
		parts = append(parts, p.print(pred))
	}
	if d.Group != nil {
		parts = append(parts, p.printGroup(d.Group))
	}
	if d.KeepArray {
		parts = append(parts, doc.Text("[]"))
	}
	return doc.Concat(parts...)
}

func (p *printer) printGroup(g *ast.Group) doc.Doc {
	if len(g.Pairs) == 0 {
		return doc.Text("{}")
	}
	return doc.Group(doc.Text("{"), p.printPairs(g.Pairs), doc.Text("}"))
}

// escapeName quotes a field name with backticks unless it reads back as
// the same name bare.
func escapeName(name string) string {
	if len(name) >= 2 && strings.HasPrefix(name, "`") && strings.HasSuffix(name, "`") {
		return name
	}
	if len(name) >= 2 && strings.HasPrefix(name, `"`) && strings.HasSuffix(name, `"`) {
		return "`" + name[1:len(name)-1] + "`"
	}
	if needsBackticks(name) {
		return "`" + name + "`"
	}
	return name
}

func needsBackticks(name string) bool {
	if name == "" {
		return true
	}
	if strings.IndexFunc(name, unicode.IsSpace) >= 0 {
		return true
	}
	if reservedNames[name] {
		return true
	}
	if isDigit(name[0]) {
		return true
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if !isLetter(c) && !isDigit(c) && c != '_' && c != '[' && c != ']' {
			return true
		}
	}
	return false
}

func isLetter(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

// valueText renders true, false or null. Anything else a hand-built tree
// puts in a value node is quoted like a string literal.
func valueText(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case bool:
		if v {
			return "true"
		}
		return "false"
	case string:
		return ast.Quote(v)
	}
	return "null"
}

// regexFlags keeps the supported flags, in canonical order.
func regexFlags(flags string) string {
	var sb strings.Builder
	for _, f := range supportedRegexFlags {
		if strings.ContainsRune(flags, f) {
			sb.WriteRune(f)
		}
	}
	return sb.String()
}
