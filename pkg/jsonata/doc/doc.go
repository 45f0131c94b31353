// Package doc is the layout engine behind the formatter.
//
// A Doc is a tree of text, line breaks, indentation and groups. Print lays
// it out within a target width: a group is printed flat (its lines become
// spaces or nothing) when it fits on the rest of the current line, and
// broken (its lines become newlines) when it does not, or when something
// inside it demands a break.
//
// The semantics follow the document model used by prettier, which the
// formatting rules were written against:
//
//   - Line is a space when flat and a newline when broken.
//   - SoftLine is nothing when flat and a newline when broken.
//   - HardLine is always a newline and breaks every enclosing group.
//   - BreakParent breaks every enclosing group without printing anything.
package doc

// Doc is a layout document. Values are immutable and may be shared.
type Doc interface {
	isDoc()
}

func (text) isDoc()        {}
func (concat) isDoc()      {}
func (indent) isDoc()      {}
func (*group) isDoc()      {}
func (line) isDoc()        {}
func (breakParent) isDoc() {}

type text string

type concat []Doc

type indent struct {
	contents Doc
}

// group records at construction whether its contents force a break, so no
// separate propagation pass is needed before printing.
type group struct {
	contents Doc
	broken   bool
}

type line struct {
	soft bool
	hard bool
}

type breakParent struct{}

var (
	// Empty prints nothing.
	Empty Doc = text("")

	// Line is a space, or a newline when its group breaks.
	Line Doc = line{}

	// SoftLine is nothing, or a newline when its group breaks.
	SoftLine Doc = line{soft: true}

	// HardLine is always a newline.
	HardLine Doc = concat{line{hard: true}, breakParent{}}

	// BreakParent forces all enclosing groups to break.
	BreakParent Doc = breakParent{}
)

// Text is literal text. It must not contain newlines.
func Text(s string) Doc {
	return text(s)
}

// Concat joins docs in sequence. Nil and empty docs are skipped.
func Concat(parts ...Doc) Doc {
	out := make(concat, 0, len(parts))
	for _, p := range parts {
		if p == nil {
			continue
		}
		if t, ok := p.(text); ok && t == "" {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

// Indent increases the indentation of lines inside parts by one level.
func Indent(parts ...Doc) Doc {
	return indent{contents: Concat(parts...)}
}

// Group tries to print parts on one line.
func Group(parts ...Doc) Doc {
	contents := Concat(parts...)
	return &group{contents: contents, broken: forcesBreak(contents)}
}

// Join places sep between each of docs.
func Join(sep Doc, docs []Doc) Doc {
	parts := make([]Doc, 0, 2*len(docs))
	for i, d := range docs {
		if i > 0 {
			parts = append(parts, sep)
		}
		parts = append(parts, d)
	}
	return Concat(parts...)
}

// forcesBreak reports whether d contains a BreakParent, looking through
// concatenations and indentation and into nested groups only via their
// already computed state.
func forcesBreak(d Doc) bool {
	switch d := d.(type) {
	case breakParent:
		return true
	case *group:
		return d.broken
	case indent:
		return forcesBreak(d.contents)
	case concat:
		for _, p := range d {
			if forcesBreak(p) {
				return true
			}
		}
	}
	return false
}
