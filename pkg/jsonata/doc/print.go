package doc

import (
	"bytes"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/width"
)

// Options control layout.
type Options struct {
	PrintWidth int  // target line width in columns
	TabWidth   int  // columns per indentation level
	UseTabs    bool // indent with tabs instead of spaces
}

type mode int

const (
	modeBreak mode = iota
	modeFlat
)

type cmd struct {
	indent int // nesting level
	mode   mode
	doc    Doc
}

// Print lays out d and returns the text.
func Print(d Doc, opts Options) string {
	p := &printer{opts: opts}
	if p.opts.TabWidth <= 0 {
		p.opts.TabWidth = 2
	}
	return p.print(d)
}

type printer struct {
	opts Options
	out  []byte
	pos  int // column of the next character
}

func (p *printer) indentation(level int) (string, int) {
	if p.opts.UseTabs {
		return strings.Repeat("\t", level), level * p.opts.TabWidth
	}
	n := level * p.opts.TabWidth
	return strings.Repeat(" ", n), n
}

func (p *printer) print(d Doc) string {
	cmds := []cmd{{indent: 0, mode: modeBreak, doc: d}}
	remeasure := false

	for len(cmds) > 0 {
		c := cmds[len(cmds)-1]
		cmds = cmds[:len(cmds)-1]

		switch d := c.doc.(type) {
		case text:
			p.out = append(p.out, string(d)...)
			p.pos += StringWidth(string(d))

		case concat:
			for i := len(d) - 1; i >= 0; i-- {
				cmds = append(cmds, cmd{indent: c.indent, mode: c.mode, doc: d[i]})
			}

		case indent:
			cmds = append(cmds, cmd{indent: c.indent + 1, mode: c.mode, doc: d.contents})

		case *group:
			if c.mode == modeFlat && !remeasure {
				next := modeFlat
				if d.broken {
					next = modeBreak
				}
				cmds = append(cmds, cmd{indent: c.indent, mode: next, doc: d.contents})
				break
			}
			remeasure = false
			flat := cmd{indent: c.indent, mode: modeFlat, doc: d.contents}
			if !d.broken && fits(flat, cmds, p.opts.PrintWidth-p.pos) {
				cmds = append(cmds, flat)
			} else {
				cmds = append(cmds, cmd{indent: c.indent, mode: modeBreak, doc: d.contents})
			}

		case line:
			if c.mode == modeFlat && !d.hard {
				if !d.soft {
					p.out = append(p.out, ' ')
					p.pos++
				}
				break
			}
			if c.mode == modeFlat {
				// a hard line inside a flat group; the groups after it
				// start on a fresh line and must be measured again
				remeasure = true
			}
			p.out = bytes.TrimRight(p.out, " \t")
			ind, w := p.indentation(c.indent)
			p.out = append(p.out, '\n')
			p.out = append(p.out, ind...)
			p.pos = w

		case breakParent:
		}
	}
	return string(p.out)
}

// fits reports whether next, followed by the pending commands up to the
// first line break, fits in the remaining width.
func fits(next cmd, rest []cmd, remaining int) bool {
	restIdx := len(rest)
	cmds := []cmd{next}
	for remaining >= 0 {
		if len(cmds) == 0 {
			if restIdx == 0 {
				return true
			}
			restIdx--
			cmds = append(cmds, rest[restIdx])
			continue
		}
		c := cmds[len(cmds)-1]
		cmds = cmds[:len(cmds)-1]

		switch d := c.doc.(type) {
		case text:
			remaining -= StringWidth(string(d))
		case concat:
			for i := len(d) - 1; i >= 0; i-- {
				cmds = append(cmds, cmd{indent: c.indent, mode: c.mode, doc: d[i]})
			}
		case indent:
			cmds = append(cmds, cmd{indent: c.indent, mode: c.mode, doc: d.contents})
		case *group:
			m := c.mode
			if d.broken {
				m = modeBreak
			}
			cmds = append(cmds, cmd{indent: c.indent, mode: m, doc: d.contents})
		case line:
			if c.mode == modeBreak || d.hard {
				return true
			}
			if !d.soft {
				remaining--
			}
		}
	}
	return false
}

// StringWidth returns the number of terminal columns s occupies. East Asian
// wide and fullwidth characters count as two, combining marks and format
// characters as zero.
func StringWidth(s string) int {
	ascii := true
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			ascii = false
			break
		}
	}
	if ascii {
		return len(s)
	}

	n := 0
	for _, r := range s {
		switch {
		case unicode.In(r, unicode.Mn, unicode.Me, unicode.Cf):
			// zero width
		case unicode.IsControl(r):
		default:
			switch width.LookupRune(r).Kind() {
			case width.EastAsianWide, width.EastAsianFullwidth:
				n += 2
			default:
				n++
			}
		}
	}
	return n
}
