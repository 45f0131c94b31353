// Package format pretty-prints JSONata syntax trees.
// Layout defaults are collected here so the CLI, server and library agree.
package format

// Line width - the target maximum line length
const DefaultPrintWidth = 150

// Indentation - spaces per level, or tabs when DefaultUseTabs is set
const (
	DefaultTabWidth = 2
	DefaultUseTabs  = false
)

// Names that must be quoted with backticks to be read as field names
var reservedNames = map[string]bool{
	"null":  true,
	"false": true,
	"true":  true,
}

// Regex flags JSONata accepts; anything else on a regex node is dropped
const supportedRegexFlags = "im"
