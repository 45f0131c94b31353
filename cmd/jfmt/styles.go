package main

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// styles renders terminal output. Colors are only emitted when the
// destination writer is a terminal.
type styles struct {
	header     lipgloss.Style
	removed    lipgloss.Style
	added      lipgloss.Style
	errorLabel lipgloss.Style
	warn       lipgloss.Style
	ok         lipgloss.Style
	watch      lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		header:     r.NewStyle().Bold(true),
		removed:    r.NewStyle().Foreground(lipgloss.Color("196")).TabWidth(lipgloss.NoTabConversion),
		added:      r.NewStyle().Foreground(lipgloss.Color("42")).TabWidth(lipgloss.NoTabConversion),
		errorLabel: r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		warn:       r.NewStyle().Foreground(lipgloss.Color("214")),
		ok:         r.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		watch:      r.NewStyle().Foreground(lipgloss.Color("99")),
	}
}
