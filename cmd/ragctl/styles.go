package main

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// styles renders terminal output. Bound to a writer, so redirected or
// captured output stays plain text.
type styles struct {
	label lipgloss.Style
	dim   lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		label: r.NewStyle().Foreground(lipgloss.Color("45")).Bold(true),
		dim:   r.NewStyle().Foreground(lipgloss.Color("245")),
		ok:    r.NewStyle().Foreground(lipgloss.Color("46")),
		err:   r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	}
}
