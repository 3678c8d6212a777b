package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("39")).
	PaddingBottom(1)

func rowDetail(r rowItem) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("Recipient: %s\nPending row: %d", r.email, r.index+1)))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Status: %s\n", r.status)
	if r.cell != "" {
		fmt.Fprintf(&b, "Cell:   %s\n", r.cell)
	}
	if r.err != nil {
		b.WriteString("\n")
		b.WriteString(errStyle.Render(r.err.Error()))
		b.WriteString("\n")
	}
	return b.String()
}

func detailFooter() string {
	return footerStyle.Render("esc: back  q: quit")
}
