package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"

	"sheetmail/internal/model"
)

// rowItem is one pending row as the run progresses.
type rowItem struct {
	index  int // position among pending rows
	email  string
	status model.Status
	cell   string
	err    error
	done   bool
}

func (r rowItem) FilterValue() string { return r.email }
func (r rowItem) Title() string {
	switch {
	case !r.done:
		return "… " + r.email
	case r.status == model.StatusCompleted:
		return okStyle.Render("✓ ") + r.email
	default:
		return errStyle.Render("✗ ") + r.email
	}
}
func (r rowItem) Description() string {
	if !r.done {
		return "sending"
	}
	if r.err != nil {
		return fmt.Sprintf("%s  %s  %v", r.status, r.cell, r.err)
	}
	return fmt.Sprintf("%s  %s", r.status, r.cell)
}

var (
	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			PaddingTop(1)
	okStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func rowsFooter(finished bool) string {
	if finished {
		return footerStyle.Render("enter: details  q: quit")
	}
	return footerStyle.Render("enter: details  ctrl+c: stop after current row")
}

func rowsToItems(rows []rowItem) []list.Item {
	items := make([]list.Item, len(rows))
	for i, r := range rows {
		items[i] = r
	}
	return items
}
