package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"sheetmail/internal/model"
)

var dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

// RenderHistory formats ledger entries, newest first, for `sheetmail history`.
func RenderHistory(recs []model.SendRecord, lastRun time.Time) string {
	var b strings.Builder
	if lastRun.IsZero() {
		b.WriteString(headerStyle.Render("No runs recorded yet."))
	} else {
		b.WriteString(headerStyle.Render("Last run: " + lastRun.Local().Format("Jan 2, 2006 15:04")))
	}
	b.WriteString("\n")

	for _, r := range recs {
		mark := okStyle.Render("✓")
		if r.Status != model.StatusCompleted {
			mark = errStyle.Render("✗")
		}
		fmt.Fprintf(&b, "%s %s  %-32s %s\n", mark, trimDate(r.SentAt), r.Recipient, dimStyle.Render(r.Cell))
		if r.Subject != "" {
			fmt.Fprintf(&b, "    %s\n", r.Subject)
		}
		if r.Error != "" {
			fmt.Fprintf(&b, "    %s\n", errStyle.Render(r.Error))
		}
	}
	return b.String()
}

// trimDate renders a timestamp in short local form.
func trimDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("Jan 2 15:04")
}
