package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"sheetmail/internal/batch"
)

type viewState int

const (
	viewLoading viewState = iota
	viewAuth              // waiting for auth code input
	viewRows              // live list of pending rows
	viewDetail            // one row's outcome
)

// RunFunc performs the run, reporting progress to observer.
type RunFunc func(ctx context.Context, observer batch.Observer) (batch.Summary, error)

type AppModel struct {
	// Core state
	run     RunFunc
	ctx     context.Context
	cancel  context.CancelFunc
	Err     error
	Summary *batch.Summary
	status  string

	// Auth flow
	urls      <-chan string
	codes     chan<- string
	textInput textinput.Model
	authURL   string

	// View state machine
	view     viewState
	rows     []rowItem
	total    int
	finished bool

	// Sub-models
	rowsList list.Model
	detail   viewport.Model

	// Layout
	width, height int

	// Program reference for sending messages from goroutines
	program *tea.Program
}

// SetProgram stores a reference to the tea.Program so the run can send
// progress messages back to the Update loop.
func (m *AppModel) SetProgram(p *tea.Program) {
	m.program = p
}

// NewAppModel builds the run view. urls and codes are the ends of the
// interactive OAuth channels handed to the credential provider.
func NewAppModel(run RunFunc, urls <-chan string, codes chan<- string) AppModel {
	ti := textinput.New()
	ti.Placeholder = "Paste auth code or redirect URL here"
	ti.Focus()

	rl := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	rl.KeyMap.Quit.SetKeys("q")
	rl.SetFilteringEnabled(false)
	rl.Title = "Starting"

	ctx, cancel := context.WithCancel(context.Background())
	return AppModel{
		run:       run,
		ctx:       ctx,
		cancel:    cancel,
		status:    "Authenticating...",
		view:      viewLoading,
		urls:      urls,
		codes:     codes,
		textInput: ti,
		rowsList:  rl,
		detail:    viewport.New(0, 0),
	}
}

func (m *AppModel) Init() tea.Cmd {
	return tea.Batch(m.runCmd(), m.waitAuthURLCmd(), textinput.Blink)
}

func (m *AppModel) runCmd() tea.Cmd {
	return func() tea.Msg {
		sum, err := m.run(m.ctx, func(e batch.Event) {
			if m.program != nil {
				m.program.Send(progressMsg(e))
			}
		})
		return runFinishedMsg{summary: sum, err: err}
	}
}

// waitAuthURLCmd blocks until the credential provider asks for consent. When
// a stored token is used it never fires.
func (m *AppModel) waitAuthURLCmd() tea.Cmd {
	return func() tea.Msg {
		u, ok := <-m.urls
		if !ok {
			return nil
		}
		return authURLMsg(u)
	}
}

func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.rowsList.SetSize(msg.Width, msg.Height-4) // room for footer
		m.detail.Width = msg.Width
		m.detail.Height = msg.Height - 4
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case authURLMsg:
		m.authURL = string(msg)
		m.view = viewAuth
		return m, nil

	case authSubmittedMsg:
		m.view = viewLoading
		m.status = "Exchanging code for token..."
		return m, nil

	case progressMsg:
		m.applyEvent(batch.Event(msg))
		return m, nil

	case runFinishedMsg:
		m.finished = true
		if msg.err != nil && len(m.rows) == 0 {
			m.Err = msg.err
			m.status = "Run failed!"
			return m, tea.Quit
		}
		m.Err = msg.err
		m.Summary = &msg.summary
		m.status = msg.summary.String()
		if len(m.rows) == 0 {
			return m, tea.Quit
		}
		m.rowsList.Title = m.status
		return m, nil
	}

	// Delegate to active sub-model
	var cmd tea.Cmd
	switch m.view {
	case viewAuth:
		m.textInput, cmd = m.textInput.Update(msg)
	case viewRows:
		m.rowsList, cmd = m.rowsList.Update(msg)
	case viewDetail:
		m.detail, cmd = m.detail.Update(msg)
	}
	return m, cmd
}

func (m *AppModel) applyEvent(e batch.Event) {
	switch e.State {
	case batch.StateAuthenticated:
		m.view = viewLoading
		m.status = "Reading sheet..."
	case batch.StateFetched:
		m.total = e.Total
		m.status = fmt.Sprintf("%d pending rows", e.Total)
	case batch.StateSending:
		for len(m.rows) <= e.Index {
			m.rows = append(m.rows, rowItem{index: len(m.rows)})
		}
		r := &m.rows[e.Index]
		r.email = e.Recipient
		if e.Done {
			r.done, r.status, r.cell, r.err = true, e.Status, e.Cell, e.Err
		}
		done := e.Index
		if e.Done {
			done++
		}
		m.rowsList.Title = fmt.Sprintf("Sending %d / %d", done, m.total)
		m.rowsList.SetItems(rowsToItems(m.rows))
		if m.view == viewLoading {
			m.view = viewRows
		}
	}
}

func (m *AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	// Global keys
	if key == "ctrl+c" {
		m.cancel()
		if m.finished {
			return m, tea.Quit
		}
		m.status = "Stopping after the current row..."
		m.rowsList.Title = m.status
		return m, nil
	}

	switch m.view {
	case viewAuth:
		if key == "enter" {
			val := m.textInput.Value()
			m.textInput.Reset()
			return m, func() tea.Msg {
				m.codes <- val
				return authSubmittedMsg{}
			}
		}
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd

	case viewRows:
		switch key {
		case "q":
			if m.finished {
				return m, tea.Quit
			}
			return m, nil
		case "enter":
			if it, ok := m.rowsList.SelectedItem().(rowItem); ok {
				m.detail.SetContent(rowDetail(it))
				m.detail.GotoTop()
				m.view = viewDetail
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.rowsList, cmd = m.rowsList.Update(msg)
		return m, cmd

	case viewDetail:
		switch key {
		case "q":
			if m.finished {
				return m, tea.Quit
			}
		case "esc":
			m.view = viewRows
			return m, nil
		}
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd

	case viewLoading:
		if key == "q" && m.finished {
			return m, tea.Quit
		}
	}

	return m, nil
}

// View renders the appropriate view based on current state.
func (m *AppModel) View() string {
	if m.view == viewAuth {
		return "Please open this URL in your browser to authorize sheetmail:\n\n" +
			m.authURL + "\n\n" +
			m.textInput.View()
	}

	if m.Err != nil && len(m.rows) == 0 {
		return "Error: " + m.Err.Error() + "\n"
	}

	if m.view == viewLoading {
		if m.status != "" {
			return m.status + "\n"
		}
		return "Loading...\n"
	}

	var b strings.Builder
	switch m.view {
	case viewRows:
		b.WriteString(m.rowsList.View())
		b.WriteString("\n")
		b.WriteString(rowsFooter(m.finished))
	case viewDetail:
		b.WriteString(m.detail.View())
		b.WriteString("\n")
		b.WriteString(detailFooter())
	}
	if m.Err != nil {
		b.WriteString("\n")
		b.WriteString(errStyle.Render("Error: " + m.Err.Error()))
	}
	return b.String()
}
