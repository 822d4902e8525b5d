// Package tui renders a mounted chat view in the terminal.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/PadhikariDev/querynest/internal/chat"
	"github.com/PadhikariDev/querynest/internal/model"
	"github.com/PadhikariDev/querynest/internal/view"
)

const listWidth = 34

type focus int

const (
	focusList focus = iota
	focusChat
)

// storeUpdateMsg is produced whenever the view's store changes.
type storeUpdateMsg chat.Update

type refreshedMsg struct{ err error }

type Model struct {
	view   *view.View
	styles Styles

	queries []model.Query
	cursor  int
	focus   focus

	input    textinput.Model
	viewport viewport.Model
	width    int
	height   int
	status   string
}

func New(v *view.View, styles Styles) Model {
	input := textinput.New()
	input.Placeholder = "Type a message"
	input.CharLimit = model.MaxQueryMessageLength
	input.Prompt = "> "

	m := Model{
		view:     v,
		styles:   styles,
		queries:  v.Queries(),
		input:    input,
		viewport: viewport.New(60, 20),
	}
	m.renderChat()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForUpdate(m.view))
}

func waitForUpdate(v *view.View) tea.Cmd {
	return func() tea.Msg {
		select {
		case u := <-v.Updates():
			return storeUpdateMsg(u)
		case <-v.Done():
			return nil
		}
	}
}

func refresh(v *view.View) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return refreshedMsg{err: v.Refresh(ctx)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.setSize(msg.Width, msg.Height)
		return m, nil

	case storeUpdateMsg:
		m.queries = m.view.Queries()
		m.renderChat()
		return m, waitForUpdate(m.view)

	case refreshedMsg:
		if msg.err != nil {
			m.status = "refresh failed: " + msg.err.Error()
		} else {
			m.status = ""
			m.queries = m.view.Queries()
			if m.cursor >= len(m.queries) {
				m.cursor = max(len(m.queries)-1, 0)
			}
		}
		m.renderChat()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "ctrl+r":
			m.status = "refreshing..."
			return m, refresh(m.view)
		}
		if m.focus == focusList {
			return m.updateList(msg)
		}
		return m.updateChat(msg)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.queries)-1 {
			m.cursor++
		}
	case "enter":
		if len(m.queries) == 0 {
			return m, nil
		}
		if err := m.view.Select(m.queries[m.cursor].ID); err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.status = ""
		m.focus = focusChat
		m.renderChat()
		cmd := m.input.Focus()
		return m, cmd
	}
	return m, nil
}

func (m Model) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.focus = focusList
		m.input.Blur()
		return m, nil
	case "tab":
		m.cycleTag()
		m.renderChat()
		return m, nil
	case "enter":
		if _, err := m.view.Send(m.input.Value()); err != nil {
			m.status = err.Error()
		} else {
			m.status = ""
			m.input.Reset()
		}
		m.renderChat()
		return m, nil
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// cycleTag moves the user view to the selected query's next tag.
func (m *Model) cycleTag() {
	if m.view.Kind() == view.KindStaff {
		return
	}
	sel := m.view.Selection()
	q, ok := m.view.Query(sel.QueryID)
	if !ok {
		return
	}
	tags := q.TagList()
	for i, tag := range tags {
		if tag == sel.Tag {
			_ = m.view.SetActiveTag(tags[(i+1)%len(tags)])
			return
		}
	}
}

func (m *Model) setSize(w, h int) {
	m.width, m.height = w, h
	m.viewport.Width = max(w-listWidth-6, 20)
	m.viewport.Height = max(h-8, 5)
	m.input.Width = m.viewport.Width - 4
	m.renderChat()
}

func (m *Model) renderChat() {
	sel := m.view.Selection()
	if sel.QueryID == "" {
		m.viewport.SetContent(m.styles.Muted.Render("Select a query to open its chat."))
		return
	}

	var sb strings.Builder
	for _, msg := range m.view.ActiveBucket() {
		style := m.styles.User
		switch msg.Role {
		case model.RoleStaff:
			style = m.styles.Staff
		case model.RoleSystem:
			style = m.styles.System
		}
		stamp := m.styles.Muted.Render(msg.Time.Local().Format("15:04"))
		sb.WriteString(fmt.Sprintf("%s %s %s\n", stamp, style.Render(msg.Sender+":"), msg.Text))
	}
	m.viewport.SetContent(sb.String())
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	header := m.styles.Header.Render(fmt.Sprintf("QueryNest · %s · %s", m.view.Kind(), m.view.Sender()))
	if m.view.Status() == view.StatusLoading {
		return header + "\n\n" + m.styles.Muted.Render("Loading queries...") + "\n" + m.footer()
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		m.styles.Panel.Width(listWidth).Render(m.listView()),
		m.styles.Panel.Render(m.chatView()),
	)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, m.footer())
}

func (m Model) listView() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render("Queries"))
	sb.WriteString("\n")
	if len(m.queries) == 0 {
		sb.WriteString(m.styles.Muted.Render("No queries yet."))
		return sb.String()
	}
	for i, q := range m.queries {
		line := fmt.Sprintf("%s  %s", truncate(q.Message, 20), q.Status)
		if i == m.cursor {
			sb.WriteString(m.styles.Selected.Render("› " + line))
		} else {
			sb.WriteString("  " + line)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) chatView() string {
	sel := m.view.Selection()
	var tabs []string
	if q, ok := m.view.Query(sel.QueryID); ok {
		tags := q.TagList()
		if m.view.Kind() == view.KindStaff {
			tags = []string{sel.Tag}
		}
		for _, tag := range tags {
			if tag == sel.Tag {
				tabs = append(tabs, m.styles.Active.Render(tag))
			} else {
				tabs = append(tabs, m.styles.Tag.Render(tag))
			}
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, tabs...),
		m.viewport.View(),
		m.input.View(),
	)
}

func (m Model) footer() string {
	help := "↑/↓ select · enter open · ctrl+r refresh · q quit"
	if m.focus == focusChat {
		help = "enter send · tab next tag · esc back · ctrl+c quit"
	}
	line := m.styles.Muted.Render(help)
	if m.status != "" {
		line = m.styles.Error.Render(m.status) + "  " + line
	}
	return line
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-1]) + "…"
}

// Run shows v full-screen until the user quits or ctx is cancelled.
func Run(ctx context.Context, v *view.View) error {
	p := tea.NewProgram(New(v, DefaultStyles()), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
