package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/edumentor/mentor-history/internal/sessions"
	"github.com/edumentor/mentor-history/pkg/models"
)

type model struct {
	loader        Loader
	actions       ConversationActions
	withThisMonth bool

	sessions []models.Session
	groups   []sessions.BucketGroup

	cursor          int
	selectedSession *models.Session

	leftViewport  viewport.Model // sessions list, grouped by date bucket
	rightViewport viewport.Model // transcript of the selected session

	loading   bool
	indicator *LoadingIndicator
	status    string
	ready     bool
	err       error
	width     int
	height    int
}

func initialModel(loader Loader, actions ConversationActions, withThisMonth bool) model {
	return model{
		loader:        loader,
		actions:       actions,
		withThisMonth: withThisMonth,
		loading:       true,
		indicator:     NewLoadingIndicator("Loading chat history"),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		loadSessionsCmd(context.Background(), m.loader),
		tickCmd(),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		leftWidth := msg.Width/2 - 1
		rightWidth := msg.Width - leftWidth - 1
		viewHeight := msg.Height - 3

		if !m.ready {
			m.leftViewport = viewport.New(leftWidth, viewHeight)
			m.rightViewport = viewport.New(rightWidth, viewHeight)
			m.ready = true
		} else {
			m.leftViewport.Width = leftWidth
			m.leftViewport.Height = viewHeight
			m.rightViewport.Width = rightWidth
			m.rightViewport.Height = viewHeight
		}
		m.updateViewports()

	case SessionsLoadedMsg:
		m.loading = false
		if msg.Error != nil {
			m.err = msg.Error
			return m, nil
		}
		m.sessions = msg.Sessions
		m.groups = sessions.GroupByBucket(m.sessions, time.Now(), m.withThisMonth)
		if m.cursor >= len(m.sessions) {
			m.cursor = 0
		}
		m.updateViewports()

	case ActionDoneMsg:
		if msg.Error != nil {
			m.status = fmt.Sprintf("%s failed: %v", msg.Action, msg.Error)
			m.loading = false
			return m, nil
		}
		m.status = fmt.Sprintf("%sd conversation", msg.Action)
		// Refetch so the list reflects the server state.
		m.indicator.SetMessage("Refreshing")
		return m, tea.Batch(loadSessionsCmd(context.Background(), m.loader), tickCmd())

	case TickMsg:
		if m.loading {
			m.indicator.Tick()
			cmds = append(cmds, tickCmd())
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				m.updateViewports()
			}

		case "down", "j":
			if m.cursor < len(m.sessions)-1 {
				m.cursor++
				m.updateViewports()
			}

		case "enter":
			if s := m.currentSession(); s != nil {
				m.selectedSession = s
				return m, tea.Quit
			}

		case "r":
			if !m.loading {
				m.loading = true
				m.indicator.SetMessage("Refreshing chat history")
				return m, tea.Batch(loadSessionsCmd(context.Background(), m.loader), tickCmd())
			}

		case "a":
			if cmd := m.actionCmd("archive"); cmd != nil {
				m.loading = true
				return m, tea.Batch(cmd, tickCmd())
			}

		case "d":
			if cmd := m.actionCmd("delete"); cmd != nil {
				m.loading = true
				return m, tea.Batch(cmd, tickCmd())
			}
		}
	}

	var leftCmd, rightCmd tea.Cmd
	m.leftViewport, leftCmd = m.leftViewport.Update(msg)
	m.rightViewport, rightCmd = m.rightViewport.Update(msg)
	cmds = append(cmds, leftCmd, rightCmd)

	return m, tea.Batch(cmds...)
}

// actionCmd builds the archive/delete command for the session under the
// cursor, or nil (with a status hint) when the action is unavailable.
func (m *model) actionCmd(action string) tea.Cmd {
	s := m.currentSession()
	if s == nil {
		return nil
	}
	if m.actions == nil {
		m.status = "offline source: archive/delete unavailable"
		return nil
	}
	if s.ConversationID == "" {
		m.status = "reconstructed session has no backend conversation to " + action
		return nil
	}
	if action == "archive" {
		m.indicator.SetMessage("Archiving conversation")
		return archiveCmd(context.Background(), m.actions, s.ConversationID)
	}
	m.indicator.SetMessage("Deleting conversation")
	return deleteCmd(context.Background(), m.actions, s.ConversationID)
}

func (m *model) currentSession() *models.Session {
	if m.cursor < 0 || m.cursor >= len(m.sessions) {
		return nil
	}
	return &m.sessions[m.cursor]
}

func (m *model) updateViewports() {
	if !m.ready {
		return
	}
	m.leftViewport.SetContent(m.renderSessionList())
	m.rightViewport.SetContent(m.renderTranscript())
}

func (m model) renderSessionList() string {
	if len(m.sessions) == 0 {
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true).
			Render("No conversations yet")
	}

	var s strings.Builder
	index := 0

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("229"))

	for gi, group := range m.groups {
		s.WriteString(headerStyle.Render(group.Bucket.String()) + "\n")

		for _, session := range group.Sessions {
			cursor := "  "
			if index == m.cursor {
				cursor = "> "
			}

			titleStyle := lipgloss.NewStyle()
			if index == m.cursor {
				titleStyle = titleStyle.Foreground(lipgloss.Color("212")).Bold(true)
			} else {
				titleStyle = titleStyle.Foreground(lipgloss.Color("252"))
			}

			maxTitle := m.leftViewport.Width - 4
			if maxTitle < 10 {
				maxTitle = 10
			}
			s.WriteString(titleStyle.Render(cursor+truncate(session.Title, maxTitle)) + "\n")

			metaStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
			if index == m.cursor {
				metaStyle = metaStyle.Foreground(lipgloss.Color("245"))
			}
			meta := fmt.Sprintf("  %d messages · %s",
				session.MessageCount(),
				session.Timestamp.Local().Format("01-02 15:04"))
			if session.Anomalous {
				meta += " · bad timestamp"
			}
			s.WriteString(metaStyle.Render(meta) + "\n")

			index++
		}

		if gi < len(m.groups)-1 {
			s.WriteString("\n")
		}
	}

	return s.String()
}

func (m model) renderTranscript() string {
	var s strings.Builder

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("229"))
	s.WriteString(headerStyle.Render("Transcript") + "\n")
	dividerWidth := m.rightViewport.Width - 2
	if dividerWidth < 10 {
		dividerWidth = 10
	}
	s.WriteString(strings.Repeat("─", dividerWidth) + "\n\n")

	session := m.currentSession()
	if session == nil {
		emptyStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
		s.WriteString(emptyStyle.Render("Nothing selected"))
		return s.String()
	}

	userStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	assistantStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("75")).Bold(true)
	bodyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("252"))

	wrapWidth := m.rightViewport.Width - 5
	if wrapWidth < 20 {
		wrapWidth = 20
	}

	writeTurn := func(label string, labelStyle lipgloss.Style, text string) {
		if strings.TrimSpace(text) == "" {
			return
		}
		s.WriteString(labelStyle.Render(label) + "\n")
		for _, line := range wrapText(text, wrapWidth) {
			s.WriteString("  " + bodyStyle.Render(line) + "\n")
		}
	}

	for i, entry := range session.Messages {
		writeTurn("You", userStyle, entry.User)
		writeTurn("Mentor", assistantStyle, entry.Assistant)
		if i < len(session.Messages)-1 {
			s.WriteString("\n")
		}
	}

	return s.String()
}

func (m model) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	if m.err != nil {
		return fmt.Sprintf("\n  Error: %v\n", m.err)
	}

	header := m.renderHeader()
	footer := m.renderFooter()

	if m.loading {
		return fmt.Sprintf("%s\n%s\n%s", header,
			LoadingOverlay(m.width, m.height-3, m.indicator), footer)
	}

	return fmt.Sprintf("%s\n%s\n%s", header, m.renderSplitView(), footer)
}

func (m model) renderSplitView() string {
	leftStyle := lipgloss.NewStyle().
		Width(m.leftViewport.Width).
		Height(m.leftViewport.Height)

	rightStyle := lipgloss.NewStyle().
		Width(m.rightViewport.Width).
		Height(m.rightViewport.Height)

	dividerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("238")).
		Height(m.leftViewport.Height)

	divider := strings.Builder{}
	for i := 0; i < m.leftViewport.Height; i++ {
		divider.WriteString("│")
		if i < m.leftViewport.Height-1 {
			divider.WriteString("\n")
		}
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		leftStyle.Render(m.leftViewport.View()),
		dividerStyle.Render(divider.String()),
		rightStyle.Render(m.rightViewport.View()),
	)
}

func (m model) renderHeader() string {
	title := fmt.Sprintf("EduMentor History - %d conversations", len(m.sessions))

	style := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("63"))

	return style.Render(title)
}

func (m model) renderFooter() string {
	info := "↑/↓: navigate • enter: open • r: refresh • a: archive • d: delete • q: quit"
	if m.status != "" {
		info += " • " + m.status
	}

	style := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	return style.Render(info)
}

// wrapText wraps text to fit within the specified width
func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}

	var lines []string
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{text}
	}

	currentLine := words[0]
	for _, word := range words[1:] {
		if len(currentLine)+1+len(word) > width {
			lines = append(lines, currentLine)
			currentLine = word
		} else {
			currentLine += " " + word
		}
	}
	if currentLine != "" {
		lines = append(lines, currentLine)
	}

	return lines
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

// Show displays the history browser and returns the session the user opened,
// or nil if they quit without selecting.
func Show(loader Loader, actions ConversationActions, withThisMonth bool) (*models.Session, error) {
	p := tea.NewProgram(
		initialModel(loader, actions, withThisMonth),
		tea.WithAltScreen(),
	)

	finalModel, err := p.Run()
	if err != nil {
		return nil, err
	}

	m := finalModel.(model)
	return m.selectedSession, nil
}
