package chat

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	if !m.ready {
		return "Brewing..."
	}

	status := m.styles.Badge.Render("Ready")
	if m.busy {
		status = m.styles.Badge.Render("Thinking...")
	}
	header := lipgloss.JoinHorizontal(lipgloss.Center,
		m.styles.Header.Render(" "+m.cfg.Title+" "), " ", status)

	footer := m.styles.Muted.Render("/cart  /clear  /help  /quit")
	if m.err != nil {
		footer = m.styles.Error.Render(m.err.Error())
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		m.styles.Input.Render(m.textarea.View()),
		footer,
	)
}

func (m Model) renderHistory() string {
	var b strings.Builder
	for i, msg := range m.history {
		if i > 0 {
			b.WriteString("\n")
		}
		switch msg.Role {
		case "user":
			b.WriteString(m.styles.User.Render("You: " + msg.Content))
			b.WriteString("\n")
		case "system":
			b.WriteString(m.styles.Muted.Render(msg.Content))
			b.WriteString("\n")
		default:
			b.WriteString(m.renderMarkdown(msg.Content))
		}
	}
	return b.String()
}

func (m Model) renderMarkdown(content string) string {
	if m.renderer == nil {
		return m.styles.Assistant.Render(content) + "\n"
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return content + "\n"
	}
	return out
}

// Run starts the full-screen program and blocks until the user quits.
func Run(cfg Config) error {
	p := tea.NewProgram(New(cfg), tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}
