// Package chat is the interactive terminal front end for the CoffeBuck
// assistant.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"coffebuck/internal/assistant"
	"coffebuck/internal/cart"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
)

const (
	headerHeight = 1
	inputHeight  = 5 // textarea rows plus border
	footerHeight = 1
)

// Config wires the model to an assistant and a cart.
type Config struct {
	Assistant *assistant.Assistant
	Store     cart.Store
	Session   string
	Title     string
	// Plain disables markdown rendering.
	Plain bool
}

// Message is one entry in the transcript.
type Message struct {
	Role    string // "user", "assistant" or "system"
	Content string
	Time    time.Time
}

// Model is the bubbletea model for the chat screen.
type Model struct {
	cfg    Config
	styles Styles

	textarea textarea.Model
	viewport viewport.Model
	renderer *glamour.TermRenderer

	history []Message
	ready   bool
	busy    bool
	err     error
}

type replyMsg struct {
	reply assistant.Reply
	err   error
}

// New builds the chat model with a greeting already in the transcript.
func New(cfg Config) Model {
	if cfg.Title == "" {
		cfg.Title = "CoffeBuck"
	}
	styles := NewStyles(DetectTheme())

	ta := textarea.New()
	ta.Placeholder = "Ask about the menu, or order a drink... (Enter to send, Esc to quit)"
	ta.Focus()
	ta.Prompt = "┃ "
	ta.CharLimit = 2000
	ta.SetWidth(80)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	vp := viewport.New(80, 20)

	m := Model{cfg: cfg, styles: styles, textarea: ta, viewport: vp}
	if !cfg.Plain {
		m.renderer = newRenderer(styles.Theme, 80)
	}
	m.append("assistant", fmt.Sprintf("Hi! I'm the %s assistant. Type `/help` for commands.", cfg.Title))
	return m
}

func newRenderer(t Theme, width int) *glamour.TermRenderer {
	style := glamour.WithStylePath("light")
	if t.IsDark {
		style = glamour.WithStylePath("dark")
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		return nil
	}
	return r
}

// History returns the transcript.
func (m Model) History() []Message { return m.history }

func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		width := max(msg.Width-2, 10)
		height := max(msg.Height-headerHeight-inputHeight-footerHeight, 1)
		if !m.ready {
			m.viewport = viewport.New(width, height)
			m.ready = true
		} else {
			m.viewport.Width = width
			m.viewport.Height = height
		}
		m.textarea.SetWidth(width - 4)
		if m.renderer != nil {
			m.renderer = newRenderer(m.styles.Theme, width-4)
		}
		m.refresh()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.busy {
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			m.textarea.Reset()
			if input == "" {
				return m, nil
			}
			return m.submit(input)
		}

	case replyMsg:
		m.busy = false
		m.err = msg.err
		if msg.reply.Text != "" {
			m.append("assistant", describe(msg.reply))
		}
		if msg.err != nil {
			m.append("system", "Error: "+msg.err.Error())
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// describe adds a note for replies that would move a browser elsewhere.
func describe(r assistant.Reply) string {
	if r.Navigate == nil {
		return r.Text
	}
	return fmt.Sprintf("%s\n\n_(the storefront would now open %s)_", r.Text, r.Navigate.Target)
}

func (m Model) submit(input string) (tea.Model, tea.Cmd) {
	if strings.HasPrefix(input, "/") {
		return m.command(input)
	}
	m.append("user", input)
	m.busy = true
	a, session := m.cfg.Assistant, m.cfg.Session
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		reply, err := a.Handle(ctx, session, input)
		return replyMsg{reply: reply, err: err}
	}
}

func (m Model) command(input string) (tea.Model, tea.Cmd) {
	ctx := context.Background()
	switch strings.Fields(input)[0] {
	case "/quit", "/exit":
		return m, tea.Quit
	case "/cart":
		lines, err := m.cfg.Store.ReadAll(ctx, m.cfg.Session)
		if err != nil {
			m.append("system", "Error: "+err.Error())
			break
		}
		d := m.cfg.Assistant.Dispatcher()
		text := d.CartSummary(lines)
		if len(lines) > 0 {
			totals := cart.Totals(lines, cart.DefaultTaxRate)
			currency := d.Catalog().Currency()
			text += fmt.Sprintf("\n\n**Tax:** %s%.2f  \n**Total:** %s%.2f", currency, totals.Tax, currency, totals.Total)
		}
		m.append("assistant", text)
	case "/clear":
		if err := m.cfg.Store.Clear(ctx, m.cfg.Session); err != nil {
			m.append("system", "Error: "+err.Error())
			break
		}
		m.append("system", "Cart cleared.")
	case "/help":
		m.append("assistant", "**Commands**\n\n"+
			"- `/cart` shows your cart with tax\n"+
			"- `/clear` empties your cart\n"+
			"- `/quit` leaves the chat\n\n"+
			"Anything else goes to the assistant.")
	default:
		m.append("system", fmt.Sprintf("Unknown command %s. Try /help.", input))
	}
	return m, nil
}

func (m *Model) append(role, content string) {
	m.history = append(m.history, Message{Role: role, Content: content, Time: time.Now()})
	m.refresh()
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
}
