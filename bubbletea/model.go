package bubbletea

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	lumen "github.com/lumenlabs/lumen-go"
)

var _ tea.Model = Model{}

// entry is one rendered line of the transcript. Assistant entries stream
// in as plain text and are re-rendered as markdown once final.
type entry struct {
	role    string
	content string
	final   bool
}

// Model is the Bubble Tea model for the chat TUI.
type Model struct {
	// Input is the text input component. Exported for test access.
	Input textinput.Model
	// Viewport is the scrollable output area. Exported for test access.
	Viewport viewport.Model

	chat      ChatFunc
	modelName string
	styles    Styles
	renderer  *glamour.TermRenderer

	history []lumen.Message // conversation sent with each exchange
	entries []entry
	usage   *lumen.Usage

	running bool
	cancel  context.CancelFunc
	eventCh chan lumen.ChatEvent
	doneCh  chan error
	err     error
	ready   bool
}

// New creates a new TUI Model with the given chat function and model name.
func New(chat ChatFunc, modelName string) Model {
	ti := textinput.New()
	ti.Placeholder = "Type a message..."
	ti.Prompt = ""
	ti.Focus()
	ti.CharLimit = 0

	return Model{
		Input:     ti,
		chat:      chat,
		modelName: modelName,
		styles:    DefaultStyles(),
	}
}

// WithHistory seeds the conversation with previously exchanged messages.
// System messages join the history but are not displayed.
func (m Model) WithHistory(msgs []lumen.Message) Model {
	m.history = append(m.history, msgs...)
	for _, msg := range msgs {
		if msg.Role == "system" {
			continue
		}
		m.entries = append(m.entries, entry{role: msg.Role, content: msg.Content, final: true})
	}
	return m
}

// Running returns whether an exchange is currently streaming.
func (m Model) Running() bool { return m.running }

// Err returns the last error, if any.
func (m Model) Err() error { return m.err }

// History returns the conversation so far.
func (m Model) History() []lumen.Message { return m.history }

// Usage returns the token usage reported for the most recent exchange,
// or nil if no exchange has completed.
func (m Model) Usage() *lumen.Usage { return m.usage }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StreamEventMsg:
		m = m.processEvent(msg.Event)
		m.Viewport.SetContent(m.renderContent())
		m.Viewport.GotoBottom()
		if m.eventCh != nil {
			return m, listenForEvent(m.eventCh, m.doneCh)
		}
		return m, nil

	case ChatDoneMsg:
		m.running = false
		m.cancel = nil
		m.eventCh = nil
		m.doneCh = nil
		if msg.Err != nil && !errors.Is(msg.Err, context.Canceled) {
			m.err = msg.Err
		}
		m = m.commitAssistantTurn()
		m.Viewport.SetContent(m.renderContent())
		m.Viewport.GotoBottom()
		cmds = append(cmds, m.Input.Focus())
		return m, tea.Batch(cmds...)
	}

	// Pass remaining messages to sub-components. The viewport always
	// receives messages for scrolling.
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)

	if !m.running {
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.Input.View())
	return b.String()
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	inputH := 1
	statusH := 1
	borderH := 2 // newlines between sections
	vpHeight := msg.Height - inputH - statusH - borderH
	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.ready {
		m.Viewport = viewport.New(msg.Width, vpHeight)
		m.ready = true
	} else {
		m.Viewport.Width = msg.Width
		m.Viewport.Height = vpHeight
	}
	m.Input.Width = msg.Width

	// Markdown word wrap tracks the terminal width.
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(msg.Width),
	)
	if err == nil {
		m.renderer = renderer
	}

	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.running {
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}
		return m, tea.Quit

	case tea.KeyEnter:
		if m.running {
			return m, nil
		}
		text := strings.TrimSpace(m.Input.Value())
		if text == "" {
			return m, nil
		}
		return m.submitInput(text)
	}

	// When idle, pass keys to both input (for typing) and viewport (for
	// scrolling). Only forward non-character keys to the viewport to
	// avoid conflicts with typing.
	if !m.running {
		var cmd tea.Cmd
		var cmds []tea.Cmd
		if msg.Type != tea.KeyRunes {
			m.Viewport, cmd = m.Viewport.Update(msg)
			cmds = append(cmds, cmd)
		}
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m Model) submitInput(text string) (tea.Model, tea.Cmd) {
	m.Input.SetValue("")
	m.err = nil

	m.history = append(m.history, lumen.UserMessage(text))
	m.entries = append(m.entries, entry{role: "user", content: text, final: true})
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.eventCh = make(chan lumen.ChatEvent, 256)
	m.doneCh = make(chan error, 1)
	m.running = true

	m.Input.Blur()

	return m, tea.Batch(
		startChat(m.chat, ctx, m.history, m.eventCh, m.doneCh),
		listenForEvent(m.eventCh, m.doneCh),
	)
}

// processEvent routes a stream event into the transcript.
func (m Model) processEvent(evt lumen.ChatEvent) Model {
	switch e := evt.(type) {
	case lumen.MessageStart:
		m.entries = append(m.entries, entry{role: e.Role})
	case lumen.MessageDelta:
		if i := m.lastAssistantEntry(); i >= 0 {
			m.entries[i].content += e.Content
		} else {
			// Server skipped the start fragment; open the entry here.
			m.entries = append(m.entries, entry{role: "assistant", content: e.Content})
		}
	case lumen.MessageEnd:
		if i := m.lastAssistantEntry(); i >= 0 {
			m.entries[i].final = true
		}
	case lumen.ChatSummary:
		usage := e.Usage
		m.usage = &usage
	}
	return m
}

// commitAssistantTurn appends the streamed assistant reply to the
// conversation history once the exchange finished.
func (m Model) commitAssistantTurn() Model {
	if i := m.lastAssistantEntry(); i >= 0 {
		m.entries[i].final = true
		m.history = append(m.history, lumen.AssistantMessage(m.entries[i].content))
	}
	return m
}

// lastAssistantEntry returns the index of the assistant entry currently
// streaming, or -1 when the last committed turn was not an assistant one.
func (m Model) lastAssistantEntry() int {
	if len(m.entries) == 0 {
		return -1
	}
	i := len(m.entries) - 1
	if m.entries[i].role != "user" {
		return i
	}
	return -1
}

func (m Model) renderContent() string {
	var b strings.Builder
	for i, e := range m.entries {
		if i > 0 {
			b.WriteString("\n")
		}
		switch {
		case e.role == "user":
			b.WriteString(m.styles.UserLabel.Render("You"))
			b.WriteString("\n")
			b.WriteString(e.content)
			b.WriteString("\n")
		default:
			b.WriteString(m.styles.AssistantLabel.Render(m.modelName))
			b.WriteString("\n")
			b.WriteString(m.renderAssistant(e))
		}
	}
	return b.String()
}

// renderAssistant renders finished replies as markdown; text still
// streaming stays plain to avoid re-rendering on every delta.
func (m Model) renderAssistant(e entry) string {
	if !e.final || m.renderer == nil {
		return e.content + "\n"
	}
	out, err := m.renderer.Render(e.content)
	if err != nil {
		return e.content + "\n"
	}
	return out
}

func (m Model) statusLine() string {
	if m.err != nil {
		return m.styles.Error.Render(fmt.Sprintf("Error: %v", m.err))
	}
	if m.running {
		return m.styles.Muted.Render("Generating...")
	}
	if m.usage != nil {
		return m.styles.Muted.Render(fmt.Sprintf(
			"%d prompt / %d completion tokens · Enter to send, Ctrl+C to quit",
			m.usage.PromptTokens, m.usage.CompletionTokens))
	}
	return m.styles.Muted.Render("Enter to send, Ctrl+C to quit")
}

// startChat runs the exchange in a goroutine and signals completion.
func startChat(chat ChatFunc, ctx context.Context, messages []lumen.Message, eventCh chan<- lumen.ChatEvent, doneCh chan<- error) tea.Cmd {
	return func() tea.Msg {
		err := chat(ctx, messages, func(e lumen.ChatEvent) {
			select {
			case eventCh <- e:
			case <-ctx.Done():
			}
		})
		close(eventCh)
		doneCh <- err
		return nil
	}
}

// listenForEvent waits for the next event from the channel. When the
// channel closes it reads the error from doneCh and returns ChatDoneMsg.
func listenForEvent(ch <-chan lumen.ChatEvent, doneCh <-chan error) tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-ch
		if !ok {
			return ChatDoneMsg{Err: <-doneCh}
		}
		return StreamEventMsg{Event: evt}
	}
}
