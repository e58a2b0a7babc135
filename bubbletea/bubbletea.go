// Package bubbletea provides a Bubble Tea TUI for streaming chat against
// the Lumen inference API.
package bubbletea

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	lumen "github.com/lumenlabs/lumen-go"
)

// ChatFunc runs one streaming chat exchange. The onEvent callback is
// called for each stream event. The function blocks until the stream is
// drained or the context is cancelled.
type ChatFunc func(ctx context.Context, messages []lumen.Message, onEvent func(lumen.ChatEvent)) error

// Run creates and runs the Bubble Tea TUI program. It blocks until the
// program exits and returns the final model state. The context is used for
// graceful shutdown; when cancelled, the program quits.
func Run(ctx context.Context, m Model) (Model, error) {
	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	final, err := p.Run()
	if err != nil {
		return m, err
	}
	if fm, ok := final.(Model); ok {
		return fm, nil
	}
	return m, nil
}

// StreamEventMsg wraps a chat stream event for delivery to the model.
type StreamEventMsg struct {
	Event lumen.ChatEvent
}

// ChatDoneMsg signals that the chat exchange has completed.
type ChatDoneMsg struct {
	Err error
}
