package bubbletea_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lumen "github.com/lumenlabs/lumen-go"
	bt "github.com/lumenlabs/lumen-go/bubbletea"
)

func nopChat(ctx context.Context, messages []lumen.Message, onEvent func(lumen.ChatEvent)) error {
	return nil
}

// scriptedChat emits the given events and returns.
func scriptedChat(events ...lumen.ChatEvent) bt.ChatFunc {
	return func(ctx context.Context, messages []lumen.Message, onEvent func(lumen.ChatEvent)) error {
		for _, e := range events {
			onEvent(e)
		}
		return nil
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	m := bt.New(nopChat, "pharia-1-llm-7b")

	assert.False(t, m.Running())
	assert.NoError(t, m.Err())
	assert.Empty(t, m.History())
}

func TestModel_WithHistorySeedsTranscript(t *testing.T) {
	t.Parallel()

	m := bt.New(nopChat, "pharia-1-llm-7b").WithHistory([]lumen.Message{
		lumen.SystemMessage("Be terse."),
		lumen.UserMessage("hi"),
		lumen.AssistantMessage("hello"),
	})

	require.Len(t, m.History(), 3)

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	model, ok := updated.(bt.Model)
	require.True(t, ok)

	view := model.View()
	assert.Contains(t, view, "hi")
	assert.Contains(t, view, "hello")
	// System messages ride along in the history but are not shown.
	assert.NotContains(t, view, "Be terse.")
}

func TestModel_WindowSizeInitializesViewport(t *testing.T) {
	t.Parallel()

	m := bt.New(nopChat, "pharia-1-llm-7b")
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	model, ok := updated.(bt.Model)
	require.True(t, ok)

	view := model.View()
	assert.NotEmpty(t, view)
	assert.Contains(t, view, "Enter to send")
}

func TestModel_StreamedReplyRendersAndCommits(t *testing.T) {
	t.Parallel()

	chat := scriptedChat(
		lumen.MessageStart{Role: "assistant"},
		lumen.MessageDelta{Content: "Hello"},
		lumen.MessageDelta{Content: " there!"},
		lumen.MessageEnd{Reason: "stop"},
		lumen.ChatSummary{Usage: lumen.Usage{PromptTokens: 4, CompletionTokens: 3}},
	)
	m := bt.New(chat, "pharia-1-llm-7b")

	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(80, 24))

	tm.Type("hi")
	tm.Send(tea.KeyMsg{Type: tea.KeyEnter})

	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return bytes.Contains(out, []byte("Hello there!")) &&
			bytes.Contains(out, []byte("Enter to send"))
	}, teatest.WithDuration(5*time.Second))

	tm.Send(tea.KeyMsg{Type: tea.KeyCtrlC})

	fm := tm.FinalModel(t, teatest.WithFinalTimeout(5*time.Second))
	final, ok := fm.(bt.Model)
	require.True(t, ok)
	assert.False(t, final.Running())
	assert.NoError(t, final.Err())

	// History holds the user message plus the committed reply.
	require.Len(t, final.History(), 2)
	assert.Equal(t, lumen.UserMessage("hi"), final.History()[0])
	assert.Equal(t, lumen.AssistantMessage("Hello there!"), final.History()[1])
}

func TestModel_ChatErrorShowsInStatusLine(t *testing.T) {
	t.Parallel()

	chat := func(ctx context.Context, messages []lumen.Message, onEvent func(lumen.ChatEvent)) error {
		return lumen.ErrBusy
	}
	m := bt.New(chat, "pharia-1-llm-7b")

	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(80, 24))

	tm.Type("hi")
	tm.Send(tea.KeyMsg{Type: tea.KeyEnter})

	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return bytes.Contains(out, []byte("Error:"))
	}, teatest.WithDuration(5*time.Second))

	tm.Send(tea.KeyMsg{Type: tea.KeyCtrlC})

	fm := tm.FinalModel(t, teatest.WithFinalTimeout(5*time.Second))
	final, ok := fm.(bt.Model)
	require.True(t, ok)
	assert.ErrorIs(t, final.Err(), lumen.ErrBusy)
}

func TestModel_EnterWithEmptyInputIsNoop(t *testing.T) {
	t.Parallel()

	m := bt.New(nopChat, "pharia-1-llm-7b")
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	model := updated.(bt.Model)

	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	model = updated.(bt.Model)

	assert.False(t, model.Running())
	assert.Empty(t, model.History())
}
