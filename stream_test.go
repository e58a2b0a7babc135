package lumen_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lumen "github.com/lumenlabs/lumen-go"
)

// rawChunkHandler writes each chunk verbatim and flushes in between, so
// frame boundaries and chunk boundaries can be controlled independently.
func rawChunkHandler(chunks ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)
		for _, chunk := range chunks {
			fmt.Fprint(w, chunk)
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

func completionStream(t *testing.T, handler http.Handler) *lumen.EventStream[lumen.CompletionEvent] {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := lumen.New("test-token", lumen.WithBaseURL(srv.URL))
	stream, err := client.CompleteStream(context.Background(), "pharia-1-llm-7b", lumen.CompletionFromText("Hi"))
	require.NoError(t, err)
	t.Cleanup(func() { stream.Close() })
	return stream
}

func TestStream_CompletionEvents(t *testing.T) {
	t.Parallel()
	s := completionStream(t, rawChunkHandler(
		"data: {\"type\":\"stream_chunk\",\"index\":0,\"completion\":\"Hello\"}\n\n",
		"data: {\"type\":\"stream_chunk\",\"index\":0,\"completion\":\" world\"}\n\n",
		"data: {\"type\":\"stream_summary\",\"model_version\":\"2024-01\",\"finish_reason\":\"maximum_tokens\"}\n\n",
		"data: {\"type\":\"completion_summary\",\"num_tokens_prompt_total\":3,\"num_tokens_generated\":7}\n\n",
		"data: [DONE]\n\n",
	))

	events, err := s.Collect()
	require.NoError(t, err)

	require.Len(t, events, 4)
	assert.Equal(t, lumen.CompletionDelta{Index: 0, Completion: "Hello"}, events[0])
	assert.Equal(t, lumen.CompletionDelta{Index: 0, Completion: " world"}, events[1])
	assert.Equal(t, lumen.CompletionFinished{ModelVersion: "2024-01", FinishReason: "maximum_tokens"}, events[2])
	assert.Equal(t, lumen.CompletionSummary{PromptTokens: 3, GeneratedTokens: 7}, events[3])
}

func TestStream_FrameSplitAcrossChunks(t *testing.T) {
	t.Parallel()
	// One frame cut mid-payload: the assembler must not emit anything
	// until the terminator arrives.
	s := completionStream(t, rawChunkHandler(
		"data: {\"type\":\"stream_chunk\",\"ind",
		"ex\":0,\"completion\":\"Hi\"}\n\n",
		"data: [DONE]\n\n",
	))

	events, err := s.Collect()
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, lumen.CompletionDelta{Index: 0, Completion: "Hi"}, events[0])
}

func TestStream_OrderPreserved(t *testing.T) {
	t.Parallel()
	var chunks []string
	for i := 0; i < 20; i++ {
		chunks = append(chunks, fmt.Sprintf("data: {\"type\":\"stream_chunk\",\"index\":0,\"completion\":\"%02d\"}\n\n", i))
	}
	chunks = append(chunks, "data: [DONE]\n\n")
	s := completionStream(t, rawChunkHandler(chunks...))

	events, err := s.Collect()
	require.NoError(t, err)

	require.Len(t, events, 20)
	for i, evt := range events {
		assert.Equal(t, lumen.CompletionDelta{Index: 0, Completion: fmt.Sprintf("%02d", i)}, evt)
	}
}

func TestStream_DecodeErrorIsRecoverable(t *testing.T) {
	t.Parallel()
	s := completionStream(t, rawChunkHandler(
		"data: {\"type\":\"stream_chunk\",\"index\":0,\"completion\":\"one\"}\n\n",
		"data: {not json\n\n",
		"data: {\"type\":\"stream_chunk\",\"index\":0,\"completion\":\"two\"}\n\n",
		"data: [DONE]\n\n",
	))

	first, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, lumen.CompletionDelta{Index: 0, Completion: "one"}, first)

	_, err = s.Next()
	var decodeErr *lumen.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "{not json", decodeErr.Raw)

	second, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, lumen.CompletionDelta{Index: 0, Completion: "two"}, second)

	_, err = s.Next()
	assert.Equal(t, io.EOF, err)
}

func TestStream_DoneYieldsNoEvent(t *testing.T) {
	t.Parallel()
	s := completionStream(t, rawChunkHandler("data: [DONE]\n\n"))

	_, err := s.Next()
	assert.Equal(t, io.EOF, err)

	// Terminal state is sticky.
	_, err = s.Next()
	assert.Equal(t, io.EOF, err)
}

func TestStream_FramesBeforeDoneInSameChunkAreDelivered(t *testing.T) {
	t.Parallel()
	// Everything arrives in a single chunk. The frame before the
	// sentinel must still come out; the frame after it must not.
	s := completionStream(t, rawChunkHandler(
		"data: {\"type\":\"stream_chunk\",\"index\":0,\"completion\":\"kept\"}\n\n"+
			"data: [DONE]\n\n"+
			"data: {\"type\":\"stream_chunk\",\"index\":0,\"completion\":\"dropped\"}\n\n",
	))

	evt, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, lumen.CompletionDelta{Index: 0, Completion: "kept"}, evt)

	_, err = s.Next()
	assert.Equal(t, io.EOF, err)
}

func TestStream_FramesWithoutDataFieldAreSkipped(t *testing.T) {
	t.Parallel()
	s := completionStream(t, rawChunkHandler(
		": keep-alive\n\n",
		"event: ping\n\n",
		"data: {\"type\":\"stream_chunk\",\"index\":0,\"completion\":\"Hi\"}\n\n",
		"data: [DONE]\n\n",
	))

	events, err := s.Collect()
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, lumen.CompletionDelta{Index: 0, Completion: "Hi"}, events[0])
}

func TestStream_EndOfBodyWithoutSentinel(t *testing.T) {
	t.Parallel()
	// A server closing the body cleanly ends the stream without error.
	s := completionStream(t, rawChunkHandler(
		"data: {\"type\":\"stream_chunk\",\"index\":0,\"completion\":\"Hi\"}\n\n",
	))

	evt, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, lumen.CompletionDelta{Index: 0, Completion: "Hi"}, evt)

	_, err = s.Next()
	assert.Equal(t, io.EOF, err)
}

func TestStream_OpenFailsOnErrorStatus(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)
	client := lumen.New("test-token", lumen.WithBaseURL(srv.URL))

	_, err := client.CompleteStream(context.Background(), "pharia-1-llm-7b", lumen.CompletionFromText("Hi"))
	assert.ErrorIs(t, err, lumen.ErrTooManyRequests)
}

func TestStream_ContextCancellationIsTerminal(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "data: {\"type\":\"stream_chunk\",\"index\":0,\"completion\":\"Hi\"}\n\n")
		w.(http.Flusher).Flush()
		<-release
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithCancel(context.Background())
	client := lumen.New("test-token", lumen.WithBaseURL(srv.URL))
	s, err := client.CompleteStream(ctx, "pharia-1-llm-7b", lumen.CompletionFromText("Hi"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	evt, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, lumen.CompletionDelta{Index: 0, Completion: "Hi"}, evt)

	cancel()

	_, err = s.Next()
	require.Error(t, err)
	assert.NotEqual(t, io.EOF, err)

	// The error sticks on subsequent calls.
	_, errAgain := s.Next()
	assert.Equal(t, err, errAgain)
}

func TestStream_TimeoutMidStream(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "data: {\"type\":\"stream_chunk\",\"index\":0,\"completion\":\"Hi\"}\n\n")
		w.(http.Flusher).Flush()
		<-release
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	client := lumen.New("test-token", lumen.WithBaseURL(srv.URL))
	s, err := client.CompleteStream(context.Background(), "pharia-1-llm-7b",
		lumen.CompletionFromText("Hi"), lumen.WithTimeout(50*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	evt, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, lumen.CompletionDelta{Index: 0, Completion: "Hi"}, evt)

	_, err = s.Next()
	assert.ErrorIs(t, err, lumen.ErrTimeout)
}

func TestStream_SpecialTokensSubstituteRawCompletion(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(rawChunkHandler(
		"data: {\"type\":\"stream_chunk\",\"index\":0,\"completion\":\"Hi\",\"raw_completion\":\"Hi<|endoftext|>\"}\n\n",
		"data: [DONE]\n\n",
	))
	t.Cleanup(srv.Close)
	client := lumen.New("test-token", lumen.WithBaseURL(srv.URL))

	task := lumen.CompletionFromText("Hi")
	task.SpecialTokens = true
	s, err := client.CompleteStream(context.Background(), "pharia-1-llm-7b", task)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	events, err := s.Collect()
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, lumen.CompletionDelta{Index: 0, Completion: "Hi<|endoftext|>"}, events[0])
}

func TestStream_CloseBeforeDrainReleasesConnection(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	done := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer close(done)
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "data: {\"type\":\"stream_chunk\",\"index\":0,\"completion\":\"Hi\"}\n\n")
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	client := lumen.New("test-token", lumen.WithBaseURL(srv.URL))
	s, err := client.CompleteStream(context.Background(), "pharia-1-llm-7b", lumen.CompletionFromText("Hi"))
	require.NoError(t, err)

	require.NoError(t, s.Close())

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("server handler still running after Close")
	}
}
