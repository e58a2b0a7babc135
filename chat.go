package lumen

import "context"

// Message is one turn of a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UserMessage builds a message with role "user".
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// AssistantMessage builds a message with role "assistant".
func AssistantMessage(content string) Message {
	return Message{Role: "assistant", Content: content}
}

// SystemMessage builds a message with role "system".
func SystemMessage(content string) Message {
	return Message{Role: "system", Content: content}
}

// TaskChat completes a chat conversation.
type TaskChat struct {
	// The messages comprising the conversation so far.
	Messages []Message
	// Controls in which circumstances the model stops generating.
	Stopping Stopping
	// Controls how tokens are selected for the completion.
	Sampling ChatSampling
	// Controls log-probability reporting for the sampled tokens.
	Logprobs Logprobs
}

// ChatWithMessages is a convenience constructor leaving all optional
// attributes unset.
func ChatWithMessages(messages ...Message) TaskChat {
	return TaskChat{Messages: messages}
}

// ChatSampling controls how tokens are selected for a chat completion.
// Unlike [Sampling] it does not support top_k. The zero value always
// chooses the most likely token.
type ChatSampling struct {
	// Encourages the model to produce less probable outputs, expected
	// between 0 and 1.
	Temperature float64
	// Randomly selects the next token from the smallest set of tokens
	// whose cumulative probability exceeds top_p.
	TopP float64
	// Decreases (or, if negative, increases) the likelihood of repeating
	// tokens already present in the completion. Cumulative.
	FrequencyPenalty float64
	// Reduces the likelihood of generating tokens already present in the
	// text, independent of how often they appear.
	PresencePenalty float64
}

// Usage reports the token counts of a chat request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type chatStreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type chatBody struct {
	Model            string             `json:"model"`
	Messages         []Message          `json:"messages"`
	MaxTokens        int                `json:"max_tokens,omitempty"`
	Stop             []string           `json:"stop,omitempty"`
	Temperature      float64            `json:"temperature,omitempty"`
	TopP             float64            `json:"top_p,omitempty"`
	FrequencyPenalty float64            `json:"frequency_penalty,omitempty"`
	PresencePenalty  float64            `json:"presence_penalty,omitempty"`
	Stream           bool               `json:"stream,omitempty"`
	Logprobs         bool               `json:"logprobs,omitempty"`
	TopLogprobs      *int               `json:"top_logprobs,omitempty"`
	StreamOptions    *chatStreamOptions `json:"stream_options,omitempty"`
}

func (t TaskChat) body(model string, stream bool) chatBody {
	b := chatBody{
		Model:            model,
		Messages:         t.Messages,
		MaxTokens:        t.Stopping.MaximumTokens,
		Stop:             t.Stopping.StopSequences,
		Temperature:      t.Sampling.Temperature,
		TopP:             t.Sampling.TopP,
		FrequencyPenalty: t.Sampling.FrequencyPenalty,
		PresencePenalty:  t.Sampling.PresencePenalty,
		Logprobs:         t.Logprobs.enabled(),
		TopLogprobs:      t.Logprobs.topCount(),
	}
	if stream {
		b.Stream = true
		// Usage costs nothing extra and the summary event depends on it.
		b.StreamOptions = &chatStreamOptions{IncludeUsage: true}
	}
	return b
}

type logprobContent struct {
	Content []Distribution `json:"content"`
}

// ChatResponse is the wire shape of a non-streaming chat completion.
type ChatResponse struct {
	Choices []struct {
		Message      Message         `json:"message"`
		FinishReason string          `json:"finish_reason"`
		Logprobs     *logprobContent `json:"logprobs"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

// ChatOutput is the assistant reply and meta information returned by a
// chat task.
type ChatOutput struct {
	Message      Message
	FinishReason string
	// Log probabilities for the sampled and top tokens, filled when the
	// task requested them.
	Logprobs []Distribution
	Usage    Usage
}

// Plan implements [Task].
func (t TaskChat) Plan(model string) RequestSpec {
	return postSpec("/chat/completions", t.body(model, false))
}

// Output implements [Task].
func (t TaskChat) Output(body ChatResponse) ChatOutput {
	out := ChatOutput{Usage: body.Usage}
	if len(body.Choices) == 0 {
		return out
	}
	choice := body.Choices[len(body.Choices)-1]
	out.Message = choice.Message
	out.FinishReason = choice.FinishReason
	if choice.Logprobs != nil {
		out.Logprobs = choice.Logprobs.Content
		t.normalizeLogprobs(out.Logprobs)
	}
	return out
}

// ChatEvent is one event of a chat completion stream. Implementations
// are [MessageStart], [MessageDelta], [MessageEnd] and [ChatSummary].
type ChatEvent interface {
	chatEvent()
}

// MessageStart opens the assistant message. It is the first event of
// every chat stream; the role is always "assistant".
type MessageStart struct {
	Role string
}

func (MessageStart) chatEvent() {}

// MessageDelta carries a fragment of the assistant message.
type MessageDelta struct {
	Content string
	// Log probabilities of the fragment's tokens, filled when the task
	// requested them.
	Logprobs []Distribution
}

func (MessageDelta) chatEvent() {}

// MessageEnd reports why the model stopped generating.
type MessageEnd struct {
	Reason string
}

func (MessageEnd) chatEvent() {}

// ChatSummary reports token usage for the whole request, sent once after
// the message ended.
type ChatSummary struct {
	Usage Usage
}

func (ChatSummary) chatEvent() {}

// ChatStreamResponse is the wire shape of one chat stream payload. It
// carries either one choice or, on the final usage payload, an empty
// choice list.
type ChatStreamResponse struct {
	Choices []struct {
		Delta struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"delta"`
		Logprobs     *logprobContent `json:"logprobs"`
		FinishReason string          `json:"finish_reason"`
	} `json:"choices"`
	Usage *Usage `json:"usage"`
}

// PlanStream implements [StreamTask].
func (t TaskChat) PlanStream(model string) RequestSpec {
	return postSpec("/chat/completions", t.body(model, true))
}

// Translate implements [StreamTask]. A payload with usage set becomes a
// summary, a finish reason becomes a message end, a delta announcing the
// role becomes a message start (content on that fragment, if any, is not
// forwarded) and every other delta becomes a content fragment.
func (t TaskChat) Translate(body ChatStreamResponse) (ChatEvent, bool) {
	if body.Usage != nil {
		return ChatSummary{Usage: *body.Usage}, true
	}
	if len(body.Choices) == 0 {
		return nil, false
	}
	choice := body.Choices[len(body.Choices)-1]
	if choice.FinishReason != "" {
		return MessageEnd{Reason: choice.FinishReason}, true
	}
	if choice.Delta.Role != "" {
		return MessageStart{Role: choice.Delta.Role}, true
	}
	event := MessageDelta{Content: choice.Delta.Content}
	if choice.Logprobs != nil {
		event.Logprobs = choice.Logprobs.Content
		t.normalizeLogprobs(event.Logprobs)
	}
	return event, true
}

func (t TaskChat) normalizeLogprobs(dists []Distribution) {
	if n := t.Logprobs.topCount(); n != nil {
		normalizeDistributions(dists, *n)
	}
}

// Chat runs a chat task to completion and returns the assistant reply.
func (c *Client) Chat(ctx context.Context, model string, task TaskChat, opts ...RequestOption) (ChatOutput, error) {
	return Do(ctx, c, model, task, opts...)
}

// ChatStream starts a streaming chat completion. The caller must close
// the returned stream.
func (c *Client) ChatStream(ctx context.Context, model string, task TaskChat, opts ...RequestOption) (*EventStream[ChatEvent], error) {
	return Stream(ctx, c, model, task, opts...)
}
