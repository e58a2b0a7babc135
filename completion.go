package lumen

import "context"

// TaskCompletion completes a prompt, e.g. continues a text. The zero
// values of Stopping and Sampling leave the behavior to the model:
// generation runs until the context window is exhausted and always picks
// the most likely token.
type TaskCompletion struct {
	// The prompt to be completed. Unconditional completion can be started
	// with an empty text.
	Prompt Prompt
	// Controls in which circumstances the model stops generating.
	Stopping Stopping
	// Controls how tokens are selected for the completion.
	Sampling Sampling
	// Include special tokens (e.g. <|endoftext|>) in the completion. The
	// service returns the unoptimized raw completion alongside the normal
	// one; setting this substitutes the raw text in outputs and deltas.
	SpecialTokens bool
}

// CompletionFromText is a convenience constructor completing a plain text
// with default stopping and sampling.
func CompletionFromText(text string) TaskCompletion {
	return TaskCompletion{Prompt: TextPrompt(text)}
}

// Stopping controls the conditions under which a model stops generating.
type Stopping struct {
	// Maximum number of tokens to generate. Zero imposes no limit beyond
	// the model's technical one, usually its context window.
	MaximumTokens int
	// Strings which stop generation when the model produces them. Helpful
	// in structured texts, e.g. "Question:" in an alternating Q/A prompt.
	StopSequences []string
}

// StopAfter limits generation to at most n tokens.
func StopAfter(n int) Stopping {
	return Stopping{MaximumTokens: n}
}

// Sampling controls how tokens are selected for the completion. The zero
// value always chooses the most likely token.
type Sampling struct {
	// Encourages the model to produce less probable outputs, expected
	// between 0 and 1. Zero leaves the choice to the model.
	Temperature float64
	// Randomly selects the next token from the k most likely options.
	TopK int
	// Randomly selects the next token from the smallest set of tokens
	// whose cumulative probability exceeds top_p.
	TopP float64
	// Decreases (or, if negative, increases) the likelihood of repeating
	// tokens already present in the completion. Cumulative.
	FrequencyPenalty float64
}

type completionBody struct {
	Model            string   `json:"model"`
	Prompt           Prompt   `json:"prompt"`
	MaximumTokens    int      `json:"maximum_tokens,omitempty"`
	StopSequences    []string `json:"stop_sequences,omitempty"`
	Temperature      float64  `json:"temperature,omitempty"`
	TopK             int      `json:"top_k,omitempty"`
	TopP             float64  `json:"top_p,omitempty"`
	FrequencyPenalty float64  `json:"frequency_penalty,omitempty"`
	Stream           bool     `json:"stream,omitempty"`
	RawCompletion    bool     `json:"raw_completion,omitempty"`
}

func (t TaskCompletion) body(model string, stream bool) completionBody {
	return completionBody{
		Model:            model,
		Prompt:           t.Prompt,
		MaximumTokens:    t.Stopping.MaximumTokens,
		StopSequences:    t.Stopping.StopSequences,
		Temperature:      t.Sampling.Temperature,
		TopK:             t.Sampling.TopK,
		TopP:             t.Sampling.TopP,
		FrequencyPenalty: t.Sampling.FrequencyPenalty,
		Stream:           stream,
		RawCompletion:    t.SpecialTokens,
	}
}

// CompletionResponse is the wire shape of a non-streaming completion.
type CompletionResponse struct {
	ModelVersion string `json:"model_version"`
	Completions  []struct {
		Completion    string `json:"completion"`
		FinishReason  string `json:"finish_reason"`
		RawCompletion string `json:"raw_completion"`
	} `json:"completions"`
}

// CompletionOutput is the completion and meta information returned by a
// completion task.
type CompletionOutput struct {
	Completion   string
	FinishReason string
}

// Plan implements [Task].
func (t TaskCompletion) Plan(model string) RequestSpec {
	return postSpec("/complete", t.body(model, false))
}

// Output implements [Task].
func (t TaskCompletion) Output(body CompletionResponse) CompletionOutput {
	if len(body.Completions) == 0 {
		return CompletionOutput{}
	}
	last := body.Completions[len(body.Completions)-1]
	out := CompletionOutput{Completion: last.Completion, FinishReason: last.FinishReason}
	if t.SpecialTokens {
		out.Completion = last.RawCompletion
	}
	return out
}

// CompletionEvent is one event of a completion stream. Implementations
// are [CompletionDelta], [CompletionFinished] and [CompletionSummary].
type CompletionEvent interface {
	completionEvent()
}

// CompletionDelta carries a fragment of generated text.
type CompletionDelta struct {
	// Index of the stream this fragment belongs to. Relevant only when
	// multiple completion streams are requested.
	Index      int
	Completion string
}

func (CompletionDelta) completionEvent() {}

// CompletionFinished reports why a completion stream stopped.
type CompletionFinished struct {
	ModelVersion string
	FinishReason string
}

func (CompletionFinished) completionEvent() {}

// CompletionSummary reports token usage across all streams of the
// request, sent once at the end.
type CompletionSummary struct {
	PromptTokens    int
	GeneratedTokens int
}

func (CompletionSummary) completionEvent() {}

// completionEventBody is the tagged wire union for stream payloads.
type completionEventBody struct {
	Type                 string `json:"type"`
	Index                int    `json:"index"`
	Completion           string `json:"completion"`
	RawCompletion        string `json:"raw_completion"`
	ModelVersion         string `json:"model_version"`
	FinishReason         string `json:"finish_reason"`
	NumTokensPromptTotal int    `json:"num_tokens_prompt_total"`
	NumTokensGenerated   int    `json:"num_tokens_generated"`
}

// PlanStream implements [StreamTask].
func (t TaskCompletion) PlanStream(model string) RequestSpec {
	return postSpec("/complete", t.body(model, true))
}

// Translate implements [StreamTask].
func (t TaskCompletion) Translate(body completionEventBody) (CompletionEvent, bool) {
	switch body.Type {
	case "stream_chunk":
		text := body.Completion
		if t.SpecialTokens {
			text = body.RawCompletion
		}
		return CompletionDelta{Index: body.Index, Completion: text}, true
	case "stream_summary":
		return CompletionFinished{ModelVersion: body.ModelVersion, FinishReason: body.FinishReason}, true
	case "completion_summary":
		return CompletionSummary{
			PromptTokens:    body.NumTokensPromptTotal,
			GeneratedTokens: body.NumTokensGenerated,
		}, true
	default:
		return nil, false
	}
}

// Complete runs a completion task to completion and returns the result.
func (c *Client) Complete(ctx context.Context, model string, task TaskCompletion, opts ...RequestOption) (CompletionOutput, error) {
	return Do(ctx, c, model, task, opts...)
}

// CompleteStream starts a streaming completion. The caller must close the
// returned stream.
func (c *Client) CompleteStream(ctx context.Context, model string, task TaskCompletion, opts ...RequestOption) (*EventStream[CompletionEvent], error) {
	return Stream(ctx, c, model, task, opts...)
}
