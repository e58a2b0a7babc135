package lumen

import "context"

// TaskTokenization splits a text into the tokens a model operates on.
type TaskTokenization struct {
	// The text to tokenize.
	Prompt string
	// Return the token strings.
	Tokens bool
	// Return the numeric token ids.
	TokenIDs bool
}

type tokenizationBody struct {
	Model    string `json:"model"`
	Prompt   string `json:"prompt"`
	Tokens   bool   `json:"tokens"`
	TokenIDs bool   `json:"token_ids"`
}

// TokenizationOutput holds the requested token views; a view not asked
// for stays nil.
type TokenizationOutput struct {
	Tokens   []string `json:"tokens"`
	TokenIDs []uint32 `json:"token_ids"`
}

// Plan implements [Task].
func (t TaskTokenization) Plan(model string) RequestSpec {
	return postSpec("/tokenize", tokenizationBody{
		Model:    model,
		Prompt:   t.Prompt,
		Tokens:   t.Tokens,
		TokenIDs: t.TokenIDs,
	})
}

// Output implements [Task].
func (t TaskTokenization) Output(body TokenizationOutput) TokenizationOutput {
	return body
}

// TaskDetokenization turns token ids back into text.
type TaskDetokenization struct {
	TokenIDs []uint32
}

type detokenizationBody struct {
	Model    string   `json:"model"`
	TokenIDs []uint32 `json:"token_ids"`
}

// DetokenizationOutput is the text a token id sequence represents.
type DetokenizationOutput struct {
	Result string `json:"result"`
}

// Plan implements [Task].
func (t TaskDetokenization) Plan(model string) RequestSpec {
	return postSpec("/detokenize", detokenizationBody{Model: model, TokenIDs: t.TokenIDs})
}

// Output implements [Task].
func (t TaskDetokenization) Output(body DetokenizationOutput) DetokenizationOutput {
	return body
}

// Tokenize splits a text into tokens using the given model's tokenizer.
func (c *Client) Tokenize(ctx context.Context, model string, task TaskTokenization, opts ...RequestOption) (TokenizationOutput, error) {
	return Do(ctx, c, model, task, opts...)
}

// Detokenize turns token ids back into text using the given model's
// tokenizer.
func (c *Client) Detokenize(ctx context.Context, model string, task TaskDetokenization, opts ...RequestOption) (DetokenizationOutput, error) {
	return Do(ctx, c, model, task, opts...)
}
