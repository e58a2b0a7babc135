package lumen

import "context"

// Representation selects the semantic representation an embedding is
// optimized for.
type Representation string

const (
	// Symmetric embeddings are compared with other symmetric embeddings,
	// e.g. for clustering, classification or similarity.
	Symmetric Representation = "symmetric"
	// Document embeddings are optimized for larger pieces of text that
	// queries are compared against.
	Document Representation = "document"
	// Query embeddings are optimized for short texts such as questions or
	// keywords, compared against document embeddings.
	Query Representation = "query"
)

// TaskSemanticEmbedding embeds a prompt for downstream tasks such as
// search or classification.
type TaskSemanticEmbedding struct {
	// The prompt (usually text) to be embedded.
	Prompt Prompt `json:"prompt"`
	// Semantic representation to embed the prompt with, governed by the
	// use case.
	Representation Representation `json:"representation"`
	// Optionally compress the embedding to fewer dimensions. 128 is
	// supported by every model and trades a small accuracy drop for much
	// faster comparisons.
	CompressToSize int `json:"compress_to_size,omitempty"`
}

// EmbeddingOutput is a single embedding, full-size or compressed.
type EmbeddingOutput struct {
	Embedding []float32 `json:"embedding"`
}

type semanticEmbeddingBody struct {
	Model string `json:"model"`
	TaskSemanticEmbedding
}

// Plan implements [Task].
func (t TaskSemanticEmbedding) Plan(model string) RequestSpec {
	return postSpec("/semantic_embed", semanticEmbeddingBody{Model: model, TaskSemanticEmbedding: t})
}

// Output implements [Task].
func (t TaskSemanticEmbedding) Output(body EmbeddingOutput) EmbeddingOutput {
	return body
}

// TaskBatchSemanticEmbedding embeds multiple prompts in one request.
type TaskBatchSemanticEmbedding struct {
	// The prompts to be embedded.
	Prompts []Prompt `json:"prompts"`
	// Semantic representation to embed the prompts with.
	Representation Representation `json:"representation"`
	// Optionally compress the embeddings to fewer dimensions; see
	// [TaskSemanticEmbedding.CompressToSize].
	CompressToSize int `json:"compress_to_size,omitempty"`
}

// BatchEmbeddingOutput holds one embedding per input prompt, in order.
type BatchEmbeddingOutput struct {
	Embeddings [][]float32 `json:"embeddings"`
}

type batchSemanticEmbeddingBody struct {
	Model string `json:"model"`
	TaskBatchSemanticEmbedding
}

// Plan implements [Task].
func (t TaskBatchSemanticEmbedding) Plan(model string) RequestSpec {
	return postSpec("/batch_semantic_embed", batchSemanticEmbeddingBody{Model: model, TaskBatchSemanticEmbedding: t})
}

// Output implements [Task].
func (t TaskBatchSemanticEmbedding) Output(body BatchEmbeddingOutput) BatchEmbeddingOutput {
	return body
}

// TaskInstructableEmbedding embeds a prompt steered by an instruction.
// Instructions help the model understand nuances of the data and lead to
// embeddings more useful for the use case.
type TaskInstructableEmbedding struct {
	// Steers the model; may be empty.
	Instruction string `json:"instruction"`
	// The prompt (usually text) to be embedded.
	Prompt Prompt `json:"input"`
	// Return normalized embeddings, saving compute when applying cosine
	// similarity.
	Normalize bool `json:"normalize,omitempty"`
}

type instructableEmbeddingBody struct {
	Model string `json:"model"`
	TaskInstructableEmbedding
}

// Plan implements [Task].
func (t TaskInstructableEmbedding) Plan(model string) RequestSpec {
	return postSpec("/instructable_embed", instructableEmbeddingBody{Model: model, TaskInstructableEmbedding: t})
}

// Output implements [Task].
func (t TaskInstructableEmbedding) Output(body EmbeddingOutput) EmbeddingOutput {
	return body
}

// SemanticEmbed embeds a single prompt.
func (c *Client) SemanticEmbed(ctx context.Context, model string, task TaskSemanticEmbedding, opts ...RequestOption) (EmbeddingOutput, error) {
	return Do(ctx, c, model, task, opts...)
}

// BatchSemanticEmbed embeds multiple prompts in one request.
func (c *Client) BatchSemanticEmbed(ctx context.Context, model string, task TaskBatchSemanticEmbedding, opts ...RequestOption) (BatchEmbeddingOutput, error) {
	return Do(ctx, c, model, task, opts...)
}

// InstructableEmbed embeds a prompt steered by an instruction.
func (c *Client) InstructableEmbed(ctx context.Context, model string, task TaskInstructableEmbedding, opts ...RequestOption) (EmbeddingOutput, error) {
	return Do(ctx, c, model, task, opts...)
}
