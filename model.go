package lumen

import (
	"context"
	"net/http"
)

// ModelStatus is the availability of a configured model.
type ModelStatus string

const (
	// A matching worker is connected to serve the model.
	ModelAvailable ModelStatus = "available"
	// No worker has shown recent activity to serve the model.
	ModelUnavailable ModelStatus = "unavailable"
)

// CompletionType states whether a model supports completion requests.
type CompletionType string

const (
	CompletionNone CompletionType = "none"
	CompletionFull CompletionType = "full"
)

// EmbeddingType states which embedding endpoint a model supports.
type EmbeddingType string

const (
	EmbeddingNone         EmbeddingType = "none"
	EmbeddingRaw          EmbeddingType = "raw"
	EmbeddingSemantic     EmbeddingType = "semantic"
	EmbeddingInstructable EmbeddingType = "instructable"
)

// ModelSettings describes one model configured on the scheduler.
type ModelSettings struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Status      ModelStatus `json:"status"`
	// The embedding type supported by the model.
	EmbeddingType EmbeddingType `json:"embedding_type"`
	// Whether the chat endpoint supports this model.
	Chat bool `json:"chat"`
	// Whether the model is aligned so end users can be warned about its
	// limitations.
	Aligned        bool           `json:"aligned"`
	CompletionType CompletionType `json:"completion_type"`
	// A prompt template usable with this model.
	PromptTemplate string `json:"prompt_template"`
	// Whether this model supports semantic embeddings.
	SemanticEmbedding bool `json:"semantic_embedding"`
	MaxContextSize    int  `json:"max_context_size"`
	// Whether multimodal prompts are available to users.
	Multimodal bool `json:"multimodal"`
	// The worker type serving the model, e.g. "luminous" or "vllm".
	WorkerType string `json:"worker_type"`
}

// taskListModels addresses no model; the endpoint lists them all.
type taskListModels struct{}

func (taskListModels) Plan(string) RequestSpec {
	return RequestSpec{Method: http.MethodGet, Path: "/models"}
}

func (taskListModels) Output(body []ModelSettings) []ModelSettings {
	return body
}

// ListModels returns the models configured on the service.
func (c *Client) ListModels(ctx context.Context, opts ...RequestOption) ([]ModelSettings, error) {
	return Do(ctx, c, "", taskListModels{}, opts...)
}
