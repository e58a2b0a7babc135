package lumen

import "net/http"

// RequestSpec describes one HTTP request against the inference API.
// The client owns base URL, authentication, headers and query parameters;
// a task only declares where its body goes.
type RequestSpec struct {
	Method string // http.MethodPost unless stated otherwise
	Path   string // endpoint path, e.g. "/complete"
	Body   any    // JSON-marshaled request body; nil for bodiless requests
}

func postSpec(path string, body any) RequestSpec {
	return RequestSpec{Method: http.MethodPost, Path: path, Body: body}
}

// Task describes a single-shot inference task: how to build its request
// and how to turn the decoded response body into the caller-facing output.
//
// Body is the task's structured-response shape, Output its result shape.
// Implementing Task is all it takes to route a new endpoint through
// [Do]; no task-specific logic exists in the client itself.
type Task[Body, Output any] interface {
	// Plan produces the request specification for the given model.
	Plan(model string) RequestSpec

	// Output maps the decoded response body to the task's result.
	Output(body Body) Output
}

// StreamTask describes a streaming inference task. Body is the structured
// shape of one decoded stream payload; Event is the caller-facing event
// type.
//
// Translate returns ok=false for payloads that produce no caller-visible
// event (for example a pure preamble fragment); the driver skips those
// without special-casing which task produced them.
type StreamTask[Body, Event any] interface {
	// PlanStream produces the request specification for the given
	// model, with streaming enabled in the body.
	PlanStream(model string) RequestSpec

	// Translate maps one decoded stream payload to zero or one event.
	Translate(body Body) (event Event, ok bool)
}
