// Package mock provides test doubles for lumen task interfaces using
// function fields, plus scripted HTTP handlers for exercising the client
// against httptest servers.
package mock

import (
	lumen "github.com/lumenlabs/lumen-go"
)

// Task is a test double for lumen.Task.
// Set the function fields for the methods you need. PlanFn panics when
// nil to catch missing setup; OutputFn is nil-safe and passes the body
// through unchanged when Body and Output are the same type.
type Task[B, O any] struct {
	PlanFn   func(model string) lumen.RequestSpec
	OutputFn func(body B) O
}

// Plan delegates to PlanFn.
func (t Task[B, O]) Plan(model string) lumen.RequestSpec {
	return t.PlanFn(model)
}

// Output delegates to OutputFn. When OutputFn is nil the body is
// converted directly, which only succeeds if O and B are identical.
func (t Task[B, O]) Output(body B) O {
	if t.OutputFn == nil {
		return any(body).(O)
	}
	return t.OutputFn(body)
}

// StreamTask is a test double for lumen.StreamTask.
// PlanStreamFn panics when nil; TranslateFn is nil-safe and passes the
// body through when Body and Event are the same type.
type StreamTask[B, E any] struct {
	PlanStreamFn func(model string) lumen.RequestSpec
	TranslateFn  func(body B) (E, bool)
}

// PlanStream delegates to PlanStreamFn.
func (t StreamTask[B, E]) PlanStream(model string) lumen.RequestSpec {
	return t.PlanStreamFn(model)
}

// Translate delegates to TranslateFn.
func (t StreamTask[B, E]) Translate(body B) (E, bool) {
	if t.TranslateFn == nil {
		return any(body).(E), true
	}
	return t.TranslateFn(body)
}
