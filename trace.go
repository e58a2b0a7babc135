package lumen

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/propagation"
)

// propagator injects W3C trace context so the scheduler can correlate
// its own spans with the caller's trace. Scoped to outgoing request
// headers only; the globally registered propagator is not consulted.
var propagator = propagation.TraceContext{}

func injectTraceContext(ctx context.Context, h http.Header) {
	propagator.Inject(ctx, propagation.HeaderCarrier(h))
}
