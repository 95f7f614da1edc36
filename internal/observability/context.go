package observability

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// DetachTraceContext copies the span of src into base so background work
// keeps the caller's trace while following base's cancellation.
func DetachTraceContext(src, base context.Context) context.Context {
	sc := trace.SpanContextFromContext(src)
	if !sc.IsValid() {
		return base
	}
	return trace.ContextWithRemoteSpanContext(base, sc)
}
