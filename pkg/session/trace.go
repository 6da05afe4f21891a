package session

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span names.
const (
	spanTick   = "mapsync.tick"
	spanResync = "mapsync.resync"
)

// tracer wraps the OpenTelemetry tracer resolved from the global provider.
// With no provider configured the spans are no-ops.
type tracer struct {
	t trace.Tracer
}

func newTracer(name string) tracer {
	return tracer{t: otel.Tracer(name)}
}

func (t tracer) start(ctx context.Context, name, role string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("mapsync.role", role))
	return t.t.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// finish records err on span, if any, and ends it.
func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
