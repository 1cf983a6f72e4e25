package stopbus

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/lockp111/go-stopbus"

// startSpan opens the span of one call, parented on ctx.
func (b *Bus) startSpan(ctx context.Context, node *CallEvent) (context.Context, trace.Span) {
	return b.tracer.Start(ctx, node.Event,
		trace.WithAttributes(
			attribute.String("stopbus.bus", b.cfg.name),
			attribute.String("stopbus.call_id", node.ID.String()),
			attribute.String("stopbus.arg_type", node.ArgType),
			attribute.String("stopbus.return_type", node.ReturnType),
		),
	)
}

// endSpan closes span with the resolution of node.
func endSpan(span trace.Span, node *CallEvent) {
	span.SetAttributes(
		attribute.String("stopbus.handler", node.Handler),
		attribute.String("stopbus.resolution", node.Resolution.Kind.String()),
	)
	switch node.Resolution.Kind {
	case Success:
		span.SetStatus(codes.Ok, "")
	case BusError:
		if node.Resolution.Err != nil {
			span.RecordError(node.Resolution.Err)
		}
		span.SetStatus(codes.Error, node.Resolution.String())
	default:
		span.SetStatus(codes.Error, node.Resolution.String())
	}
	span.End()
}
