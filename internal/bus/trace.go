package bus

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// envelope wraps a message payload with W3C trace context headers so a span
// started on the publisher side links to the delivery span on the subscriber.
type envelope struct {
	Headers map[string]string `json:"headers,omitempty"`
	Payload json.RawMessage   `json:"payload"`
}

func wrapPayload(ctx context.Context, payload []byte) []byte {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	wrapped, err := json.Marshal(envelope{Headers: carrier, Payload: payload})
	if err != nil {
		return payload
	}
	return wrapped
}

// unwrapPayload extracts trace context and the inner payload. Raw messages
// published without an envelope (e.g. by a foreign client) pass through as-is.
func unwrapPayload(ctx context.Context, raw []byte) (context.Context, []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || len(env.Payload) == 0 {
		return ctx, raw
	}
	if len(env.Headers) > 0 {
		ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(env.Headers))
	}
	return ctx, env.Payload
}

// deliver unwraps a received message and invokes the handler inside a span.
func deliver(ctx context.Context, system, topic string, raw []byte, handler Handler) {
	msgCtx, payload := unwrapPayload(ctx, raw)
	spanCtx, span := otel.Tracer("bus").Start(msgCtx, "bus.deliver",
		trace.WithAttributes(
			attribute.String("messaging.system", system),
			attribute.String("messaging.destination", topic),
		),
	)
	handler(spanCtx, payload)
	span.End()
}
