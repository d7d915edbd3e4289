package engine

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/freeeve/orderdesk/internal/engine"

// WithTracing wraps e so that every call runs inside an OpenTelemetry span.
// With no tracer provider registered the spans are no-ops.
func WithTracing(e Engine) Engine {
	return &tracedEngine{next: e, tracer: otel.Tracer(tracerName)}
}

type tracedEngine struct {
	next   Engine
	tracer trace.Tracer
}

func (t *tracedEngine) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "engine."+op, trace.WithAttributes(attrs...))
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if IsRejection(err) {
			span.SetAttributes(attribute.Bool("engine.rejected", true))
		}
	}
	span.End()
}

func (t *tracedEngine) Parties(ctx context.Context) ([]Party, error) {
	ctx, span := t.start(ctx, "Parties")
	parties, err := t.next.Parties(ctx)
	finish(span, err)
	return parties, err
}

func (t *tracedEngine) Units(ctx context.Context, party Party) ([]Unit, error) {
	ctx, span := t.start(ctx, "Units", attribute.String("party", string(party)))
	units, err := t.next.Units(ctx, party)
	finish(span, err)
	return units, err
}

func (t *tracedEngine) Orders(ctx context.Context, party Party) ([]string, error) {
	ctx, span := t.start(ctx, "Orders", attribute.String("party", string(party)))
	orders, err := t.next.Orders(ctx, party)
	finish(span, err)
	return orders, err
}

func (t *tracedEngine) SetOrders(ctx context.Context, party Party, orders []string) error {
	ctx, span := t.start(ctx, "SetOrders",
		attribute.String("party", string(party)),
		attribute.Int("orders", len(orders)),
	)
	err := t.next.SetOrders(ctx, party, orders)
	finish(span, err)
	return err
}

func (t *tracedEngine) Adjacent(ctx context.Context, region string) ([]string, error) {
	ctx, span := t.start(ctx, "Adjacent", attribute.String("region", region))
	regions, err := t.next.Adjacent(ctx, region)
	finish(span, err)
	return regions, err
}

func (t *tracedEngine) Kind(ctx context.Context, region string) (RegionKind, error) {
	ctx, span := t.start(ctx, "Kind", attribute.String("region", region))
	kind, err := t.next.Kind(ctx, region)
	finish(span, err)
	return kind, err
}

func (t *tracedEngine) Process(ctx context.Context) error {
	ctx, span := t.start(ctx, "Process")
	err := t.next.Process(ctx)
	finish(span, err)
	return err
}

func (t *tracedEngine) Phase(ctx context.Context) (string, error) {
	ctx, span := t.start(ctx, "Phase")
	phase, err := t.next.Phase(ctx)
	finish(span, err)
	return phase, err
}

func (t *tracedEngine) Reset(ctx context.Context) error {
	ctx, span := t.start(ctx, "Reset")
	err := t.next.Reset(ctx)
	finish(span, err)
	return err
}
