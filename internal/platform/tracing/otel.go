package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	dErrors "trustid/pkg/domain-errors"
)

// DefaultScope is the instrumentation scope ledger spans are reported under.
const DefaultScope = "trustid/ledger"

// OTelTracer reports spans through an OpenTelemetry tracer. Without an
// injected tracer it resolves one from the global provider at construction,
// so install the provider first.
type OTelTracer struct {
	tracer trace.Tracer
}

type OTelOption func(*OTelTracer)

func WithOTelTracer(t trace.Tracer) OTelOption {
	return func(o *OTelTracer) { o.tracer = t }
}

func NewOTel(opts ...OTelOption) *OTelTracer {
	o := &OTelTracer{}
	for _, opt := range opts {
		opt(o)
	}
	if o.tracer == nil {
		o.tracer = otel.GetTracerProvider().Tracer(DefaultScope)
	}
	return o
}

func (o *OTelTracer) Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span) {
	ctx, span := o.tracer.Start(ctx, name, trace.WithAttributes(convert(attrs)...))
	return ctx, otelSpan{span}
}

type otelSpan struct {
	trace.Span
}

// End marks the span failed only for unexpected errors. Business outcomes
// such as not_found or invalid_state are tagged but leave the status unset.
func (s otelSpan) End(err error) {
	switch {
	case err == nil:
	case dErrors.IsExpected(err):
		s.Span.SetAttributes(attribute.String("outcome", outcomeOf(err)))
	default:
		s.Span.RecordError(err)
		s.Span.SetStatus(codes.Error, err.Error())
	}
	s.Span.End()
}

func (s otelSpan) SetAttributes(attrs ...Attribute) {
	s.Span.SetAttributes(convert(attrs)...)
}

func (s otelSpan) AddEvent(name string, attrs ...Attribute) {
	s.Span.AddEvent(name, trace.WithAttributes(convert(attrs)...))
}

func outcomeOf(err error) string {
	if code, ok := dErrors.CodeOf(err); ok {
		return string(code)
	}
	return "error"
}

// convert drops attributes whose value type has no OTel equivalent.
func convert(attrs []Attribute) []attribute.KeyValue {
	if len(attrs) == 0 {
		return nil
	}
	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		var kv attribute.KeyValue
		switch v := a.Value.(type) {
		case string:
			kv = attribute.String(a.Key, v)
		case bool:
			kv = attribute.Bool(a.Key, v)
		case int:
			kv = attribute.Int(a.Key, v)
		case int64:
			kv = attribute.Int64(a.Key, v)
		case float64:
			kv = attribute.Float64(a.Key, v)
		default:
			continue
		}
		kvs = append(kvs, kv)
	}
	return kvs
}

var _ Tracer = (*OTelTracer)(nil)
