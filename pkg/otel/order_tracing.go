package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Span names
const (
	SpanAddOrder     = "add_order"
	SpanCancelOrder  = "cancel_order"
	SpanSubmitOrder  = "submit_order"
	SpanMatchOrder   = "match_order"
	SpanSendToKafka  = "send_to_kafka"
	SpanPublishQuote = "publish_quote"
)

// Span attribute keys
const (
	AttributeInstrument        = "book.instrument"
	AttributeOrderID           = "order.id"
	AttributeOrderSide         = "order.side"
	AttributeOrderQuantity     = "order.quantity"
	AttributeOrderPrice        = "order.price"
	AttributeOrderStatus       = "order.status"
	AttributeCancelResult      = "order.cancel_result"
	AttributeExecutedQuantity  = "order.executed_quantity"
	AttributeRemainingQuantity = "order.remaining_quantity"
	AttributeTradeCount        = "trade.count"
)

// StartOrderSpan opens span name on the scope that owns it. Before Init it
// hands back whatever span ctx carries (a no-op one if none), so End is
// always safe.
func StartOrderSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	var tracer trace.Tracer

	switch name {
	case SpanSubmitOrder, SpanMatchOrder:
		tracer = EngineTracer()
	default:
		tracer = BookTracer()
	}

	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// AddAttributes sets attrs on span; nil spans are ignored
func AddAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	if span != nil {
		span.SetAttributes(attrs...)
	}
}
