package core

import (
	"context"

	"github.com/erain9/limitbook/pkg/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// MatchingEngine matches incoming limit orders against an OrderBook under
// price-then-time priority. Trades execute at the resting order's price.
// Any unmatched remainder rests in the book as a new order.
type MatchingEngine struct {
	book *OrderBook
}

// NewMatchingEngine creates an engine over book
func NewMatchingEngine(book *OrderBook) *MatchingEngine {
	return &MatchingEngine{
		book: book,
	}
}

// Book returns the order book the engine trades against
func (e *MatchingEngine) Book() *OrderBook {
	return e.book
}

// Submit matches an incoming order and rests its remainder. Invalid input
// is rejected before the book is touched. Best bid and ask are refreshed
// whenever the book changed.
func (e *MatchingEngine) Submit(ctx context.Context, side Side, price Price, quantity Quantity) (*FillResult, error) {
	ctx, span := otel.StartOrderSpan(ctx, otel.SpanSubmitOrder,
		attribute.String(otel.AttributeOrderSide, side.String()),
		attribute.Int64(otel.AttributeOrderPrice, int64(price)),
		attribute.Int64(otel.AttributeOrderQuantity, int64(quantity)),
	)
	defer span.End()

	if err := validate(side, price, quantity); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	result := newFillResult(side, price, quantity)
	e.match(ctx, result)

	if result.Remaining > 0 {
		id, err := e.book.Add(side, price, result.Remaining)
		if err != nil {
			// fills already happened; report them with the remainder unrested
			span.SetStatus(codes.Error, "failed to rest remainder")
			if len(result.Fills) > 0 {
				e.book.RefreshBestBidAsk()
			}
			result.settle()
			return result, err
		}
		result.RestingID = id
		result.Rested = true
	}

	if len(result.Fills) > 0 || result.Rested {
		e.book.RefreshBestBidAsk()
	}
	result.settle()

	otel.AddAttributes(span,
		attribute.String(otel.AttributeOrderStatus, result.Status.String()),
		attribute.Int64(otel.AttributeExecutedQuantity, int64(result.FilledQuantity())),
		attribute.Int64(otel.AttributeRemainingQuantity, int64(result.Remaining)),
		attribute.Int(otel.AttributeTradeCount, len(result.Fills)),
	)
	span.SetStatus(codes.Ok, "order submitted")

	return result, nil
}

// match walks the opposite side best price first, consuming resting orders
// oldest first until the incoming order is exhausted or prices stop crossing.
func (e *MatchingEngine) match(ctx context.Context, result *FillResult) {
	_, span := otel.StartOrderSpan(ctx, otel.SpanMatchOrder)
	defer span.End()

	opposite := e.book.store(result.Side.Opposite())
	opposite.walk(opposite.side.bestDirection(), func(level *priceLevel, slot int) bool {
		if !result.Side.crosses(result.Price, level.price) {
			return false
		}
		e.consumeLevel(result, opposite, level, slot)
		return result.Remaining > 0
	})
}

// consumeLevel trades against the head of level until either side runs out.
// A partially consumed head keeps its place at the front of the queue.
func (e *MatchingEngine) consumeLevel(result *FillResult, store *PriceLevelStore, level *priceLevel, slot int) {
	for result.Remaining > 0 && !level.empty() {
		maker := level.front()

		// the index decides whether the head is still live
		if loc, ok := e.book.index.Lookup(maker.id); !ok || loc.Side != store.side || loc.Slot != slot {
			level.popFront()
			e.book.logger.Warn().
				Uint64("order_id", uint64(maker.id)).
				Msg("dropping queued order absent from location index")
			continue
		}

		traded := min(result.Remaining, maker.quantity)
		level.fill(maker, traded)
		result.appendFill(maker.id, level.price, traded)

		if maker.quantity > 0 {
			return
		}
		level.popFront()
		e.book.index.Remove(maker.id)
	}
}
