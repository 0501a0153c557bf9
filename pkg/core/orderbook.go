package core

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// OrderBook holds the resting orders of a single instrument: one
// PriceLevelStore per side plus the location index used for cancellation.
//
// Best bid and best ask are cached and refreshed lazily. Mutations (Add,
// Cancel, matching) do not touch the cache; callers must call
// RefreshBestBidAsk after a batch of mutations before relying on BestBid or
// BestAsk.
//
// OrderBook is not safe for concurrent use. Serialize access with a single
// lock per book (see service.OrderService).
type OrderBook struct {
	bids    *PriceLevelStore
	asks    *PriceLevelStore
	index   *OrderLocationIndex
	bestBid Price
	bestAsk Price
	ids     IDSource
	logger  zerolog.Logger
}

// Option configures an OrderBook
type Option func(*OrderBook)

// WithIDSource sets the identifier source used by Add
func WithIDSource(ids IDSource) Option {
	return func(ob *OrderBook) {
		if ids != nil {
			ob.ids = ids
		}
	}
}

// WithLevelCapacity preallocates level slots on each side
func WithLevelCapacity(n int) Option {
	return func(ob *OrderBook) {
		ob.bids = NewPriceLevelStore(Bid, n)
		ob.asks = NewPriceLevelStore(Ask, n)
	}
}

// WithLogger sets the logger used for invariant violations and debug output
func WithLogger(logger zerolog.Logger) Option {
	return func(ob *OrderBook) {
		ob.logger = logger
	}
}

// NewOrderBook creates an empty order book. Without options it uses
// sequential identifiers starting at 1 and a no-op logger.
func NewOrderBook(opts ...Option) *OrderBook {
	ob := &OrderBook{
		bids:    NewPriceLevelStore(Bid, 0),
		asks:    NewPriceLevelStore(Ask, 0),
		index:   NewOrderLocationIndex(),
		bestBid: NoPrice,
		bestAsk: NoPrice,
		ids:     NewSequentialIDs(0),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(ob)
	}
	return ob
}

// Add rests a new order and returns its identifier. It does not refresh the
// cached best bid and ask.
func (ob *OrderBook) Add(side Side, price Price, quantity Quantity) (OrderID, error) {
	if err := validate(side, price, quantity); err != nil {
		return 0, err
	}

	id := ob.ids.NextID()
	if ob.index.Contains(id) {
		// the source handed out an identifier that is still resting
		ob.violation(ErrCorruptIndex, "duplicate order identifier", id)
		return 0, fmt.Errorf("order %s: %w", id, ErrCorruptIndex)
	}

	order := newOrder(id, side, price, quantity)
	slot := ob.store(side).Insert(order)
	ob.index.Insert(id, OrderLocation{Side: side, Slot: slot})

	ob.logger.Debug().
		Uint64("order_id", uint64(id)).
		Str("side", side.String()).
		Uint64("price", uint64(price)).
		Uint64("quantity", uint64(quantity)).
		Msg("order added")

	return id, nil
}

// Cancel removes a resting order. Canceling an unknown or already removed
// order returns NotFound.
func (ob *OrderBook) Cancel(id OrderID) CancelResult {
	loc, ok := ob.index.Remove(id)
	if !ok {
		return NotFound
	}

	if !ob.store(loc.Side).RemoveOrder(loc.Slot, id) {
		// indexed but not in its level: the index was already stale
		ob.violation(ErrCorruptIndex, "indexed order missing from its level", id)
	}

	ob.logger.Debug().Uint64("order_id", uint64(id)).Msg("order canceled")
	return Canceled
}

// TotalQuantity returns the open quantity at price on side. It fails with
// ErrPriceNotFound if no order ever rested at that price.
func (ob *OrderBook) TotalQuantity(side Side, price Price) (Quantity, error) {
	return ob.store(side).TotalQuantityAt(price)
}

// RefreshBestBidAsk recomputes the cached best bid (highest non-empty bid
// level) and best ask (lowest non-empty ask level) and returns them. An
// empty side yields NoPrice.
func (ob *OrderBook) RefreshBestBidAsk() (Price, Price) {
	ob.bestBid = ob.bids.BestNonEmptyPrice(Descending)
	ob.bestAsk = ob.asks.BestNonEmptyPrice(Ascending)
	return ob.bestBid, ob.bestAsk
}

// BestBid returns the cached best bid as of the last refresh
func (ob *OrderBook) BestBid() Price {
	return ob.bestBid
}

// BestAsk returns the cached best ask as of the last refresh
func (ob *OrderBook) BestAsk() Price {
	return ob.bestAsk
}

// Depth returns up to n non-empty levels of side, best first
func (ob *OrderBook) Depth(side Side, n int) []LevelInfo {
	return ob.store(side).Depth(n)
}

// Contains reports whether id is resting in the book
func (ob *OrderBook) Contains(id OrderID) bool {
	return ob.index.Contains(id)
}

// Len returns the number of resting orders
func (ob *OrderBook) Len() int {
	return ob.index.Len()
}

// GetOrder returns a resting order by id
func (ob *OrderBook) GetOrder(id OrderID) (*Order, bool) {
	loc, ok := ob.index.Lookup(id)
	if !ok {
		return nil, false
	}
	level := ob.store(loc.Side).level(loc.Slot)
	if level == nil {
		return nil, false
	}
	for _, o := range level.orders {
		if o.id == id {
			return o, true
		}
	}
	return nil, false
}

// String implements fmt.Stringer interface
func (ob *OrderBook) String() string {
	builder := strings.Builder{}

	builder.WriteString("Ask:")
	asks := ob.asks.Depth(0)
	for i := len(asks) - 1; i >= 0; i-- {
		builder.WriteString(fmt.Sprintf("\n%d -> qty: %d orders: %d", asks[i].Price, asks[i].Quantity, asks[i].Orders))
	}
	builder.WriteString("\n")

	builder.WriteString("Bid:")
	for _, l := range ob.bids.Depth(0) {
		builder.WriteString(fmt.Sprintf("\n%d -> qty: %d orders: %d", l.Price, l.Quantity, l.Orders))
	}
	builder.WriteString("\n")

	return builder.String()
}

// private methods

func (ob *OrderBook) store(side Side) *PriceLevelStore {
	if side == Bid {
		return ob.bids
	}
	return ob.asks
}

// violation reports a broken internal invariant. Debug builds panic; release
// builds log it and let the caller re-synchronize.
func (ob *OrderBook) violation(err error, msg string, id OrderID) {
	if strictInvariants {
		panic(fmt.Sprintf("%s: %s (order %s)", err, msg, id))
	}
	ob.logger.Error().Err(err).Uint64("order_id", uint64(id)).Msg(msg)
}

func validate(side Side, price Price, quantity Quantity) error {
	if quantity == 0 {
		return ErrInvalidQuantity
	}
	if price == NoPrice {
		return ErrInvalidPrice
	}
	if side != Bid && side != Ask {
		return fmt.Errorf("side %d: %w", side, ErrInvalidArgument)
	}
	return nil
}
