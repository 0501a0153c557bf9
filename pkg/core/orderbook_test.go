package core

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustAdd(t *testing.T, ob *OrderBook, side Side, price Price, qty Quantity) OrderID {
	t.Helper()
	id, err := ob.Add(side, price, qty)
	require.NoError(t, err)
	return id
}

func TestOrderBook_BestBidAsk(t *testing.T) {
	ob := NewOrderBook()

	mustAdd(t, ob, Bid, 100, 10)
	mustAdd(t, ob, Ask, 101, 10)
	mustAdd(t, ob, Ask, 101, 10)
	mustAdd(t, ob, Ask, 102, 10)
	mustAdd(t, ob, Bid, 99, 10)
	mustAdd(t, ob, Bid, 98, 10)

	// the cache is only updated on refresh
	assert.Equal(t, NoPrice, ob.BestBid())
	assert.Equal(t, NoPrice, ob.BestAsk())

	bid, ask := ob.RefreshBestBidAsk()
	assert.Equal(t, Price(100), bid)
	assert.Equal(t, Price(101), ask)
	assert.Equal(t, Price(100), ob.BestBid())
	assert.Equal(t, Price(101), ob.BestAsk())

	qty, err := ob.TotalQuantity(Ask, 101)
	require.NoError(t, err)
	assert.Equal(t, Quantity(20), qty)
	assert.Equal(t, 6, ob.Len())
}

func TestOrderBook_EmptyBook(t *testing.T) {
	ob := NewOrderBook()
	bid, ask := ob.RefreshBestBidAsk()
	assert.Equal(t, NoPrice, bid)
	assert.Equal(t, NoPrice, ask)

	_, err := ob.TotalQuantity(Bid, 100)
	assert.ErrorIs(t, err, ErrPriceNotFound)
}

func TestOrderBook_AddValidation(t *testing.T) {
	ob := NewOrderBook()
	mustAdd(t, ob, Bid, 100, 10)

	_, err := ob.Add(Bid, 100, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = ob.Add(Ask, NoPrice, 1)
	assert.ErrorIs(t, err, ErrInvalidPrice)

	_, err = ob.Add(Side(5), 100, 1)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	qty, err := ob.TotalQuantity(Bid, 100)
	require.NoError(t, err)
	assert.Equal(t, Quantity(10), qty)
	assert.Equal(t, 1, ob.Len())
}

func TestOrderBook_CancelIsIdempotent(t *testing.T) {
	ob := NewOrderBook()
	first := mustAdd(t, ob, Ask, 101, 10)
	second := mustAdd(t, ob, Ask, 101, 4)

	assert.Equal(t, Canceled, ob.Cancel(first))
	assert.Equal(t, NotFound, ob.Cancel(first))
	assert.Equal(t, NotFound, ob.Cancel(OrderID(999)))

	qty, err := ob.TotalQuantity(Ask, 101)
	require.NoError(t, err)
	assert.Equal(t, Quantity(4), qty)
	assert.False(t, ob.Contains(first))
	assert.True(t, ob.Contains(second))

	assert.Equal(t, Canceled, ob.Cancel(second))
	qty, err = ob.TotalQuantity(Ask, 101)
	require.NoError(t, err)
	assert.Equal(t, Quantity(0), qty)

	_, ask := ob.RefreshBestBidAsk()
	assert.Equal(t, NoPrice, ask)
}

func TestOrderBook_CancelMiddleOfQueue(t *testing.T) {
	ob := NewOrderBook()
	a := mustAdd(t, ob, Bid, 100, 1)
	b := mustAdd(t, ob, Bid, 100, 2)
	c := mustAdd(t, ob, Bid, 100, 3)

	require.Equal(t, Canceled, ob.Cancel(b))

	_, ok := ob.GetOrder(b)
	assert.False(t, ok)
	oa, ok := ob.GetOrder(a)
	require.True(t, ok)
	oc, ok := ob.GetOrder(c)
	require.True(t, ok)

	slot, _ := ob.bids.SlotOf(100)
	level := ob.bids.level(slot)
	assert.Equal(t, []*Order{oa, oc}, level.orders)
}

func TestOrderBook_RefreshSkipsEmptiedLevels(t *testing.T) {
	ob := NewOrderBook()
	best := mustAdd(t, ob, Bid, 105, 1)
	mustAdd(t, ob, Bid, 100, 1)

	bid, _ := ob.RefreshBestBidAsk()
	require.Equal(t, Price(105), bid)

	ob.Cancel(best)
	// stale until refreshed
	assert.Equal(t, Price(105), ob.BestBid())
	bid, _ = ob.RefreshBestBidAsk()
	assert.Equal(t, Price(100), bid)
}

func TestOrderBook_TotalQuantityMatchesResting(t *testing.T) {
	ob := NewOrderBook()
	var ids []OrderID
	for i := 0; i < 20; i++ {
		ids = append(ids, mustAdd(t, ob, Ask, Price(100+i%3), Quantity(i+1)))
	}
	for i := 0; i < len(ids); i += 3 {
		ob.Cancel(ids[i])
	}

	want := map[Price]Quantity{}
	for i, id := range ids {
		if o, ok := ob.GetOrder(id); ok {
			assert.Equal(t, Quantity(i+1), o.Quantity())
			want[o.Price()] += o.Quantity()
		}
	}
	for price, qty := range want {
		got, err := ob.TotalQuantity(Ask, price)
		require.NoError(t, err)
		assert.Equal(t, qty, got, "price %d", price)
	}
}

func TestOrderBook_DuplicateIdentifier(t *testing.T) {
	if strictInvariants {
		t.Skip("duplicate identifiers panic in debug builds")
	}

	var buf bytes.Buffer
	ob := NewOrderBook(
		WithIDSource(IDSourceFunc(func() OrderID { return 7 })),
		WithLogger(zerolog.New(&buf)),
	)

	mustAdd(t, ob, Bid, 100, 5)
	_, err := ob.Add(Bid, 100, 3)
	assert.ErrorIs(t, err, ErrCorruptIndex)
	assert.Contains(t, buf.String(), "duplicate order identifier")

	// the resting order is untouched
	qty, err := ob.TotalQuantity(Bid, 100)
	require.NoError(t, err)
	assert.Equal(t, Quantity(5), qty)
	assert.True(t, ob.Contains(7))
}

func TestOrderBook_Options(t *testing.T) {
	ob := NewOrderBook(
		WithIDSource(NewSequentialIDs(41)),
		WithIDSource(nil),
		WithLevelCapacity(16),
	)
	id := mustAdd(t, ob, Ask, 10, 1)
	assert.Equal(t, OrderID(42), id)
	assert.Equal(t, 16, cap(ob.asks.levels))
}

func TestOrderBook_DepthAndString(t *testing.T) {
	ob := NewOrderBook()
	mustAdd(t, ob, Bid, 99, 3)
	mustAdd(t, ob, Bid, 100, 2)
	mustAdd(t, ob, Ask, 101, 4)

	bids := ob.Depth(Bid, 0)
	require.Len(t, bids, 2)
	assert.Equal(t, Price(100), bids[0].Price)

	s := ob.String()
	assert.Contains(t, s, "Ask:\n101 -> qty: 4 orders: 1")
	assert.Contains(t, s, "Bid:\n100 -> qty: 2 orders: 1\n99 -> qty: 3 orders: 1")
}
