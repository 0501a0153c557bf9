package core

import (
	"encoding/json"
	"fmt"
)

// Price is an integer price in instrument ticks
type Price uint64

// Quantity is an integer order size in lots
type Quantity uint64

// OrderID is an opaque order identifier handed out by an IDSource
type OrderID uint64

// String returns the identifier in decimal form
func (id OrderID) String() string {
	return fmt.Sprintf("%d", uint64(id))
}

// Side represents bid or ask side of the book
type Side int

// Book sides
const (
	Bid Side = iota
	Ask
)

// String returns side as string
func (s Side) String() string {
	switch s {
	case Bid:
		return "BID"
	case Ask:
		return "ASK"
	default:
		return "UNKNOWN"
	}
}

// Opposite returns the side an incoming order on s trades against
func (s Side) Opposite() Side {
	if s == Bid {
		return Ask
	}
	return Bid
}

// crosses reports whether an order on s at limit can trade with a resting
// order quoted at resting on the opposite side.
func (s Side) crosses(limit, resting Price) bool {
	if s == Bid {
		return resting <= limit
	}
	return resting >= limit
}

// Order is a resting limit order. Its quantity only ever decreases, and only
// through matching.
type Order struct {
	id       OrderID
	side     Side
	price    Price
	quantity Quantity
}

func newOrder(id OrderID, side Side, price Price, quantity Quantity) *Order {
	return &Order{
		id:       id,
		side:     side,
		price:    price,
		quantity: quantity,
	}
}

// ID returns the order identifier
func (o *Order) ID() OrderID {
	return o.id
}

// Side returns side of the Order
func (o *Order) Side() Side {
	return o.side
}

// Price returns the price the order rests at
func (o *Order) Price() Price {
	return o.price
}

// Quantity returns the open quantity
func (o *Order) Quantity() Quantity {
	return o.quantity
}

func (o *Order) decreaseQuantity(q Quantity) {
	o.quantity -= q
}

// MarshalJSON implements custom JSON marshaling for Order
func (o *Order) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID       uint64 `json:"id"`
		Side     string `json:"side"`
		Price    uint64 `json:"price"`
		Quantity uint64 `json:"quantity"`
	}{
		ID:       uint64(o.id),
		Side:     o.side.String(),
		Price:    uint64(o.price),
		Quantity: uint64(o.quantity),
	})
}

// String implements Stringer interface
func (o *Order) String() string {
	j, _ := o.MarshalJSON()
	return string(j)
}
