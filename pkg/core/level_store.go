package core

import (
	"github.com/google/btree"
)

// Direction selects the order in which price levels are visited
type Direction int

// Iteration directions
const (
	Ascending Direction = iota
	Descending
)

// bestDirection is the direction in which the best price of a side comes first
func (s Side) bestDirection() Direction {
	if s == Bid {
		return Descending
	}
	return Ascending
}

// levelKey maps a price to the arena slot holding its queue
type levelKey struct {
	price Price
	slot  int
}

func lessLevelKey(a, b levelKey) bool {
	return a.price < b.price
}

// PriceLevelStore holds one side of the book. Prices live in a B-tree
// ordered ascending; each key points at a slot in an append-only arena of
// levels. Slots are never compacted or handed to another price, so slot
// handles stored in the location index never dangle.
type PriceLevelStore struct {
	side   Side
	prices *btree.BTreeG[levelKey]
	levels []priceLevel
}

// LevelInfo is an aggregated view of one non-empty price level
type LevelInfo struct {
	Price    Price
	Quantity Quantity
	Orders   int
}

// NewPriceLevelStore creates an empty store for side. capacity preallocates
// level slots.
func NewPriceLevelStore(side Side, capacity int) *PriceLevelStore {
	if capacity < 0 {
		capacity = 0
	}
	return &PriceLevelStore{
		side:   side,
		prices: btree.NewG(32, lessLevelKey),
		levels: make([]priceLevel, 0, capacity),
	}
}

// Side returns the side this store holds
func (s *PriceLevelStore) Side() Side {
	return s.side
}

// Insert appends o to the queue at its price, allocating a slot the first
// time the price is seen, and returns the slot.
func (s *PriceLevelStore) Insert(o *Order) int {
	if key, ok := s.prices.Get(levelKey{price: o.price}); ok {
		s.levels[key.slot].push(o)
		return key.slot
	}

	slot := len(s.levels)
	s.levels = append(s.levels, priceLevel{price: o.price})
	s.levels[slot].push(o)
	s.prices.ReplaceOrInsert(levelKey{price: o.price, slot: slot})
	return slot
}

// SlotOf returns the slot allocated for price
func (s *PriceLevelStore) SlotOf(price Price) (int, bool) {
	key, ok := s.prices.Get(levelKey{price: price})
	if !ok {
		return 0, false
	}
	return key.slot, true
}

// TotalQuantityAt sums the open quantity resting at price. A price that was
// never allocated fails with ErrPriceNotFound; an allocated but emptied
// level reports zero.
func (s *PriceLevelStore) TotalQuantityAt(price Price) (Quantity, error) {
	slot, ok := s.SlotOf(price)
	if !ok {
		return 0, ErrPriceNotFound
	}
	return s.levels[slot].volume, nil
}

// RemoveOrder removes id from the queue in slot. It reports whether the
// order was found; an absent order or out of range slot is a no-op.
func (s *PriceLevelStore) RemoveOrder(slot int, id OrderID) bool {
	if slot < 0 || slot >= len(s.levels) {
		return false
	}
	_, ok := s.levels[slot].remove(id)
	return ok
}

// BestNonEmptyPrice walks prices in dir, skipping emptied slots, and
// returns the first price with resting orders or NoPrice.
func (s *PriceLevelStore) BestNonEmptyPrice(dir Direction) Price {
	best := NoPrice
	s.walk(dir, func(l *priceLevel, _ int) bool {
		best = l.price
		return false
	})
	return best
}

// Best returns the best non-empty price for the store's own side
func (s *PriceLevelStore) Best() Price {
	return s.BestNonEmptyPrice(s.side.bestDirection())
}

// Depth returns up to n non-empty levels, best first. n <= 0 returns all.
func (s *PriceLevelStore) Depth(n int) []LevelInfo {
	depth := make([]LevelInfo, 0)
	s.walk(s.side.bestDirection(), func(l *priceLevel, _ int) bool {
		depth = append(depth, LevelInfo{
			Price:    l.price,
			Quantity: l.volume,
			Orders:   l.len(),
		})
		return n <= 0 || len(depth) < n
	})
	return depth
}

// Slots returns the number of allocated level slots, empty ones included
func (s *PriceLevelStore) Slots() int {
	return len(s.levels)
}

// Orders returns the number of resting orders
func (s *PriceLevelStore) Orders() int {
	count := 0
	for i := range s.levels {
		count += s.levels[i].len()
	}
	return count
}

func (s *PriceLevelStore) level(slot int) *priceLevel {
	if slot < 0 || slot >= len(s.levels) {
		return nil
	}
	return &s.levels[slot]
}

// walk visits non-empty levels in dir until fn returns false. fn may change
// the contents of a level but must not insert new prices.
func (s *PriceLevelStore) walk(dir Direction, fn func(l *priceLevel, slot int) bool) {
	visit := func(key levelKey) bool {
		l := &s.levels[key.slot]
		if l.empty() {
			return true
		}
		return fn(l, key.slot)
	}
	if dir == Descending {
		s.prices.Descend(visit)
		return
	}
	s.prices.Ascend(visit)
}
