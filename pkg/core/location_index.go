package core

// OrderLocation is where a resting order lives: its side and level slot
type OrderLocation struct {
	Side Side
	Slot int
}

// OrderLocationIndex maps identifiers of resting orders to their location.
// An identifier is present exactly while its order rests in the book.
type OrderLocationIndex struct {
	locations map[OrderID]OrderLocation
}

// NewOrderLocationIndex creates an empty index
func NewOrderLocationIndex() *OrderLocationIndex {
	return &OrderLocationIndex{
		locations: make(map[OrderID]OrderLocation),
	}
}

// Insert records the location of id. It reports false, leaving the existing
// entry untouched, if id is already present.
func (x *OrderLocationIndex) Insert(id OrderID, loc OrderLocation) bool {
	if _, exists := x.locations[id]; exists {
		return false
	}
	x.locations[id] = loc
	return true
}

// Lookup returns the location of id
func (x *OrderLocationIndex) Lookup(id OrderID) (OrderLocation, bool) {
	loc, ok := x.locations[id]
	return loc, ok
}

// Remove deletes id and returns the location it had
func (x *OrderLocationIndex) Remove(id OrderID) (OrderLocation, bool) {
	loc, ok := x.locations[id]
	if ok {
		delete(x.locations, id)
	}
	return loc, ok
}

// Contains reports whether id is resting
func (x *OrderLocationIndex) Contains(id OrderID) bool {
	_, ok := x.locations[id]
	return ok
}

// Len returns the number of indexed orders
func (x *OrderLocationIndex) Len() int {
	return len(x.locations)
}
