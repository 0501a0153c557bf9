package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderLocationIndex(t *testing.T) {
	x := NewOrderLocationIndex()
	assert.Equal(t, 0, x.Len())

	assert.True(t, x.Insert(1, OrderLocation{Side: Bid, Slot: 3}))
	assert.False(t, x.Insert(1, OrderLocation{Side: Ask, Slot: 9}), "existing entry must win")

	loc, ok := x.Lookup(1)
	assert.True(t, ok)
	assert.Equal(t, OrderLocation{Side: Bid, Slot: 3}, loc)
	assert.True(t, x.Contains(1))
	assert.Equal(t, 1, x.Len())

	loc, ok = x.Remove(1)
	assert.True(t, ok)
	assert.Equal(t, 3, loc.Slot)
	assert.False(t, x.Contains(1))

	_, ok = x.Remove(1)
	assert.False(t, ok)
	_, ok = x.Lookup(2)
	assert.False(t, ok)
}
