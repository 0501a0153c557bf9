package core

import (
	"errors"
	"math"
)

// NoPrice marks an absent best bid or best ask. It is outside the range of
// prices the book accepts, so a price of zero stays a valid (if degenerate) level.
const NoPrice Price = math.MaxUint64

// Errors
var (
	ErrInvalidQuantity  = errors.New("invalid quantity")
	ErrInvalidPrice     = errors.New("invalid price")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrPriceNotFound    = errors.New("price level not found")
	ErrUndefinedAverage = errors.New("average price undefined without fills")
	ErrCorruptIndex     = errors.New("order location index out of sync")
)
