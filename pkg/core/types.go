package core

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/erain9/limitbook/pkg/messaging"
	"github.com/nikolaydubina/fpdecimal"
)

// OrderStatus is the outcome of a submitted order
type OrderStatus int

// Order statuses. The zero value only exists while a result is being built.
const (
	statusUninitialized OrderStatus = iota
	Created
	PartiallyFilled
	Filled
)

// String returns status as string
func (s OrderStatus) String() string {
	switch s {
	case Created:
		return "CREATED"
	case PartiallyFilled:
		return "PARTIALLY_FILLED"
	case Filled:
		return "FILLED"
	default:
		return "UNINITIALIZED"
	}
}

// CancelResult is the outcome of a cancel request
type CancelResult int

// Cancel results
const (
	NotFound CancelResult = iota
	Canceled
)

// String returns cancel result as string
func (c CancelResult) String() string {
	if c == Canceled {
		return "CANCELED"
	}
	return "NOT_FOUND"
}

// Fill is one execution against a resting order, at the resting price
type Fill struct {
	MakerID  OrderID
	Price    Price
	Quantity Quantity
}

// FillResult contains information about the order execution result
type FillResult struct {
	// Side, Price and Quantity of the incoming order as submitted
	Side     Side
	Price    Price
	Quantity Quantity
	// Status of the incoming order after matching
	Status OrderStatus
	// Remaining quantity left unmatched; it rests in the book when non-zero
	Remaining Quantity
	// Fills in execution order
	Fills []Fill
	// RestingID identifies the remainder order when Rested is set
	RestingID OrderID
	Rested    bool
}

func newFillResult(side Side, price Price, quantity Quantity) *FillResult {
	return &FillResult{
		Side:      side,
		Price:     price,
		Quantity:  quantity,
		Status:    statusUninitialized,
		Remaining: quantity,
		Fills:     make([]Fill, 0),
	}
}

func (r *FillResult) appendFill(maker OrderID, price Price, quantity Quantity) {
	r.Fills = append(r.Fills, Fill{MakerID: maker, Price: price, Quantity: quantity})
	r.Remaining -= quantity
}

// settle derives the final status from the fills and the remaining quantity
func (r *FillResult) settle() {
	switch {
	case len(r.Fills) == 0:
		r.Status = Created
	case r.Remaining == 0:
		r.Status = Filled
	default:
		r.Status = PartiallyFilled
	}
}

// FilledQuantity returns the total quantity executed
func (r *FillResult) FilledQuantity() Quantity {
	var total Quantity
	for _, f := range r.Fills {
		total += f.Quantity
	}
	return total
}

// AvgPrice returns the volume-weighted average execution price. It fails
// with ErrUndefinedAverage when nothing was filled.
func (r *FillResult) AvgPrice() (float64, error) {
	var notional float64
	var quantity Quantity
	for _, f := range r.Fills {
		notional += float64(f.Price) * float64(f.Quantity)
		quantity += f.Quantity
	}
	if quantity == 0 {
		return 0, ErrUndefinedAverage
	}
	return notional / float64(quantity), nil
}

// ToMessagingDoneMessage converts the result to a messaging.DoneMessage
func (r *FillResult) ToMessagingDoneMessage(instrument string) *messaging.DoneMessage {
	if r == nil {
		return nil
	}

	fills := make([]messaging.Fill, len(r.Fills))
	for i, f := range r.Fills {
		fills[i] = messaging.Fill{
			MakerOrderID: f.MakerID.String(),
			Price:        formatDecimal(fpdecimal.FromInt(int64(f.Price))),
			Quantity:     formatDecimal(fpdecimal.FromInt(int64(f.Quantity))),
		}
	}

	avg := ""
	if p, err := r.AvgPrice(); err == nil {
		avg = formatDecimal(fpdecimal.FromFloat(p))
	}

	orderID := ""
	if r.Rested {
		orderID = r.RestingID.String()
	}

	return &messaging.DoneMessage{
		Instrument:   instrument,
		OrderID:      orderID,
		Side:         r.Side.String(),
		Price:        formatDecimal(fpdecimal.FromInt(int64(r.Price))),
		Quantity:     formatDecimal(fpdecimal.FromInt(int64(r.Quantity))),
		Status:       r.Status.String(),
		ExecutedQty:  formatDecimal(fpdecimal.FromInt(int64(r.FilledQuantity()))),
		RemainingQty: formatDecimal(fpdecimal.FromInt(int64(r.Remaining))),
		AvgPrice:     avg,
		Fills:        fills,
		Stored:       r.Rested,
		Timestamp:    time.Now().UTC(),
	}
}

// MarshalJSON implements json.Marshaler interface for FillResult
func (r *FillResult) MarshalJSON() ([]byte, error) {
	type fillJSON struct {
		MakerID  uint64 `json:"makerId"`
		Price    uint64 `json:"price"`
		Quantity uint64 `json:"quantity"`
	}
	fills := make([]fillJSON, len(r.Fills))
	for i, f := range r.Fills {
		fills[i] = fillJSON{MakerID: uint64(f.MakerID), Price: uint64(f.Price), Quantity: uint64(f.Quantity)}
	}

	return json.Marshal(struct {
		Side      string     `json:"side"`
		Price     uint64     `json:"price"`
		Quantity  uint64     `json:"quantity"`
		Status    string     `json:"status"`
		Remaining uint64     `json:"remaining"`
		Fills     []fillJSON `json:"fills"`
		RestingID uint64     `json:"restingId,omitempty"`
		Rested    bool       `json:"rested"`
	}{
		Side:      r.Side.String(),
		Price:     uint64(r.Price),
		Quantity:  uint64(r.Quantity),
		Status:    r.Status.String(),
		Remaining: uint64(r.Remaining),
		Fills:     fills,
		RestingID: uint64(r.RestingID),
		Rested:    r.Rested,
	})
}

// formatDecimal renders d with at least three fractional digits
func formatDecimal(d fpdecimal.Decimal) string {
	val := d.String()
	parts := strings.Split(val, ".")
	if len(parts) == 1 {
		return val + ".000"
	} else if len(parts[1]) < 3 {
		return val + strings.Repeat("0", 3-len(parts[1]))
	}
	return val
}
