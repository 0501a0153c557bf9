package messaging

import (
	"context"
	"time"
)

// MessageSender publishes execution reports produced by the book.
// It decouples the core from a specific transport such as Kafka.
type MessageSender interface {
	SendDoneMessage(ctx context.Context, done *DoneMessage) error
	SendCancelMessage(ctx context.Context, cancel *CancelMessage) error
	Close() error
}

// DoneMessage reports the outcome of one submitted order
type DoneMessage struct {
	Instrument   string    `json:"instrument"`
	OrderID      string    `json:"orderId,omitempty"`
	Side         string    `json:"side"`
	Price        string    `json:"price"`
	Quantity     string    `json:"quantity"`
	Status       string    `json:"status"`
	ExecutedQty  string    `json:"executedQty"`
	RemainingQty string    `json:"remainingQty"`
	AvgPrice     string    `json:"avgPrice,omitempty"`
	Fills        []Fill    `json:"fills"`
	Stored       bool      `json:"stored"`
	Timestamp    time.Time `json:"timestamp"`
}

// Fill is a single execution against a resting order
type Fill struct {
	MakerOrderID string `json:"makerOrderId"`
	Price        string `json:"price"`
	Quantity     string `json:"quantity"`
}

// CancelMessage reports the outcome of a cancel request
type CancelMessage struct {
	Instrument string    `json:"instrument"`
	OrderID    string    `json:"orderId"`
	Result     string    `json:"result"`
	Timestamp  time.Time `json:"timestamp"`
}

// Key returns the partitioning key for the report
func (d *DoneMessage) Key() string {
	return d.Instrument
}

// Key returns the partitioning key for the report
func (c *CancelMessage) Key() string {
	return c.Instrument
}
