// Package marketdata describes top-of-book snapshots published after every
// book change.
package marketdata

import (
	"context"
	"time"

	"github.com/erain9/limitbook/pkg/core"
)

// Quote is a snapshot of one instrument's book. BestBid and BestAsk are
// core.NoPrice when the side is empty.
type Quote struct {
	Instrument string
	BestBid    core.Price
	BestAsk    core.Price
	Bids       []core.LevelInfo
	Asks       []core.LevelInfo
	Timestamp  time.Time
}

// HasBid reports whether the bid side is non-empty
func (q Quote) HasBid() bool {
	return q.BestBid != core.NoPrice
}

// HasAsk reports whether the ask side is non-empty
func (q Quote) HasAsk() bool {
	return q.BestAsk != core.NoPrice
}

// Publisher pushes quotes to downstream consumers
type Publisher interface {
	PublishQuote(ctx context.Context, q Quote) error
	Close() error
}

// NopPublisher discards quotes
type NopPublisher struct{}

// PublishQuote implements Publisher
func (NopPublisher) PublishQuote(context.Context, Quote) error { return nil }

// Close implements Publisher
func (NopPublisher) Close() error { return nil }
