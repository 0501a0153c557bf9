package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/erain9/limitbook/pkg/core"
	"github.com/erain9/limitbook/pkg/marketdata"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Options represents configuration options for the Redis connection
type Options struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces every key and channel written by the publisher
	Prefix string
}

// NewClient creates a Redis client from opts
func NewClient(opts Options) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
}

// QuotePublisher writes quotes into Redis. Each instrument gets a hash with
// the top of book, a string key holding the JSON depth and a pub/sub
// channel announcing every update.
type QuotePublisher struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

type levelJSON struct {
	Price    uint64 `json:"price"`
	Quantity uint64 `json:"quantity"`
	Orders   int    `json:"orders"`
}

type depthJSON struct {
	Instrument string      `json:"instrument"`
	Bids       []levelJSON `json:"bids"`
	Asks       []levelJSON `json:"asks"`
	Timestamp  int64       `json:"ts"`
}

// NewQuotePublisher creates a publisher writing under prefix
func NewQuotePublisher(client *redis.Client, prefix string, logger *zap.Logger) *QuotePublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuotePublisher{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

// PublishQuote stores q and notifies subscribers in one transaction
func (p *QuotePublisher) PublishQuote(ctx context.Context, q marketdata.Quote) error {
	depth, err := json.Marshal(depthJSON{
		Instrument: q.Instrument,
		Bids:       toLevelJSON(q.Bids),
		Asks:       toLevelJSON(q.Asks),
		Timestamp:  q.Timestamp.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal depth: %w", err)
	}

	_, err = p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, p.topKey(q.Instrument),
			"bid", formatPrice(q.BestBid),
			"ask", formatPrice(q.BestAsk),
			"ts", q.Timestamp.UnixMilli(),
		)
		pipe.Set(ctx, p.depthKey(q.Instrument), depth, 0)
		pipe.Publish(ctx, p.channel(q.Instrument), depth)
		return nil
	})
	if err != nil {
		p.logger.Error("failed to publish quote",
			zap.String("instrument", q.Instrument),
			zap.Error(err))
		return err
	}
	return nil
}

// TopOfBook reads back the stored best bid and ask. Empty sides come back
// as core.NoPrice.
func (p *QuotePublisher) TopOfBook(ctx context.Context, instrument string) (core.Price, core.Price, error) {
	vals, err := p.client.HMGet(ctx, p.topKey(instrument), "bid", "ask").Result()
	if err != nil {
		return core.NoPrice, core.NoPrice, err
	}
	bid, err := parsePrice(vals[0])
	if err != nil {
		return core.NoPrice, core.NoPrice, err
	}
	ask, err := parsePrice(vals[1])
	if err != nil {
		return core.NoPrice, core.NoPrice, err
	}
	return bid, ask, nil
}

// Subscribe listens on the update channel of instrument
func (p *QuotePublisher) Subscribe(ctx context.Context, instrument string) *redis.PubSub {
	return p.client.Subscribe(ctx, p.channel(instrument))
}

// Close closes the Redis client
func (p *QuotePublisher) Close() error {
	return p.client.Close()
}

func (p *QuotePublisher) topKey(instrument string) string {
	return fmt.Sprintf("%s:%s:top", p.prefix, instrument)
}

func (p *QuotePublisher) depthKey(instrument string) string {
	return fmt.Sprintf("%s:%s:depth", p.prefix, instrument)
}

func (p *QuotePublisher) channel(instrument string) string {
	return fmt.Sprintf("%s:%s:quotes", p.prefix, instrument)
}

func toLevelJSON(levels []core.LevelInfo) []levelJSON {
	out := make([]levelJSON, len(levels))
	for i, l := range levels {
		out[i] = levelJSON{Price: uint64(l.Price), Quantity: uint64(l.Quantity), Orders: l.Orders}
	}
	return out
}

// empty sides are stored as "", NoPrice never reaches Redis
func formatPrice(p core.Price) string {
	if p == core.NoPrice {
		return ""
	}
	return strconv.FormatUint(uint64(p), 10)
}

func parsePrice(v interface{}) (core.Price, error) {
	s, ok := v.(string)
	if !ok || s == "" {
		return core.NoPrice, nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return core.NoPrice, fmt.Errorf("invalid stored price %q: %w", s, err)
	}
	return core.Price(n), nil
}

var _ marketdata.Publisher = (*QuotePublisher)(nil)
