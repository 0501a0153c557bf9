package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/erain9/limitbook/pkg/core"
	"github.com/erain9/limitbook/pkg/marketdata"
	"github.com/erain9/limitbook/pkg/messaging"
	"github.com/erain9/limitbook/pkg/otel"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DefaultQuoteDepth is the number of levels per side published with each quote
const DefaultQuoteDepth = 10

// Quote is the best bid and ask as of the last mutation
type Quote struct {
	BestBid core.Price
	BestAsk core.Price
}

// OrderService is the only write entry point for one instrument's book.
// A single RWMutex serializes every mutation; queries take the read lock.
// Best bid and ask are refreshed under the write lock after every mutation,
// so readers never observe a stale cache.
//
// Execution reports go to the MessageSender and the top of book to the
// Publisher. Delivery failures are logged and recorded on the span but do
// not undo the book mutation.
type OrderService struct {
	mu         sync.RWMutex
	instrument string
	book       *core.OrderBook
	engine     *core.MatchingEngine
	sender     messaging.MessageSender
	publisher  marketdata.Publisher
	quoteDepth int
	metrics    *otel.BookMetrics
	logger     zerolog.Logger
}

// Option configures an OrderService
type Option func(*OrderService)

// WithMessageSender sets where execution reports are sent
func WithMessageSender(sender messaging.MessageSender) Option {
	return func(s *OrderService) {
		s.sender = sender
	}
}

// WithPublisher sets where quotes are published
func WithPublisher(p marketdata.Publisher) Option {
	return func(s *OrderService) {
		s.publisher = p
	}
}

// WithQuoteDepth sets how many levels per side are published
func WithQuoteDepth(n int) Option {
	return func(s *OrderService) {
		s.quoteDepth = n
	}
}

// WithMetrics overrides the metric instruments
func WithMetrics(m *otel.BookMetrics) Option {
	return func(s *OrderService) {
		s.metrics = m
	}
}

// WithLogger sets the service logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *OrderService) {
		s.logger = logger
	}
}

// NewOrderService wires a book and its engine with reporting
func NewOrderService(instrument string, book *core.OrderBook, opts ...Option) *OrderService {
	s := &OrderService{
		instrument: instrument,
		book:       book,
		engine:     core.NewMatchingEngine(book),
		publisher:  marketdata.NopPublisher{},
		quoteDepth: DefaultQuoteDepth,
		metrics:    otel.GetBookMetrics(),
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("instrument", instrument).Logger()
	return s
}

// Instrument returns the instrument the service trades
func (s *OrderService) Instrument() string {
	return s.instrument
}

// Add rests an order without matching it
func (s *OrderService) Add(ctx context.Context, side core.Side, price core.Price, quantity core.Quantity) (core.OrderID, error) {
	ctx, span := otel.StartOrderSpan(ctx, otel.SpanAddOrder,
		attribute.String(otel.AttributeInstrument, s.instrument),
		attribute.String(otel.AttributeOrderSide, side.String()),
		attribute.Int64(otel.AttributeOrderPrice, int64(price)),
		attribute.Int64(otel.AttributeOrderQuantity, int64(quantity)),
	)
	defer span.End()

	s.mu.Lock()
	id, err := s.book.Add(side, price, quantity)
	if err != nil {
		s.mu.Unlock()
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	quote := s.refreshLocked()
	s.mu.Unlock()

	span.SetAttributes(attribute.String(otel.AttributeOrderID, id.String()))
	s.publish(ctx, quote)
	return id, nil
}

// Cancel removes a resting order and reports the outcome
func (s *OrderService) Cancel(ctx context.Context, id core.OrderID) core.CancelResult {
	ctx, span := otel.StartOrderSpan(ctx, otel.SpanCancelOrder,
		attribute.String(otel.AttributeInstrument, s.instrument),
		attribute.String(otel.AttributeOrderID, id.String()),
	)
	defer span.End()

	s.mu.Lock()
	result := s.book.Cancel(id)
	var quote marketdata.Quote
	if result == core.Canceled {
		quote = s.refreshLocked()
	}
	s.mu.Unlock()

	span.SetAttributes(attribute.String(otel.AttributeCancelResult, result.String()))
	s.metrics.RecordCancel(ctx, s.instrument, result.String())

	if s.sender != nil {
		msg := &messaging.CancelMessage{
			Instrument: s.instrument,
			OrderID:    id.String(),
			Result:     result.String(),
			Timestamp:  time.Now().UTC(),
		}
		if err := s.sender.SendCancelMessage(ctx, msg); err != nil {
			span.SetStatus(codes.Error, fmt.Sprintf("failed to send cancel message: %v", err))
			s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to send cancel message")
		}
	}

	if result == core.Canceled {
		s.publish(ctx, quote)
	}
	return result
}

// Submit matches an incoming order and rests its remainder
func (s *OrderService) Submit(ctx context.Context, side core.Side, price core.Price, quantity core.Quantity) (*core.FillResult, error) {
	start := time.Now()

	s.mu.Lock()
	result, err := s.engine.Submit(ctx, side, price, quantity)
	var quote marketdata.Quote
	if result != nil {
		quote = s.quoteLocked()
	}
	s.mu.Unlock()

	if result == nil {
		return nil, err
	}
	if err != nil {
		// fills happened but the remainder could not rest
		s.logger.Error().Err(err).Msg("failed to rest order remainder")
	}

	s.metrics.RecordSubmit(ctx, s.instrument, result.Status.String(),
		len(result.Fills), uint64(result.FilledQuantity()), time.Since(start))

	s.logger.Debug().
		Str("side", side.String()).
		Uint64("price", uint64(price)).
		Uint64("quantity", uint64(quantity)).
		Str("status", result.Status.String()).
		Int("fills", len(result.Fills)).
		Msg("order submitted")

	s.report(ctx, result)
	s.publish(ctx, quote)
	return result, err
}

// TotalQuantity returns the open quantity at price on side
func (s *OrderService) TotalQuantity(side core.Side, price core.Price) (core.Quantity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.book.TotalQuantity(side, price)
}

// BestBidAsk returns the best bid and ask as of the last mutation
func (s *OrderService) BestBidAsk() Quote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Quote{BestBid: s.book.BestBid(), BestAsk: s.book.BestAsk()}
}

// Depth returns up to n non-empty levels of side, best first
func (s *OrderService) Depth(side core.Side, n int) []core.LevelInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.book.Depth(side, n)
}

// Len returns the number of resting orders
func (s *OrderService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.book.Len()
}

// String renders the book
func (s *OrderService) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.book.String()
}

// Close releases the sender and the publisher
func (s *OrderService) Close() error {
	var firstErr error
	if s.sender != nil {
		firstErr = s.sender.Close()
	}
	if err := s.publisher.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// refreshLocked must be called with the write lock held
func (s *OrderService) refreshLocked() marketdata.Quote {
	s.book.RefreshBestBidAsk()
	return s.quoteLocked()
}

func (s *OrderService) quoteLocked() marketdata.Quote {
	return marketdata.Quote{
		Instrument: s.instrument,
		BestBid:    s.book.BestBid(),
		BestAsk:    s.book.BestAsk(),
		Bids:       s.book.Depth(core.Bid, s.quoteDepth),
		Asks:       s.book.Depth(core.Ask, s.quoteDepth),
		Timestamp:  time.Now().UTC(),
	}
}

func (s *OrderService) report(ctx context.Context, result *core.FillResult) {
	if s.sender == nil {
		return
	}

	ctx, span := otel.StartOrderSpan(ctx, otel.SpanSendToKafka,
		attribute.String(otel.AttributeInstrument, s.instrument),
	)
	defer span.End()

	msg := result.ToMessagingDoneMessage(s.instrument)
	if err := s.sender.SendDoneMessage(ctx, msg); err != nil {
		span.SetStatus(codes.Error, fmt.Sprintf("failed to send order message: %v", err))
		s.logger.Error().Err(err).Msg("failed to send done message")
		return
	}
	span.SetStatus(codes.Ok, "message sent")
}

func (s *OrderService) publish(ctx context.Context, quote marketdata.Quote) {
	ctx, span := otel.StartOrderSpan(ctx, otel.SpanPublishQuote,
		attribute.String(otel.AttributeInstrument, s.instrument),
	)
	defer span.End()

	if err := s.publisher.PublishQuote(ctx, quote); err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn().Err(err).Msg("failed to publish quote")
	}
}
