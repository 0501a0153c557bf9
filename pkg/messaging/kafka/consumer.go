package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/erain9/limitbook/pkg/messaging"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Handlers receive decoded reports. Nil handlers skip that message type.
type Handlers struct {
	Done   func(*messaging.DoneMessage) error
	Cancel func(*messaging.CancelMessage) error
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer tails the report topic. It is meant for operators and tests that
// want to see what the book publishes.
type Consumer struct {
	reader messageReader
	logger zerolog.Logger
}

// NewConsumer creates a consumer reading topic from the latest offset
func NewConsumer(brokers []string, topic, groupID string, logger zerolog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupID,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset,
	})
	return &Consumer{reader: reader, logger: logger}
}

// Run reads messages until ctx is done, dispatching them to h
func (c *Consumer) Run(ctx context.Context, h Handlers) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("failed to read message: %w", err)
		}
		if err := dispatch(msg, h); err != nil {
			c.logger.Error().Err(err).Int64("offset", msg.Offset).Msg("Failed to handle report")
		}
	}
}

// Close closes the reader
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// SetupConsumer starts a consumer that logs every report it sees
func SetupConsumer(ctx context.Context, brokers []string, topic string, logger zerolog.Logger) *Consumer {
	consumer := NewConsumer(brokers, topic, "", logger)
	go func() {
		logger.Info().Str("topic", topic).Msg("Starting Kafka consumer")
		err := consumer.Run(ctx, Handlers{
			Done: func(msg *messaging.DoneMessage) error {
				logger.Info().
					Str("instrument", msg.Instrument).
					Str("order_id", msg.OrderID).
					Str("status", msg.Status).
					Str("executed_qty", msg.ExecutedQty).
					Str("remaining_qty", msg.RemainingQty).
					Str("avg_price", msg.AvgPrice).
					Int("fills", len(msg.Fills)).
					Msg("Received done message")
				return nil
			},
			Cancel: func(msg *messaging.CancelMessage) error {
				logger.Info().
					Str("instrument", msg.Instrument).
					Str("order_id", msg.OrderID).
					Str("result", msg.Result).
					Msg("Received cancel message")
				return nil
			},
		})
		if err != nil {
			logger.Error().Err(err).Msg("Kafka consumer error")
		}
	}()
	return consumer
}

func dispatch(msg kafka.Message, h Handlers) error {
	msgType := ""
	for _, header := range msg.Headers {
		if header.Key == HeaderMessageType {
			msgType = string(header.Value)
		}
	}

	switch msgType {
	case TypeDone:
		if h.Done == nil {
			return nil
		}
		var done messaging.DoneMessage
		if err := json.Unmarshal(msg.Value, &done); err != nil {
			return fmt.Errorf("failed to unmarshal done message: %w", err)
		}
		return h.Done(&done)
	case TypeCancel:
		if h.Cancel == nil {
			return nil
		}
		var cancel messaging.CancelMessage
		if err := json.Unmarshal(msg.Value, &cancel); err != nil {
			return fmt.Errorf("failed to unmarshal cancel message: %w", err)
		}
		return h.Cancel(&cancel)
	default:
		return fmt.Errorf("unknown message type %q", msgType)
	}
}
