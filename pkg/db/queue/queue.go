package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/erain9/limitbook/pkg/messaging"
)

const (
	headerMessageType = "type"
	maxRetry          = 5
)

// newSyncProducer is swapped out by tests
var newSyncProducer = sarama.NewSyncProducer

// QueueMessageSender implements the MessageSender interface on top of a
// sarama SyncProducer. Reports are JSON encoded and keyed by instrument.
type QueueMessageSender struct {
	producer sarama.SyncProducer
	topic    string
}

// NewQueueMessageSender connects a synchronous producer to brokers
func NewQueueMessageSender(brokers []string, topic string) (*QueueMessageSender, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Retry.Max = maxRetry
	cfg.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := newSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &QueueMessageSender{
		producer: producer,
		topic:    topic,
	}, nil
}

// SendDoneMessage sends the DoneMessage to the Kafka queue
func (q *QueueMessageSender) SendDoneMessage(ctx context.Context, done *messaging.DoneMessage) error {
	return q.send(ctx, "done", done.Key(), done)
}

// SendCancelMessage sends the CancelMessage to the Kafka queue
func (q *QueueMessageSender) SendCancelMessage(ctx context.Context, cancel *messaging.CancelMessage) error {
	return q.send(ctx, "cancel", cancel.Key(), cancel)
}

func (q *QueueMessageSender) send(ctx context.Context, msgType, key string, v interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s message: %w", msgType, err)
	}

	msg := &sarama.ProducerMessage{
		Topic: q.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte(headerMessageType), Value: []byte(msgType)},
		},
	}

	if _, _, err := q.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("failed to send message to Kafka: %w", err)
	}
	return nil
}

// Close closes the underlying producer
func (q *QueueMessageSender) Close() error {
	return q.producer.Close()
}

var _ messaging.MessageSender = (*QueueMessageSender)(nil)
