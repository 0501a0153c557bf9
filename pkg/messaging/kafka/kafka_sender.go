package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/erain9/limitbook/pkg/messaging"
	"github.com/segmentio/kafka-go"
)

const (
	// HeaderMessageType tells consumers how to decode the value
	HeaderMessageType = "type"

	TypeDone   = "done"
	TypeCancel = "cancel"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaMessageSender implements MessageSender using kafka-go
type KafkaMessageSender struct {
	writer  messageWriter
	topic   string
	timeout time.Duration
}

// NewKafkaMessageSender creates a new Kafka message sender
func NewKafkaMessageSender(brokers []string, topic string) *KafkaMessageSender {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return newKafkaMessageSender(writer, topic)
}

func newKafkaMessageSender(writer messageWriter, topic string) *KafkaMessageSender {
	return &KafkaMessageSender{
		writer:  writer,
		topic:   topic,
		timeout: 5 * time.Second,
	}
}

// SendDoneMessage sends a done message to Kafka
func (k *KafkaMessageSender) SendDoneMessage(ctx context.Context, done *messaging.DoneMessage) error {
	return k.send(ctx, TypeDone, done.Key(), done)
}

// SendCancelMessage sends a cancel message to Kafka
func (k *KafkaMessageSender) SendCancelMessage(ctx context.Context, cancel *messaging.CancelMessage) error {
	return k.send(ctx, TypeCancel, cancel.Key(), cancel)
}

func (k *KafkaMessageSender) send(ctx context.Context, msgType, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s message: %w", msgType, err)
	}

	msg := kafka.Message{
		Key:     []byte(key),
		Value:   data,
		Time:    time.Now(),
		Headers: []kafka.Header{{Key: HeaderMessageType, Value: []byte(msgType)}},
	}

	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()

	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to send message to Kafka topic %s: %w", k.topic, err)
	}
	return nil
}

// Close closes the Kafka writer
func (k *KafkaMessageSender) Close() error {
	return k.writer.Close()
}

var _ messaging.MessageSender = (*KafkaMessageSender)(nil)
