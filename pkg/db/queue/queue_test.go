package queue

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/IBM/sarama"
	"github.com/erain9/limitbook/pkg/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSender(t *testing.T, prod *mockProducer) *QueueMessageSender {
	t.Helper()

	oldNewSyncProducer := newSyncProducer
	t.Cleanup(func() { newSyncProducer = oldNewSyncProducer })
	newSyncProducer = func(addrs []string, config *sarama.Config) (sarama.SyncProducer, error) {
		assert.Equal(t, []string{"broker:9092"}, addrs)
		assert.True(t, config.Producer.Return.Successes)
		return prod, nil
	}

	sender, err := NewQueueMessageSender([]string{"broker:9092"}, "book-reports")
	require.NoError(t, err)
	return sender
}

func TestQueueMessageSender_SendDoneMessage(t *testing.T) {
	prod := &mockProducer{}
	sender := newTestSender(t, prod)

	done := &messaging.DoneMessage{
		Instrument:   "BTC-USD",
		OrderID:      "7",
		Side:         "BID",
		Price:        "100.000",
		Quantity:     "8.000",
		Status:       "PARTIALLY_FILLED",
		ExecutedQty:  "5.000",
		RemainingQty: "3.000",
		AvgPrice:     "100.000",
		Fills: []messaging.Fill{
			{MakerOrderID: "1", Price: "100.000", Quantity: "5.000"},
		},
		Stored: true,
	}

	err := sender.SendDoneMessage(context.Background(), done)
	require.NoError(t, err)

	require.Len(t, prod.sentMessages, 1)
	msg := prod.sentMessages[0]
	assert.Equal(t, "book-reports", msg.Topic)
	assert.Equal(t, sarama.StringEncoder("BTC-USD"), msg.Key)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "done", string(msg.Headers[0].Value))

	var decoded messaging.DoneMessage
	require.NoError(t, json.Unmarshal(msg.Value.(sarama.ByteEncoder), &decoded))
	assert.Equal(t, done.OrderID, decoded.OrderID)
	assert.Equal(t, done.Status, decoded.Status)
	assert.Equal(t, done.RemainingQty, decoded.RemainingQty)
	assert.Equal(t, done.Fills, decoded.Fills)
	assert.True(t, decoded.Stored)
}

func TestQueueMessageSender_SendCancelMessage(t *testing.T) {
	prod := &mockProducer{}
	sender := newTestSender(t, prod)

	err := sender.SendCancelMessage(context.Background(), &messaging.CancelMessage{
		Instrument: "BTC-USD",
		OrderID:    "42",
		Result:     "CANCELED",
	})
	require.NoError(t, err)

	require.Len(t, prod.sentMessages, 1)
	assert.Equal(t, "cancel", string(prod.sentMessages[0].Headers[0].Value))

	var decoded messaging.CancelMessage
	require.NoError(t, json.Unmarshal(prod.sentMessages[0].Value.(sarama.ByteEncoder), &decoded))
	assert.Equal(t, "42", decoded.OrderID)
	assert.Equal(t, "CANCELED", decoded.Result)
}

func TestQueueMessageSender_Errors(t *testing.T) {
	prod := &mockProducer{fail: true}
	sender := newTestSender(t, prod)

	err := sender.SendCancelMessage(context.Background(), &messaging.CancelMessage{OrderID: "1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to send message to Kafka")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	prod.fail = false
	err = sender.SendDoneMessage(ctx, &messaging.DoneMessage{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, prod.sentMessages)

	require.NoError(t, sender.Close())
	assert.True(t, prod.closed)
}
