package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"ms-preorder/internal/config"
	"ms-preorder/internal/models"
	"ms-preorder/internal/money"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func testProducer(w *recordingWriter) *Producer {
	return &Producer{
		Writer: w,
		Topics: config.TopicConfig{OrderCreated: "orders.created", OrderStatusChanged: "orders.status"},
	}
}

func TestPublishOrderCreated(t *testing.T) {
	w := &recordingWriter{}
	p := testProducer(w)

	order := models.Order{ID: "o-1", Day: "2025-03-01", OrderNo: 4, UserID: "u1", Amount: money.Amount(22000), Status: models.StatusPreparing}
	event := models.NewOrderEvent(models.EventOrderCreated, order, time.Date(2025, 3, 1, 4, 0, 0, 0, time.UTC))

	require.NoError(t, p.PublishOrderCreated(context.Background(), event))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "orders.created", msg.Topic)
	assert.Equal(t, "o-1", string(msg.Key))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "order_created", decoded["type"])
	assert.Equal(t, "220.00", decoded["amount"])
	assert.Equal(t, float64(4), decoded["order_no"])
}

func TestPublishOrderStatusChanged(t *testing.T) {
	w := &recordingWriter{}
	p := testProducer(w)

	event := models.OrderEvent{Type: models.EventOrderStatusChanged, OrderID: "o-2", FromStatus: models.StatusPreparing, Status: models.StatusReady}
	require.NoError(t, p.PublishOrderStatusChanged(context.Background(), event))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "orders.status", w.msgs[0].Topic)
}

func TestPublish_WriterError(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker down")}
	p := testProducer(w)

	err := p.PublishOrderCreated(context.Background(), models.OrderEvent{Type: models.EventOrderCreated, OrderID: "o-3"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.Contains(t, err.Error(), "orders.created")
}
