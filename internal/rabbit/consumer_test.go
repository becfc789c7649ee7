package rabbit

import (
	"context"
	"fmt"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"go-rabbit/internal/observability"
	"go-rabbit/pkg/models"
)

func newTestConsumer(t *testing.T, poison PoisonConfig, publisher Publisher, metrics observability.MetricsCollector) *Consumer {
	t.Helper()
	consumer, err := NewConsumer(ConsumerConfig{
		Queue:   "order.created.q",
		Workers: 2,
		Poison:  poison,
		Metrics: metrics,
		Logger:  zap.NewNop(),
	}, fakeChannel{}, publisher)
	require.NoError(t, err)
	return consumer
}

// fakeChannel satisfies ConsumeChannel for tests that drive processDelivery
// directly.
type fakeChannel struct{}

func (fakeChannel) Qos(int, int, bool) error { return nil }

func (fakeChannel) Consume(string, string, bool, bool, bool, bool, amqp.Table) (<-chan amqp.Delivery, error) {
	ch := make(chan amqp.Delivery)
	close(ch)
	return ch, nil
}

func newAMQPDelivery(ack *MockAcknowledger, headers amqp.Table) amqp.Delivery {
	return amqp.Delivery{
		Acknowledger:  ack,
		DeliveryTag:   1,
		Body:          []byte(`{"event_type":"order_created","order_id":"ORD-1"}`),
		Headers:       headers,
		ContentType:   "application/json",
		MessageId:     "msg-123",
		CorrelationId: "corr-123",
		Exchange:      "order.events",
		RoutingKey:    "order.created",
	}
}

func TestConsumer_ProcessDelivery_Ack(t *testing.T) {
	publisher := NewMockPublisher()
	metrics := observability.NewInMemoryMetrics()
	consumer := newTestConsumer(t, PoisonConfig{Mode: PoisonModeLogging, MaxAttempts: 3}, publisher, metrics)

	ack := NewMockAcknowledger()
	handlerCalled := false
	handler := func(ctx context.Context, msg *models.Delivery) (Outcome, error) {
		handlerCalled = true
		assert.Equal(t, "msg-123", msg.Properties.MessageID)
		return Ack(), nil
	}

	consumer.processDelivery(context.Background(), newAMQPDelivery(ack, nil), handler, 0)

	assert.True(t, handlerCalled)
	assert.Equal(t, []uint64{1}, ack.Acks)
	assert.Empty(t, ack.Nacks)
	assert.Equal(t, int64(1), metrics.GetAcked())
	assert.Empty(t, publisher.GetPublishedMessages())
}

func TestConsumer_ProcessDelivery_Reject(t *testing.T) {
	publisher := NewMockPublisher()
	metrics := observability.NewInMemoryMetrics()
	consumer := newTestConsumer(t, PoisonConfig{Mode: PoisonModeLogging, MaxAttempts: 3}, publisher, metrics)

	ack := NewMockAcknowledger()
	handler := func(ctx context.Context, msg *models.Delivery) (Outcome, error) {
		return Reject(), nil
	}

	consumer.processDelivery(context.Background(), newAMQPDelivery(ack, nil), handler, 0)

	require.Len(t, ack.Nacks, 1)
	assert.False(t, ack.Nacks[0].Requeue)
	assert.Equal(t, int64(1), metrics.GetRejected())
}

func TestConsumer_ProcessDelivery_HandlerErrorRequeues(t *testing.T) {
	publisher := NewMockPublisher()
	metrics := observability.NewInMemoryMetrics()
	consumer := newTestConsumer(t, PoisonConfig{Mode: PoisonModeLogging, MaxAttempts: 3}, publisher, metrics)

	ack := NewMockAcknowledger()
	handler := func(ctx context.Context, msg *models.Delivery) (Outcome, error) {
		return Ack(), fmt.Errorf("downstream unavailable")
	}

	consumer.processDelivery(context.Background(), newAMQPDelivery(ack, nil), handler, 0)

	require.Len(t, ack.Nacks, 1)
	assert.True(t, ack.Nacks[0].Requeue)
	assert.Equal(t, int64(1), metrics.GetRequeued())
}

func TestConsumer_ProcessDelivery_RepublishMergesHeaders(t *testing.T) {
	publisher := NewMockPublisher()
	metrics := observability.NewInMemoryMetrics()
	consumer := newTestConsumer(t, PoisonConfig{Mode: PoisonModeLogging, MaxAttempts: 3}, publisher, metrics)

	ack := NewMockAcknowledger()
	handler := func(ctx context.Context, msg *models.Delivery) (Outcome, error) {
		return Republish(false, amqp.Table{"x-origin": "billing"}), nil
	}

	consumer.processDelivery(context.Background(), newAMQPDelivery(ack, amqp.Table{"x-tenant": "acme"}), handler, 0)

	published := publisher.GetPublishedMessages()
	require.Len(t, published, 1)
	assert.Equal(t, "", published[0].Exchange)
	assert.Equal(t, "order.created.q", published[0].RoutingKey)
	assert.Equal(t, "acme", published[0].Publishing.Headers["x-tenant"])
	assert.Equal(t, "billing", published[0].Publishing.Headers["x-origin"])

	// Original acked only after the copy went out.
	assert.Equal(t, []uint64{1}, ack.Acks)
	assert.Equal(t, int64(1), metrics.GetRepublished())
}

func TestConsumer_ProcessDelivery_PoisonedRepublishCarriesCount(t *testing.T) {
	publisher := NewMockPublisher()
	metrics := observability.NewInMemoryMetrics()
	consumer := newTestConsumer(t, PoisonConfig{Mode: PoisonModeLogging, MaxAttempts: 3}, publisher, metrics)

	ack := NewMockAcknowledger()
	handler := func(ctx context.Context, msg *models.Delivery) (Outcome, error) {
		return Republish(true, nil), nil
	}

	consumer.processDelivery(context.Background(), newAMQPDelivery(ack, nil), handler, 0)

	published := publisher.GetPublishedMessages()
	require.Len(t, published, 1)
	assert.Equal(t, int64(1), published[0].Publishing.Headers[models.HeaderRepublishCount])
	assert.Equal(t, []uint64{1}, ack.Acks)
}

func TestConsumer_ProcessDelivery_ExhaustedPoisonDeadLetters(t *testing.T) {
	publisher := NewMockPublisher()
	metrics := observability.NewInMemoryMetrics()
	consumer := newTestConsumer(t, PoisonConfig{
		Mode:        PoisonModeDeadLetter,
		MaxAttempts: 3,
		DeadLetter: DeadLetterDestination{
			Exchange:   "order.events.dead",
			RoutingKey: "order.created.dead",
		},
	}, publisher, metrics)

	ack := NewMockAcknowledger()
	handler := func(ctx context.Context, msg *models.Delivery) (Outcome, error) {
		return Republish(true, nil), nil
	}

	headers := amqp.Table{models.HeaderRepublishCount: int32(2)}
	consumer.processDelivery(context.Background(), newAMQPDelivery(ack, headers), handler, 0)

	published := publisher.GetPublishedMessages()
	require.Len(t, published, 1)
	assert.Equal(t, "order.events.dead", published[0].Exchange)

	require.Len(t, ack.Nacks, 1)
	assert.False(t, ack.Nacks[0].Requeue)
	assert.Equal(t, int64(1), metrics.GetDeadLettered())
	assert.Equal(t, int64(1), metrics.GetRejected())
}

func TestConsumer_ProcessDelivery_RepublishFailureRequeuesOriginal(t *testing.T) {
	publisher := NewMockPublisher()
	publisher.FailCount = 1
	metrics := observability.NewInMemoryMetrics()
	consumer := newTestConsumer(t, PoisonConfig{Mode: PoisonModeLogging, MaxAttempts: 3}, publisher, metrics)

	ack := NewMockAcknowledger()
	handler := func(ctx context.Context, msg *models.Delivery) (Outcome, error) {
		return Republish(false, nil), nil
	}

	consumer.processDelivery(context.Background(), newAMQPDelivery(ack, nil), handler, 0)

	require.Len(t, ack.Nacks, 1)
	assert.True(t, ack.Nacks[0].Requeue)
	assert.Empty(t, ack.Acks)
	assert.Equal(t, int64(0), metrics.GetRepublished())
}

func TestNewConsumer_Validation(t *testing.T) {
	publisher := NewMockPublisher()

	_, err := NewConsumer(ConsumerConfig{}, fakeChannel{}, publisher)
	assert.Error(t, err)

	_, err = NewConsumer(ConsumerConfig{Queue: "q"}, nil, publisher)
	assert.Error(t, err)

	_, err = NewConsumer(ConsumerConfig{Queue: "q"}, fakeChannel{}, nil)
	assert.Error(t, err)

	// Misconfigured poisoned-message handling must prevent startup.
	_, err = NewConsumer(ConsumerConfig{
		Queue:  "q",
		Poison: PoisonConfig{Mode: PoisonModeDeadLetter, MaxAttempts: 3},
	}, fakeChannel{}, publisher)
	assert.Error(t, err)
}
