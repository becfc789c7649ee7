package rabbit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"go-rabbit/internal/observability"
	"go-rabbit/pkg/models"
)

// DeliveryHandler is the application-level processing step. It decides the
// disposition of one delivery; a returned error is logged and treated as
// Retry.
type DeliveryHandler func(ctx context.Context, msg *models.Delivery) (Outcome, error)

// ConsumeChannel is the slice of the AMQP channel surface the consumer
// needs. *amqp.Channel satisfies it.
type ConsumeChannel interface {
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// Consumer drives message consumption with a worker pool. Each delivery runs
// through the application handler, then the poisoned-message handler, and
// the resulting outcome is executed against the broker.
type Consumer struct {
	ch             ConsumeChannel
	publisher      Publisher
	poison         PoisonedMessageHandler
	logger         *zap.Logger
	metrics        observability.MetricsCollector
	queue          string
	consumerTag    string
	workers        int
	prefetch       int
	handlerTimeout time.Duration
	wg             sync.WaitGroup
}

type ConsumerConfig struct {
	Queue          string
	ConsumerTag    string
	Workers        int
	Prefetch       int
	HandlerTimeout time.Duration
	Poison         PoisonConfig
	Metrics        observability.MetricsCollector
	Logger         *zap.Logger
}

func NewConsumer(cfg ConsumerConfig, ch ConsumeChannel, publisher Publisher) (*Consumer, error) {
	if cfg.Queue == "" {
		return nil, errors.New("queue cannot be empty")
	}
	if ch == nil {
		return nil, errors.New("channel cannot be nil")
	}
	if publisher == nil {
		return nil, errors.New("publisher cannot be nil")
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NewInMemoryMetrics()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Workers == 0 {
		cfg.Workers = 5
	}
	if cfg.Prefetch == 0 {
		cfg.Prefetch = cfg.Workers * 2
	}
	if cfg.HandlerTimeout == 0 {
		cfg.HandlerTimeout = 30 * time.Second
	}

	poison, err := NewPoisonedMessageHandler(cfg.Poison, publisher, cfg.Logger, cfg.Metrics)
	if err != nil {
		return nil, err
	}

	return &Consumer{
		ch:             ch,
		publisher:      publisher,
		poison:         poison,
		logger:         cfg.Logger,
		metrics:        cfg.Metrics,
		queue:          cfg.Queue,
		consumerTag:    cfg.ConsumerTag,
		workers:        cfg.Workers,
		prefetch:       cfg.Prefetch,
		handlerTimeout: cfg.HandlerTimeout,
	}, nil
}

// Start begins consuming and blocks until the context is cancelled or the
// broker closes the delivery stream, then waits for in-flight workers.
func (c *Consumer) Start(ctx context.Context, handler DeliveryHandler) error {
	// fair dispatch
	if err := c.ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := c.ch.Consume(
		c.queue,
		c.consumerTag,
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}

	c.logger.Info("Starting consumer",
		zap.Any("queue", c.queue),
		zap.Any("workers", c.workers),
		zap.Any("prefetch", c.prefetch),
	)

	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go c.worker(ctx, i, deliveries, handler)
	}

	c.wg.Wait()
	return nil
}

// worker processes deliveries until the stream closes
func (c *Consumer) worker(ctx context.Context, id int, deliveries <-chan amqp.Delivery, handler DeliveryHandler) {
	defer c.wg.Done()
	c.logger.Info("Worker started", zap.Any("worker_id", id))

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Worker stopping due to context cancellation", zap.Any("worker_id", id))
			return
		case d, ok := <-deliveries:
			if !ok {
				c.logger.Info("Worker stopping - delivery stream closed", zap.Any("worker_id", id))
				return
			}
			c.processDelivery(ctx, d, handler, id)
		}
	}
}

// processDelivery runs one delivery through the handler and the
// poisoned-message interception, then executes the final outcome.
func (c *Consumer) processDelivery(ctx context.Context, d amqp.Delivery, handler DeliveryHandler, workerID int) {
	msg := models.FromAMQP(d)
	c.metrics.IncReceived()

	logger := c.logger.With(
		zap.Any("queue", c.queue),
		zap.Any("message_id", msg.Properties.MessageID),
		zap.Any("correlation_id", msg.Properties.CorrelationID),
		zap.Any("worker_id", workerID),
	)

	handlerCtx, cancel := context.WithTimeout(ctx, c.handlerTimeout)
	out, err := handler(handlerCtx, msg)
	cancel()
	if err != nil {
		logger.Error("Handler failed, requeueing delivery", zap.Error(err))
		out = Retry()
	}

	// The intercept runs outside the handler timeout: a slow dead-letter
	// publish must not be cut short by an already-spent handler budget.
	final := c.poison.Intercept(ctx, msg, out)

	c.execute(ctx, d, msg, final, logger)
}

// execute applies the final outcome against the broker.
func (c *Consumer) execute(ctx context.Context, d amqp.Delivery, msg *models.Delivery, out Outcome, logger *zap.Logger) {
	switch out.Kind {
	case OutcomeAck:
		if err := d.Ack(false); err != nil {
			logger.Error("Failed to ack message", zap.Error(err))
			return
		}
		c.metrics.IncAcked()

	case OutcomeReject:
		if err := d.Nack(false, false); err != nil {
			logger.Error("Failed to reject message", zap.Error(err))
			return
		}
		c.metrics.IncRejected()
		logger.Debug("Message rejected")

	case OutcomeRetry:
		if err := d.Nack(false, true); err != nil {
			logger.Error("Failed to requeue message", zap.Error(err))
			return
		}
		c.metrics.IncRequeued()

	case OutcomeRepublish:
		pub := msg.ToPublishing()
		pub.Headers = mergeHeaders(msg.Headers, out.NewHeaders)

		// Republish to the source queue through the default exchange. Only
		// ack the original once the copy is on its way; if the publish
		// fails, requeue so the message is not lost.
		if err := c.publisher.Publish(ctx, "", c.queue, pub); err != nil {
			logger.Error("Republish failed, requeueing original", zap.Error(err))
			if nackErr := d.Nack(false, true); nackErr != nil {
				logger.Error("Failed to requeue message", zap.Error(nackErr))
			}
			return
		}
		if err := d.Ack(false); err != nil {
			logger.Error("Failed to ack republished message", zap.Error(err))
			return
		}
		c.metrics.IncRepublished()
	}
}

// mergeHeaders overlays overlay onto base in a fresh map; the inputs stay
// untouched for any other holder of the same delivery.
func mergeHeaders(base, overlay amqp.Table) amqp.Table {
	merged := make(amqp.Table, len(base)+len(overlay))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overlay {
		merged[k] = v
	}
	return merged
}
