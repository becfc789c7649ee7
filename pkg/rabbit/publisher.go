package rabbit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ============================================================================
// Publisher Implementation
// ============================================================================

// Publisher sends messages on a confirm-mode channel and waits for the
// broker acknowledgment of each publish. Publish/confirm pairs are
// serialized with a mutex, so a single Publisher is safe for concurrent use
// across workers.
type Publisher struct {
	ch             *amqp.Channel
	confirms       chan amqp.Confirmation
	confirmTimeout time.Duration
	logger         Logger
	mu             sync.Mutex
}

func NewPublisher(ch *amqp.Channel, config PublisherConfig) (*Publisher, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid publisher config: %w", err)
	}
	if config.ConfirmTimeout == 0 {
		config.ConfirmTimeout = 5 * time.Second
	}
	if config.Logger == nil {
		config.Logger = &DefaultLogger{}
	}

	if err := ch.Confirm(false); err != nil {
		return nil, fmt.Errorf("enable confirm mode: %w", err)
	}

	return &Publisher{
		ch:             ch,
		confirms:       ch.NotifyPublish(make(chan amqp.Confirmation, 1)),
		confirmTimeout: config.ConfirmTimeout,
		logger:         config.Logger,
	}, nil
}

// Publish sends one message and waits for the broker confirmation.
func (p *Publisher) Publish(ctx context.Context, exchange, routingKey string, pub amqp.Publishing) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.PublishWithContext(
		ctx,
		exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		pub,
	); err != nil {
		return &RetryableError{Err: err}
	}

	select {
	case confirm, ok := <-p.confirms:
		if !ok {
			return &PermanentError{Err: errors.New("confirmation channel closed")}
		}
		if !confirm.Ack {
			return &RetryableError{Err: errors.New("broker nacked publish")}
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.confirmTimeout):
		return &RetryableError{Err: errors.New("publish confirmation timeout")}
	}
}

// PublishWithRetry retries transient publish failures with exponential
// backoff. Permanent errors and context cancellation stop immediately.
func (p *Publisher) PublishWithRetry(ctx context.Context, exchange, routingKey string, pub amqp.Publishing, policy RetryPolicy) error {
	var lastErr error

	for attempt := 0; attempt < policy.MaxRetries; attempt++ {
		err := p.Publish(ctx, exchange, routingKey, pub)
		if err == nil {
			return nil
		}
		if IsPermanent(err) || ctx.Err() != nil {
			return err
		}

		lastErr = err
		p.logger.Warn("failed to publish message",
			"attempt", attempt+1,
			"max_retries", policy.MaxRetries,
			"routing_key", routingKey,
			"error", err)

		if attempt < policy.MaxRetries-1 {
			backoff := calculateBackoff(policy, attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return lastErr
}

func calculateBackoff(policy RetryPolicy, attempt int) time.Duration {
	backoff := time.Duration(float64(policy.InitialBackoff) * math.Pow(policy.BackoffFactor, float64(attempt)))

	if backoff > policy.MaxBackoff {
		backoff = policy.MaxBackoff
	}

	if policy.Jitter && backoff > 0 {
		maxJitter := backoff / 4
		if maxJitter > 0 {
			jitter := time.Duration(rand.Int63n(int64(maxJitter)))
			backoff += jitter

			if backoff > policy.MaxBackoff {
				backoff = policy.MaxBackoff
			}
		}
	}

	return backoff
}
