package rabbit

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"go-rabbit/pkg/models"
)

// Publisher is the message-publish capability the pipeline borrows from the
// connection-owning layer. It must be safe for concurrent use; the pipeline
// never manages its lifecycle.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, pub amqp.Publishing) error
}

// DeadLetterForwarder copies a poisoned message's original body and
// properties to a separately configured destination before the message is
// dropped from its source queue. It performs no retries; observing a failed
// forward is the caller's responsibility.
type DeadLetterForwarder struct {
	dest      DeadLetterDestination
	publisher Publisher
}

func NewDeadLetterForwarder(dest DeadLetterDestination, publisher Publisher) *DeadLetterForwarder {
	return &DeadLetterForwarder{
		dest:      dest,
		publisher: publisher,
	}
}

func (f *DeadLetterForwarder) Forward(ctx context.Context, msg *models.Delivery) error {
	if err := f.publisher.Publish(ctx, f.dest.Exchange, f.dest.RoutingKey, msg.ToPublishing()); err != nil {
		return fmt.Errorf("forward to dead-letter destination: %w", err)
	}
	return nil
}
