package rabbit

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ============================================================================
// Topology Declaration
// ============================================================================

// DeclareTopology sets up the exchange, queue, and binding once at startup.
// The dead-letter destination is declared only when its policy asks for it;
// otherwise it is assumed to exist already.
func DeclareTopology(ch *amqp.Channel, t Topology) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("invalid topology: %w", err)
	}

	if err := ch.ExchangeDeclare(
		t.Exchange,
		t.ExchangeType,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		t.Queue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, t.RoutingKey, t.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	if t.DeadLetter.Declare {
		if err := declareDeadLetter(ch, t.DeadLetter); err != nil {
			return err
		}
	}

	return nil
}

func declareDeadLetter(ch *amqp.Channel, dl DeadLetterTopology) error {
	if err := ch.ExchangeDeclare(
		dl.Exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("declare dead-letter exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		dl.Queue,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare dead-letter queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, dl.RoutingKey, dl.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind dead-letter queue: %w", err)
	}

	return nil
}
