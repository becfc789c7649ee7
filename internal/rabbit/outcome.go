package rabbit

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

// OutcomeKind enumerates the dispositions a processed delivery can receive.
type OutcomeKind int

const (
	// OutcomeAck removes the message from its queue.
	OutcomeAck OutcomeKind = iota
	// OutcomeReject removes the message without redelivery.
	OutcomeReject
	// OutcomeRetry requeues the message for immediate broker redelivery.
	OutcomeRetry
	// OutcomeRepublish acks the original and publishes a copy back to the
	// source queue, with NewHeaders merged onto the message headers.
	OutcomeRepublish
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeAck:
		return "ack"
	case OutcomeReject:
		return "reject"
	case OutcomeRetry:
		return "retry"
	case OutcomeRepublish:
		return "republish"
	default:
		return "unknown"
	}
}

// Outcome is the processing decision for one delivery. Application handlers
// produce it and the consumer executes it against the broker, after giving
// the poisoned-message handler a chance to rewrite it.
type Outcome struct {
	Kind OutcomeKind

	// IsPoisoned marks a Republish as a poisoned-message retry, which makes
	// it subject to the configured attempt limit.
	IsPoisoned bool

	// NewHeaders are merged onto the message headers when republishing.
	NewHeaders amqp.Table
}

func Ack() Outcome {
	return Outcome{Kind: OutcomeAck}
}

func Reject() Outcome {
	return Outcome{Kind: OutcomeReject}
}

func Retry() Outcome {
	return Outcome{Kind: OutcomeRetry}
}

func Republish(poisoned bool, newHeaders amqp.Table) Outcome {
	return Outcome{Kind: OutcomeRepublish, IsPoisoned: poisoned, NewHeaders: newHeaders}
}
