package rabbit

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"go-rabbit/internal/observability"
	"go-rabbit/pkg/models"
)

// PoisonMode selects how a consumer disposes of messages that keep failing.
type PoisonMode string

const (
	// PoisonModeNone disables poisoned-message handling entirely; every
	// outcome passes through untouched.
	PoisonModeNone PoisonMode = "none"
	// PoisonModeLogging bounds poisoned retries and logs when a message is
	// dropped.
	PoisonModeLogging PoisonMode = "logging"
	// PoisonModeDeadLetter bounds poisoned retries and forwards exhausted
	// messages to a configured destination before dropping them.
	PoisonModeDeadLetter PoisonMode = "dead-letter"
)

// DeadLetterDestination is where exhausted poisoned messages are forwarded.
type DeadLetterDestination struct {
	Exchange   string
	RoutingKey string
}

// PoisonConfig is fixed for the lifetime of a consumer.
type PoisonConfig struct {
	Mode        PoisonMode
	MaxAttempts int
	DeadLetter  DeadLetterDestination
}

func (c PoisonConfig) Validate() error {
	switch c.Mode {
	case PoisonModeNone, "":
		return nil
	case PoisonModeLogging:
		if c.MaxAttempts <= 0 {
			return errors.New("maxAttempts must be positive")
		}
		return nil
	case PoisonModeDeadLetter:
		if c.MaxAttempts <= 0 {
			return errors.New("maxAttempts must be positive")
		}
		if c.DeadLetter.RoutingKey == "" && c.DeadLetter.Exchange == "" {
			return errors.New("dead-letter destination required")
		}
		return nil
	default:
		return fmt.Errorf("unknown poison mode %q", c.Mode)
	}
}

// PoisonedMessageHandler intercepts each processing outcome before the
// pipeline executes it, converting a persistently poisoned message into a
// bounded retry-then-terminate decision. Implementations hold no per-message
// state (the attempt count lives in the message headers), so one handler is
// safe for concurrent deliveries.
type PoisonedMessageHandler interface {
	Intercept(ctx context.Context, msg *models.Delivery, out Outcome) Outcome
}

// NewPoisonedMessageHandler builds the handler variant selected by cfg.
// PoisonModeDeadLetter additionally requires a publisher; configuration
// errors are fatal here so a misconfigured consumer never starts.
func NewPoisonedMessageHandler(cfg PoisonConfig, publisher Publisher, logger *zap.Logger, metrics observability.MetricsCollector) (PoisonedMessageHandler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid poison config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NewInMemoryMetrics()
	}

	switch cfg.Mode {
	case PoisonModeNone, "":
		return noopPoisonedHandler{}, nil
	case PoisonModeLogging:
		return &loggingPoisonedHandler{
			maxAttempts: cfg.MaxAttempts,
			logger:      logger,
		}, nil
	default: // PoisonModeDeadLetter, already validated
		if publisher == nil {
			return nil, errors.New("dead-letter mode requires a publisher")
		}
		return &deadLetterPoisonedHandler{
			maxAttempts: cfg.MaxAttempts,
			forwarder:   NewDeadLetterForwarder(cfg.DeadLetter, publisher),
			logger:      logger,
			metrics:     metrics,
		}, nil
	}
}

// interceptPoisoned holds the retry-count math shared by every bounded
// variant, so the variants cannot diverge. Non-poisoned outcomes pass
// straight through; a poisoned republish either gets its incremented count
// baked into the headers, or, once the budget is spent, runs the terminal
// action and becomes a Reject. The terminal action's own failures must not
// escape: the message leaves the queue no matter what.
func interceptPoisoned(ctx context.Context, msg *models.Delivery, out Outcome, maxAttempts int, terminal func(ctx context.Context, msg *models.Delivery)) Outcome {
	if out.Kind != OutcomeRepublish || !out.IsPoisoned {
		return out
	}

	next, headers := NextAttempt(msg.Headers, out.NewHeaders)
	if next < maxAttempts {
		return Republish(true, headers)
	}

	terminal(ctx, msg)
	return Reject()
}

// noopPoisonedHandler is pure pass-through, for consumers that opt out of
// poisoned-message handling.
type noopPoisonedHandler struct{}

func (noopPoisonedHandler) Intercept(_ context.Context, _ *models.Delivery, out Outcome) Outcome {
	return out
}

type loggingPoisonedHandler struct {
	maxAttempts int
	logger      *zap.Logger
}

func (h *loggingPoisonedHandler) Intercept(ctx context.Context, msg *models.Delivery, out Outcome) Outcome {
	return interceptPoisoned(ctx, msg, out, h.maxAttempts, func(_ context.Context, msg *models.Delivery) {
		h.logger.Warn("message reached poisoned retry limit, rejecting",
			zap.Any("message_id", msg.Properties.MessageID),
			zap.Any("correlation_id", msg.Properties.CorrelationID),
			zap.Any("max_attempts", h.maxAttempts),
		)
	})
}

type deadLetterPoisonedHandler struct {
	maxAttempts int
	forwarder   *DeadLetterForwarder
	logger      *zap.Logger
	metrics     observability.MetricsCollector
}

func (h *deadLetterPoisonedHandler) Intercept(ctx context.Context, msg *models.Delivery, out Outcome) Outcome {
	return interceptPoisoned(ctx, msg, out, h.maxAttempts, func(ctx context.Context, msg *models.Delivery) {
		h.logger.Warn("message reached poisoned retry limit, forwarding to dead-letter destination",
			zap.Any("message_id", msg.Properties.MessageID),
			zap.Any("correlation_id", msg.Properties.CorrelationID),
			zap.Any("max_attempts", h.maxAttempts),
		)

		// Best effort: losing the archive copy beats a queue nobody can drain.
		if err := h.forwarder.Forward(ctx, msg); err != nil {
			h.metrics.IncDeadLetterFailed()
			h.logger.Warn("dead-letter forward failed, rejecting anyway",
				zap.Any("message_id", msg.Properties.MessageID),
				zap.Any("correlation_id", msg.Properties.CorrelationID),
				zap.Error(err),
			)
			return
		}
		h.metrics.IncDeadLettered()
	})
}
