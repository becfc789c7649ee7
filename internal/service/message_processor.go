package service

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"go-rabbit/internal/observability"
	"go-rabbit/internal/rabbit"
	"go-rabbit/pkg/models"
)

// OrderEvent is the payload shape this demo processor expects.
type OrderEvent struct {
	EventType  string `json:"event_type"`
	OrderID    string `json:"order_id"`
	CustomerID string `json:"customer_id"`
}

// MessageProcessor handles business logic for processing messages
type MessageProcessor struct {
	logger *logrus.Logger
}

func NewMessageProcessor() *MessageProcessor {
	return &MessageProcessor{
		logger: observability.GetLogger(),
	}
}

// Process decides the disposition of one delivery. A body that does not
// parse is marked poisoned so the pipeline retries it a bounded number of
// times before disposal; a parsed event missing its order id is dropped
// outright since no retry will fix it.
func (p *MessageProcessor) Process(ctx context.Context, msg *models.Delivery) (rabbit.Outcome, error) {
	var event OrderEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		p.logger.WithFields(logrus.Fields{
			"message_id": msg.Properties.MessageID,
			"error":      err.Error(),
		}).Warn("Unparseable message body, marking poisoned")
		return rabbit.Republish(true, nil), nil
	}

	if event.OrderID == "" {
		p.logger.WithFields(logrus.Fields{
			"message_id": msg.Properties.MessageID,
			"event_type": event.EventType,
		}).Warn("Event missing order id, rejecting")
		return rabbit.Reject(), nil
	}

	p.logger.WithFields(logrus.Fields{
		"message_id":  msg.Properties.MessageID,
		"event_type":  event.EventType,
		"order_id":    event.OrderID,
		"customer_id": event.CustomerID,
	}).Info("Processing message")

	// In a real application, this would:
	// - Validate data
	// - Store in database
	// - Call external APIs
	// - etc.

	return rabbit.Ack(), nil
}
