package models

import (
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageHeader constants
const (
	// HeaderRepublishCount carries how many times a message has been
	// republished as poisoned. It travels with the message itself, so the
	// count survives broker redelivery without any external storage.
	HeaderRepublishCount = "X-Republish-Count"
)

// Delivery represents one broker message instance as seen by the consumer.
// Handlers treat it as read-only; rewritten header maps are always built
// fresh, never in place.
type Delivery struct {
	Body        []byte
	Headers     amqp.Table
	Properties  Properties
	Exchange    string
	RoutingKey  string
	Redelivered bool
}

// Properties are the AMQP basic properties of a delivery. They are preserved
// verbatim whenever the message is republished or forwarded.
type Properties struct {
	ContentType     string
	ContentEncoding string
	DeliveryMode    uint8
	Priority        uint8
	CorrelationID   string
	ReplyTo         string
	Expiration      string
	MessageID       string
	Timestamp       time.Time
	Type            string
	UserID          string
	AppID           string
}

// FromAMQP converts a raw broker delivery to the internal format.
func FromAMQP(d amqp.Delivery) *Delivery {
	return &Delivery{
		Body:        d.Body,
		Headers:     d.Headers,
		Exchange:    d.Exchange,
		RoutingKey:  d.RoutingKey,
		Redelivered: d.Redelivered,
		Properties: Properties{
			ContentType:     d.ContentType,
			ContentEncoding: d.ContentEncoding,
			DeliveryMode:    d.DeliveryMode,
			Priority:        d.Priority,
			CorrelationID:   d.CorrelationId,
			ReplyTo:         d.ReplyTo,
			Expiration:      d.Expiration,
			MessageID:       d.MessageId,
			Timestamp:       d.Timestamp,
			Type:            d.Type,
			UserID:          d.UserId,
			AppID:           d.AppId,
		},
	}
}

// ToPublishing builds a publish request carrying the delivery's original body
// and properties. The header map is copied so the delivery stays untouched.
func (d *Delivery) ToPublishing() amqp.Publishing {
	headers := make(amqp.Table, len(d.Headers))
	for k, v := range d.Headers {
		headers[k] = v
	}

	return amqp.Publishing{
		Headers:         headers,
		ContentType:     d.Properties.ContentType,
		ContentEncoding: d.Properties.ContentEncoding,
		DeliveryMode:    d.Properties.DeliveryMode,
		Priority:        d.Properties.Priority,
		CorrelationId:   d.Properties.CorrelationID,
		ReplyTo:         d.Properties.ReplyTo,
		Expiration:      d.Properties.Expiration,
		MessageId:       d.Properties.MessageID,
		Timestamp:       d.Properties.Timestamp,
		Type:            d.Properties.Type,
		UserId:          d.Properties.UserID,
		AppId:           d.Properties.AppID,
		Body:            d.Body,
	}
}
