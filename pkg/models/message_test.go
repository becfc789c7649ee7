package models

import (
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
)

func TestFromAMQP(t *testing.T) {
	raw := amqp.Delivery{
		Body:          []byte("payload"),
		Headers:       amqp.Table{HeaderRepublishCount: int32(2)},
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		CorrelationId: "corr-1",
		MessageId:     "msg-1",
		Timestamp:     time.Unix(1700000000, 0),
		Exchange:      "order.events",
		RoutingKey:    "order.created",
		Redelivered:   true,
	}

	d := FromAMQP(raw)

	assert.Equal(t, raw.Body, d.Body)
	assert.Equal(t, raw.Headers, d.Headers)
	assert.Equal(t, "application/json", d.Properties.ContentType)
	assert.Equal(t, uint8(amqp.Persistent), d.Properties.DeliveryMode)
	assert.Equal(t, "corr-1", d.Properties.CorrelationID)
	assert.Equal(t, "msg-1", d.Properties.MessageID)
	assert.Equal(t, "order.events", d.Exchange)
	assert.True(t, d.Redelivered)
}

func TestToPublishing_CopiesHeaders(t *testing.T) {
	d := &Delivery{
		Body:    []byte("payload"),
		Headers: amqp.Table{"x-origin": "billing"},
		Properties: Properties{
			ContentType: "application/json",
			MessageID:   "msg-1",
		},
	}

	pub := d.ToPublishing()
	pub.Headers["x-origin"] = "mutated"

	assert.Equal(t, "billing", d.Headers["x-origin"])
	assert.Equal(t, []byte("payload"), pub.Body)
	assert.Equal(t, "msg-1", pub.MessageId)
}
