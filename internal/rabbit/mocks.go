package rabbit

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// MockPublisher is a mock implementation of Publisher for testing
type MockPublisher struct {
	mu                sync.RWMutex
	PublishedMessages []PublishedMessage
	PublishFunc       func(ctx context.Context, exchange, routingKey string, pub amqp.Publishing) error
	FailCount         int
	failureCounter    int
}

type PublishedMessage struct {
	Exchange   string
	RoutingKey string
	Publishing amqp.Publishing
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		PublishedMessages: make([]PublishedMessage, 0),
	}
}

func (m *MockPublisher) Publish(ctx context.Context, exchange, routingKey string, pub amqp.Publishing) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Use custom publish function if provided
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, exchange, routingKey, pub)
	}

	// Simulate failures for testing best-effort paths
	if m.FailCount > 0 {
		m.failureCounter++
		if m.failureCounter <= m.FailCount {
			return fmt.Errorf("simulated publish failure %d", m.failureCounter)
		}
	}

	m.PublishedMessages = append(m.PublishedMessages, PublishedMessage{
		Exchange:   exchange,
		RoutingKey: routingKey,
		Publishing: pub,
	})

	return nil
}

func (m *MockPublisher) GetPublishedMessages() []PublishedMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()

	messages := make([]PublishedMessage, len(m.PublishedMessages))
	copy(messages, m.PublishedMessages)
	return messages
}

func (m *MockPublisher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PublishedMessages = make([]PublishedMessage, 0)
	m.failureCounter = 0
}

// MockAcknowledger records the broker disposition of a delivery. Assign it
// to amqp.Delivery.Acknowledger in tests.
type MockAcknowledger struct {
	mu       sync.Mutex
	Acks     []uint64
	Nacks    []NackCall
	Rejects  []RejectCall
	AckErr   error
	NackErr  error
	RejectErr error
}

type NackCall struct {
	Tag     uint64
	Multiple bool
	Requeue bool
}

type RejectCall struct {
	Tag     uint64
	Requeue bool
}

func NewMockAcknowledger() *MockAcknowledger {
	return &MockAcknowledger{}
}

func (m *MockAcknowledger) Ack(tag uint64, multiple bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AckErr != nil {
		return m.AckErr
	}
	m.Acks = append(m.Acks, tag)
	return nil
}

func (m *MockAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.NackErr != nil {
		return m.NackErr
	}
	m.Nacks = append(m.Nacks, NackCall{Tag: tag, Multiple: multiple, Requeue: requeue})
	return nil
}

func (m *MockAcknowledger) Reject(tag uint64, requeue bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RejectErr != nil {
		return m.RejectErr
	}
	m.Rejects = append(m.Rejects, RejectCall{Tag: tag, Requeue: requeue})
	return nil
}
