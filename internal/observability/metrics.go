package observability

import (
	"sync/atomic"
)

// MetricsCollector provides hooks for metrics collection around the
// consumption pipeline. Can be implemented to integrate with Prometheus,
// StatsD, etc.
type MetricsCollector interface {
	IncReceived()
	IncAcked()
	IncRejected()
	IncRequeued()
	IncRepublished()
	IncDeadLettered()
	IncDeadLetterFailed()
	IncPublished()
	IncPublishFailed()
}

// InMemoryMetrics is a simple in-memory implementation for testing/demo
type InMemoryMetrics struct {
	Received         atomic.Int64
	Acked            atomic.Int64
	Rejected         atomic.Int64
	Requeued         atomic.Int64
	Republished      atomic.Int64
	DeadLettered     atomic.Int64
	DeadLetterFailed atomic.Int64
	Published        atomic.Int64
	PublishFailed    atomic.Int64
}

func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{}
}

func (m *InMemoryMetrics) IncReceived() {
	m.Received.Add(1)
}

func (m *InMemoryMetrics) IncAcked() {
	m.Acked.Add(1)
}

func (m *InMemoryMetrics) IncRejected() {
	m.Rejected.Add(1)
}

func (m *InMemoryMetrics) IncRequeued() {
	m.Requeued.Add(1)
}

func (m *InMemoryMetrics) IncRepublished() {
	m.Republished.Add(1)
}

func (m *InMemoryMetrics) IncDeadLettered() {
	m.DeadLettered.Add(1)
}

func (m *InMemoryMetrics) IncDeadLetterFailed() {
	m.DeadLetterFailed.Add(1)
}

func (m *InMemoryMetrics) IncPublished() {
	m.Published.Add(1)
}

func (m *InMemoryMetrics) IncPublishFailed() {
	m.PublishFailed.Add(1)
}

func (m *InMemoryMetrics) GetReceived() int64 {
	return m.Received.Load()
}

func (m *InMemoryMetrics) GetAcked() int64 {
	return m.Acked.Load()
}

func (m *InMemoryMetrics) GetRejected() int64 {
	return m.Rejected.Load()
}

func (m *InMemoryMetrics) GetRequeued() int64 {
	return m.Requeued.Load()
}

func (m *InMemoryMetrics) GetRepublished() int64 {
	return m.Republished.Load()
}

func (m *InMemoryMetrics) GetDeadLettered() int64 {
	return m.DeadLettered.Load()
}

func (m *InMemoryMetrics) GetDeadLetterFailed() int64 {
	return m.DeadLetterFailed.Load()
}

func (m *InMemoryMetrics) GetPublished() int64 {
	return m.Published.Load()
}

func (m *InMemoryMetrics) GetPublishFailed() int64 {
	return m.PublishFailed.Load()
}
