package rabbit

import (
	"errors"
	"fmt"
	"log"
	"time"
)

// ============================================================================
// Logger Interface
// ============================================================================

type Logger interface {
	Info(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
}

type DefaultLogger struct{}

func (l *DefaultLogger) Info(msg string, fields ...interface{}) {
	log.Printf("[INFO] %s %v", msg, fields)
}

func (l *DefaultLogger) Error(msg string, fields ...interface{}) {
	log.Printf("[ERROR] %s %v", msg, fields)
}

func (l *DefaultLogger) Warn(msg string, fields ...interface{}) {
	log.Printf("[WARN] %s %v", msg, fields)
}

// ============================================================================
// Config Structures
// ============================================================================

type ClientConfig struct {
	URL    string
	Logger Logger
}

type PublisherConfig struct {
	// ConfirmTimeout bounds the wait for a broker publish confirmation.
	ConfirmTimeout time.Duration
	Logger         Logger
}

// Topology describes the exchange/queue/binding a consumer operates on, plus
// the optional dead-letter destination.
type Topology struct {
	Exchange     string
	ExchangeType string
	Queue        string
	RoutingKey   string
	DeadLetter   DeadLetterTopology
}

// DeadLetterTopology names the side destination for exhausted poisoned
// messages. Declare controls whether setup creates it or assumes it exists.
type DeadLetterTopology struct {
	Exchange   string
	Queue      string
	RoutingKey string
	Declare    bool
}

type RetryPolicy struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
	Jitter         bool
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     3,
		InitialBackoff: time.Second,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2.0,
		Jitter:         true,
	}
}

// ============================================================================
// Custom Error Types
// ============================================================================

// RetryableError indicates the operation should be retried
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error: %v", e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// PermanentError indicates the operation should not be retried
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent error: %v", e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// IsRetryable checks if error is retryable
func IsRetryable(err error) bool {
	var retryableErr *RetryableError
	return errors.As(err, &retryableErr)
}

// IsPermanent checks if error is permanent
func IsPermanent(err error) bool {
	var permanentErr *PermanentError
	return errors.As(err, &permanentErr)
}
