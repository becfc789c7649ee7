package rabbit

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ============================================================================
// Client Implementation
// ============================================================================

// Client owns the AMQP connection. Channels are carved off it per consumer
// or publisher; closing the client closes everything.
type Client struct {
	conn   *amqp.Connection
	logger Logger
}

func Open(config ClientConfig) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid client config: %w", err)
	}
	if config.Logger == nil {
		config.Logger = &DefaultLogger{}
	}

	conn, err := amqp.Dial(config.URL)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}

	return &Client{
		conn:   conn,
		logger: config.Logger,
	}, nil
}

func (c *Client) Channel() (*amqp.Channel, error) {
	if c.conn == nil {
		return nil, errors.New("connection is nil")
	}
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	return ch, nil
}

// HealthCheck verifies the connection is still usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if c.conn == nil || c.conn.IsClosed() {
		return errors.New("connection closed")
	}
	return nil
}

func (c *Client) Close() error {
	if c.conn == nil {
		return errors.New("connection is nil")
	}
	return c.conn.Close()
}

func (c *Client) CloseGracefully(timeout time.Duration) error {
	if c.conn == nil {
		return errors.New("connection is nil")
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- c.conn.Close()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
