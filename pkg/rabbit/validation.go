package rabbit

import "errors"

// ============================================================================
// Validation
// ============================================================================

func (c *ClientConfig) Validate() error {
	if c.URL == "" {
		return errors.New("broker URL cannot be empty")
	}
	return nil
}

func (c *PublisherConfig) Validate() error {
	if c.ConfirmTimeout < 0 {
		return errors.New("confirmTimeout cannot be negative")
	}
	return nil
}

func (t *Topology) Validate() error {
	if t.Exchange == "" {
		return errors.New("exchange cannot be empty")
	}
	if t.ExchangeType == "" {
		return errors.New("exchange type cannot be empty")
	}
	if t.Queue == "" {
		return errors.New("queue cannot be empty")
	}
	if t.RoutingKey == "" {
		return errors.New("routing key cannot be empty")
	}
	if t.DeadLetter.Declare {
		if t.DeadLetter.Exchange == "" {
			return errors.New("dead-letter exchange cannot be empty")
		}
		if t.DeadLetter.Queue == "" {
			return errors.New("dead-letter queue cannot be empty")
		}
		if t.DeadLetter.RoutingKey == "" {
			return errors.New("dead-letter routing key cannot be empty")
		}
	}
	return nil
}
