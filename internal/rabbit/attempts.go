package rabbit

import (
	"strconv"

	amqp "github.com/rabbitmq/amqp091-go"

	"go-rabbit/pkg/models"
)

// NextAttempt computes the attempt number a republished message is about to
// enter, and the header map to attach to it. The current count is read from
// the republish-count header, preferring the caller-supplied additional
// headers over the delivery's own; a missing or non-numeric value counts as
// attempt 0. Headers are transport metadata supplied by external parties, so
// a malformed value is never an error.
//
// The returned map is a fresh copy of additional with the count header set;
// neither input is mutated.
func NextAttempt(headers, additional amqp.Table) (int, amqp.Table) {
	current := 0
	if v, ok := additional[models.HeaderRepublishCount]; ok {
		current, _ = headerInt(v)
	} else if v, ok := headers[models.HeaderRepublishCount]; ok {
		current, _ = headerInt(v)
	}

	next := current + 1

	out := make(amqp.Table, len(additional)+1)
	for k, v := range additional {
		out[k] = v
	}
	out[models.HeaderRepublishCount] = int64(next)

	return next, out
}

// headerInt converts the loosely typed AMQP header values that brokers and
// clients produce in practice.
func headerInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	case float32:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		if parsed, err := strconv.Atoi(n); err == nil {
			return parsed, true
		}
		return 0, false
	case []byte:
		if parsed, err := strconv.Atoi(string(n)); err == nil {
			return parsed, true
		}
		return 0, false
	default:
		return 0, false
	}
}
