package rabbit

import (
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"

	"go-rabbit/pkg/models"
)

func TestNextAttempt(t *testing.T) {
	tests := []struct {
		name       string
		headers    amqp.Table
		additional amqp.Table
		expected   int
	}{
		{
			name:     "No count header",
			headers:  amqp.Table{},
			expected: 1,
		},
		{
			name:     "Nil header maps",
			expected: 1,
		},
		{
			name:     "Count in delivery headers",
			headers:  amqp.Table{models.HeaderRepublishCount: int32(2)},
			expected: 3,
		},
		{
			name:     "Count as int64",
			headers:  amqp.Table{models.HeaderRepublishCount: int64(5)},
			expected: 6,
		},
		{
			name:     "Count as string",
			headers:  amqp.Table{models.HeaderRepublishCount: "4"},
			expected: 5,
		},
		{
			name:     "Count as float",
			headers:  amqp.Table{models.HeaderRepublishCount: float64(3)},
			expected: 4,
		},
		{
			name:     "Count as bytes",
			headers:  amqp.Table{models.HeaderRepublishCount: []byte("7")},
			expected: 8,
		},
		{
			name:     "Non-numeric count treated as zero",
			headers:  amqp.Table{models.HeaderRepublishCount: "invalid"},
			expected: 1,
		},
		{
			name:     "Unsupported type treated as zero",
			headers:  amqp.Table{models.HeaderRepublishCount: true},
			expected: 1,
		},
		{
			name:       "Additional headers override delivery headers",
			headers:    amqp.Table{models.HeaderRepublishCount: int32(9)},
			additional: amqp.Table{models.HeaderRepublishCount: int32(1)},
			expected:   2,
		},
		{
			name:       "Unparseable override does not fall back",
			headers:    amqp.Table{models.HeaderRepublishCount: int32(9)},
			additional: amqp.Table{models.HeaderRepublishCount: "garbage"},
			expected:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, headers := NextAttempt(tt.headers, tt.additional)
			assert.Equal(t, tt.expected, next)
			assert.Equal(t, int64(tt.expected), headers[models.HeaderRepublishCount])
		})
	}
}

func TestNextAttempt_PreservesAdditionalHeaders(t *testing.T) {
	additional := amqp.Table{"x-origin": "billing"}

	next, headers := NextAttempt(amqp.Table{}, additional)

	assert.Equal(t, 1, next)
	assert.Equal(t, "billing", headers["x-origin"])
	assert.Equal(t, int64(1), headers[models.HeaderRepublishCount])
}

func TestNextAttempt_DoesNotMutateInputs(t *testing.T) {
	headers := amqp.Table{models.HeaderRepublishCount: int32(1)}
	additional := amqp.Table{"x-origin": "billing"}

	_, out := NextAttempt(headers, additional)

	assert.Equal(t, int32(1), headers[models.HeaderRepublishCount])
	assert.NotContains(t, additional, models.HeaderRepublishCount)
	assert.Contains(t, out, models.HeaderRepublishCount)
}
