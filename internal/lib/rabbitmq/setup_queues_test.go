package rabbitmq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetNotificationQueues(t *testing.T) {
	queues := GetNotificationQueues()
	require.Len(t, queues, 3)

	seenNames := map[string]bool{}
	seenKeys := map[string]bool{}
	for _, q := range queues {
		assert.Falsef(t, seenNames[q.QueueName], "duplicate queue name: %s", q.QueueName)
		assert.Falsef(t, seenKeys[q.RoutingKey], "duplicate routing key: %s", q.RoutingKey)
		seenNames[q.QueueName] = true
		seenKeys[q.RoutingKey] = true
	}
	assert.True(t, seenKeys[RoutingSubscription])
	assert.True(t, seenKeys[RoutingPayment])
	assert.True(t, seenKeys[RoutingAccount])
}
