package rabbitmq

// Exchange — direct-обменник уведомлений.
const Exchange = "notifications"

const prefetch = 10

// Ключи маршрутизации уведомлений.
const (
	RoutingSubscription = "subscription"
	RoutingPayment      = "payment"
	RoutingAccount      = "account"
)

type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetNotificationQueues возвращает очереди, которые читает отправитель уведомлений.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "notifications.subscription", RoutingKey: RoutingSubscription},
		{QueueName: "notifications.payment", RoutingKey: RoutingPayment},
		{QueueName: "notifications.account", RoutingKey: RoutingAccount},
	}
}
