package rabbitmq

const (
	// ExchangeNotifications exchange для событий, обрабатываемых notifier.
	ExchangeNotifications = "notifications"
	// QueueFeedback очередь новых обращений.
	QueueFeedback = "feedback.received"
	// RoutingKeyFeedback ключ маршрутизации новых обращений.
	RoutingKeyFeedback = "feedback"
)

// QueueConfig очередь и ключ её привязки к ExchangeNotifications.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// NotificationQueues очереди, которые слушает notifier.
func NotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: QueueFeedback, RoutingKey: RoutingKeyFeedback},
	}
}
