package rabbitmq

// QueueConfig names a queue and the routing key it is bound with.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetNotificationQueues returns the queues consumed by the notification sender.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "notification.deadline", RoutingKey: "deadline"},
		{QueueName: "notification.welcome", RoutingKey: "welcome"},
	}
}
