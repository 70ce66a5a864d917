package reconcile

import (
	"context"

	"github.com/streadway/amqp"

	"github.com/osoriolabs/lawdesk/internal/lib/rabbitmq"
	"github.com/osoriolabs/lawdesk/internal/models"
)

// AMQPNotifier queues welcome notifications for the sender worker.
type AMQPNotifier struct {
	channel *amqp.Channel
}

func NewAMQPNotifier(channel *amqp.Channel) *AMQPNotifier {
	return &AMQPNotifier{channel: channel}
}

func (n *AMQPNotifier) SendWelcome(_ context.Context, notification models.WelcomeNotification) error {
	return rabbitmq.PublishMessage(n.channel, "notifications", "welcome", notification)
}
