// Package sender wires the notification sender worker: message queue
// consumers and the SMTP transport.
package sender

import (
	"context"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/osoriolabs/lawdesk/internal/config"
	"github.com/osoriolabs/lawdesk/internal/lib/rabbitmq"
	"github.com/osoriolabs/lawdesk/internal/lib/smtp"
	senderservice "github.com/osoriolabs/lawdesk/internal/services/sender"
)

type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	senderService *senderservice.SenderService
	logger        *slog.Logger
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		conn.Close()
		return nil, err
	}

	transport := smtp.NewTransport(&cfg.SMTP, logger)
	senderService := senderservice.New(logger, transport)

	return &App{
		conn:          conn,
		ch:            ch,
		senderService: senderService,
		logger:        logger,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	err := rabbitmq.ConsumeMessages(ctx, a.logger, a.ch, "notification.deadline", a.senderService.SendDeadlineReminder)
	if err != nil {
		a.logger.Error("failed to start notification.deadline consumer", slog.Any("err", err))
		return err
	}

	err = rabbitmq.ConsumeMessages(ctx, a.logger, a.ch, "notification.welcome", a.senderService.SendWelcome)
	if err != nil {
		a.logger.Error("failed to start notification.welcome consumer", slog.Any("err", err))
		return err
	}

	<-ctx.Done()
	a.logger.Info("Sender service shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", slog.Any("err", err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", slog.Any("err", err))
	}

	return nil
}
