// Package scheduler wires the reminder scheduler worker: storage, message
// queue and the periodic deadline scan.
package scheduler

import (
	"context"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/osoriolabs/lawdesk/internal/config"
	"github.com/osoriolabs/lawdesk/internal/lib/rabbitmq"
	schedulerservice "github.com/osoriolabs/lawdesk/internal/services/scheduler"
	"github.com/osoriolabs/lawdesk/internal/storage/repository"
)

type App struct {
	conn             *amqp.Connection
	ch               *amqp.Channel
	schedulerService *schedulerservice.SchedulerService
	logger           *slog.Logger
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		conn.Close()
		return nil, err
	}

	schedulerService := schedulerservice.New(db, logger)

	return &App{
		conn:             conn,
		ch:               ch,
		schedulerService: schedulerService,
		logger:           logger,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.schedulerService.Run(ctx, a.ch)

	a.logger.Info("Scheduler service shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", slog.Any("err", err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", slog.Any("err", err))
	}

	return nil
}
