// Package scheduler periodically finds deadlines due tomorrow and queues
// reminder notifications for the sender worker.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/osoriolabs/lawdesk/internal/lib/rabbitmq"
	"github.com/osoriolabs/lawdesk/internal/lib/sl"
	"github.com/osoriolabs/lawdesk/internal/models"
)

// DeadlineRepository finds deadlines that need a reminder.
type DeadlineRepository interface {
	FindDeadlinesDueTomorrow(ctx context.Context) ([]*models.DeadlineReminder, error)
}

type SchedulerService struct {
	repo DeadlineRepository
	log  *slog.Logger
}

func New(repo DeadlineRepository, log *slog.Logger) *SchedulerService {
	return &SchedulerService{
		repo: repo,
		log:  log,
	}
}

// Run scans for due deadlines immediately and then every 12 hours until the
// context is cancelled.
func (s *SchedulerService) Run(ctx context.Context, channel *amqp.Channel) {
	s.runFindDeadlinesDueTomorrow(ctx, channel)

	ticker := time.NewTicker(12 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runFindDeadlinesDueTomorrow(ctx, channel)
		}
	}
}

func (s *SchedulerService) runFindDeadlinesDueTomorrow(ctx context.Context, channel *amqp.Channel) {
	s.log.Info("starting scan for deadlines due tomorrow")
	reminders, err := s.repo.FindDeadlinesDueTomorrow(ctx)
	if err != nil {
		s.log.Error("failed to find due deadlines", sl.Err(err))
		return
	}
	if len(reminders) == 0 {
		s.log.Info("no deadlines due tomorrow")
		return
	}
	s.log.Info("found deadlines due tomorrow", "count", len(reminders))
	for _, reminder := range reminders {
		if err := rabbitmq.PublishMessage(channel, "notifications", "deadline", reminder); err != nil {
			s.log.Error("failed to publish reminder", sl.Err(err))
		}
	}
}
