package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/osoriolabs/lawdesk/internal/models"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) FindDeadlinesDueTomorrow(ctx context.Context) ([]*models.DeadlineReminder, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DeadlineReminder), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestRunFindDeadlinesDueTomorrow(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(*MockRepository)
	}{
		{
			name: "no due deadlines",
			setupMocks: func(r *MockRepository) {
				r.On("FindDeadlinesDueTomorrow", mock.Anything).Return([]*models.DeadlineReminder{}, nil).Once()
			},
		},
		{
			name: "repository error is logged, not fatal",
			setupMocks: func(r *MockRepository) {
				r.On("FindDeadlinesDueTomorrow", mock.Anything).Return(nil, errors.New("db error")).Once()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			tt.setupMocks(repo)

			svc := New(repo, newNoopLogger())
			svc.runFindDeadlinesDueTomorrow(context.Background(), nil)

			repo.AssertExpectations(t)
		})
	}
}
