// Package lawdesk wires the API server: storage, cache, message queue,
// services and the HTTP router.
package lawdesk

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/osoriolabs/lawdesk/internal/cache"
	"github.com/osoriolabs/lawdesk/internal/config"
	"github.com/osoriolabs/lawdesk/internal/lib/jwt"
	"github.com/osoriolabs/lawdesk/internal/lib/rabbitmq"
	"github.com/osoriolabs/lawdesk/internal/migrations"
	"github.com/osoriolabs/lawdesk/internal/objectstore"
	"github.com/osoriolabs/lawdesk/internal/paymentprovider"
	authservice "github.com/osoriolabs/lawdesk/internal/services/auth"
	reconcileservice "github.com/osoriolabs/lawdesk/internal/services/reconcile"
	subservice "github.com/osoriolabs/lawdesk/internal/services/subscription"
	"github.com/osoriolabs/lawdesk/internal/storage/repository"
)

type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	conn   *amqp.Connection
	ch     *amqp.Channel
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
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

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	authService := authservice.New(db, jwtMaker)
	subscriptionService := subservice.New(db, cacheRedis, logger)

	providerClient := paymentprovider.NewClient(cfg.Payment.APIKey)
	notifier := reconcileservice.NewAMQPNotifier(ch)
	reconcileService := reconcileservice.New(logger, db, providerClient, notifier, subscriptionService)

	blob := objectstore.NewClient(cfg.ObjectStore)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, db, authService, subscriptionService, reconcileService, blob, cfg.Payment.WebhookSecret)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		conn:   conn,
		ch:     ch,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if cerr := a.ch.Close(); cerr != nil {
			a.logger.Error("failed to close channel", slog.Any("err", cerr))
		}
		if cerr := a.conn.Close(); cerr != nil {
			a.logger.Error("failed to close connection", slog.Any("err", cerr))
		}
		a.db.DB.Close()
		return err
	}
}
