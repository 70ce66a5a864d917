package lawdesk

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/osoriolabs/lawdesk/internal/http/handlers/auth/login"
	"github.com/osoriolabs/lawdesk/internal/http/handlers/auth/register"
	"github.com/osoriolabs/lawdesk/internal/http/handlers/document/download"
	"github.com/osoriolabs/lawdesk/internal/http/handlers/document/upload"
	"github.com/osoriolabs/lawdesk/internal/http/handlers/health"
	"github.com/osoriolabs/lawdesk/internal/http/handlers/payment/webhook"
	"github.com/osoriolabs/lawdesk/internal/http/handlers/resource/create"
	"github.com/osoriolabs/lawdesk/internal/http/handlers/resource/list"
	"github.com/osoriolabs/lawdesk/internal/http/handlers/resource/read"
	"github.com/osoriolabs/lawdesk/internal/http/handlers/resource/remove"
	"github.com/osoriolabs/lawdesk/internal/http/handlers/resource/update"
	"github.com/osoriolabs/lawdesk/internal/http/handlers/subscription/status"
	"github.com/osoriolabs/lawdesk/internal/http/middlewarectx"
	"github.com/osoriolabs/lawdesk/internal/metrics"
	"github.com/osoriolabs/lawdesk/internal/objectstore"
	authservice "github.com/osoriolabs/lawdesk/internal/services/auth"
	reconcileservice "github.com/osoriolabs/lawdesk/internal/services/reconcile"
	subservice "github.com/osoriolabs/lawdesk/internal/services/subscription"
	"github.com/osoriolabs/lawdesk/internal/storage/repository"
)

// RegisterRoutes registers all application routes.
func RegisterRoutes(r chi.Router, logger *slog.Logger, db *repository.Storage,
	authService *authservice.AuthService, subscriptionService *subservice.SubscriptionService,
	reconcileService *reconcileservice.ReconcileService, blob *objectstore.Client,
	webhookSecret string) {
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
		metrics.Middleware,
	)

	loginLimiter := rate.NewLimiter(rate.Limit(5), 10)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(logger, loginLimiter))
			r.Post("/register", register.New(logger, authService).ServeHTTP)
			r.Post("/login", login.New(logger, authService).ServeHTTP)
		})

		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(authService, logger))
			r.Use(middlewarectx.SubscriptionStatusMiddleware(logger, subscriptionService))
			r.Get("/subscription", status.New(logger, subscriptionService).ServeHTTP)
			r.Post("/documents/{id}/content", upload.New(logger, db, blob).ServeHTTP)
			r.Get("/documents/{id}/content", download.New(logger, db, blob).ServeHTTP)
			r.Post("/{resource}", create.New(logger, db).ServeHTTP)
			r.Get("/{resource}", list.New(logger, db).ServeHTTP)
			r.Get("/{resource}/{id}", read.New(logger, db).ServeHTTP)
			r.Patch("/{resource}/{id}", update.New(logger, db).ServeHTTP)
			r.Delete("/{resource}/{id}", remove.New(logger, db).ServeHTTP)
		})

		// Webhook endpoint, authenticated by signature instead of JWT.
		r.Post("/payments/webhook", webhook.New(logger, reconcileService, webhookSecret).ServeHTTP)
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
	r.Get("/health", health.New(logger, db).ServeHTTP)
}
