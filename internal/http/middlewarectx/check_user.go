package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/osoriolabs/lawdesk/internal/http/response"
	"github.com/osoriolabs/lawdesk/internal/lib/sl"
	"github.com/osoriolabs/lawdesk/internal/models"
)

// SubscriptionServiceInterface resolves a tenant's subscription snapshot.
type SubscriptionServiceInterface interface {
	GetSubscriptionInfo(ctx context.Context, userUID string) (*models.SubscriptionInfo, error)
}

// SubscriptionStatusMiddleware denies access with 403 Forbidden when the
// tenant's subscription is inactive or the trial has expired. It must run
// after JWTMiddleware.
func SubscriptionStatusMiddleware(log *slog.Logger, subService SubscriptionServiceInterface) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := PrincipalFromContext(r.Context())
			if err != nil {
				log.Error("user identification missing")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("user identification missing"))
				return
			}

			info, err := subService.GetSubscriptionInfo(r.Context(), principal.UID)
			if err != nil {
				log.Error("failed to get subscription info", sl.Err(err))
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.Error("internal service error"))
				return
			}

			if info.Blocked(time.Now()) {
				log.Warn("subscription inactive, access denied",
					slog.String("user_uid", principal.UID),
					slog.String("status", info.Status))
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error("subscription inactive, access denied"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
