// Package remove implements the HTTP handler that deletes one row of a
// tenant-scoped resource by id.
package remove

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/osoriolabs/lawdesk/internal/http/middlewarectx"
	"github.com/osoriolabs/lawdesk/internal/http/response"
	"github.com/osoriolabs/lawdesk/internal/lib/sl"
	"github.com/osoriolabs/lawdesk/internal/models"
	"github.com/osoriolabs/lawdesk/internal/storage/repository"
)

// Service is the tenant-scoped delete surface.
type Service interface {
	DeleteOwned(ctx context.Context, principal models.Principal, table, idColumn string, idValue any) ([]map[string]any, error)
}

type Handler struct {
	log     *slog.Logger
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.resource.remove"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	principal, err := middlewarectx.PrincipalFromContext(r.Context())
	if err != nil {
		log.Error("principal not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	resource := chi.URLParam(r, "resource")
	id := chi.URLParam(r, "id")

	rows, err := h.service.DeleteOwned(r.Context(), principal, resource, "id", id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUnknownTable):
			log.Warn("unknown resource", sl.Err(err))
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("unknown resource"))
		default:
			log.Error("failed to delete row", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("internal error"))
		}
		return
	}

	if len(rows) == 0 {
		log.Warn("row not found", slog.String("resource", resource), slog.String("id", id))
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("not found"))
		return
	}

	log.Info("row deleted", slog.String("resource", resource), slog.String("id", id))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"deleted": len(rows),
	}))
}
