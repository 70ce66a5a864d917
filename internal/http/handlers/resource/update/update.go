// Package update implements the HTTP handler that patches one row of a
// tenant-scoped resource by id.
package update

import (
	"context"
	"encoding/json"
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

// Service is the tenant-scoped update surface.
type Service interface {
	UpdateOwned(ctx context.Context, principal models.Principal, table, idColumn string, idValue any, patch map[string]any) ([]map[string]any, error)
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
	const op = "handlers.resource.update"
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

	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	rows, err := h.service.UpdateOwned(r.Context(), principal, resource, "id", id, patch)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUnknownTable):
			log.Warn("unknown resource", sl.Err(err))
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("unknown resource"))
		case errors.Is(err, repository.ErrUnknownColumn):
			log.Warn("unknown column", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("unknown column"))
		default:
			log.Error("failed to update row", sl.Err(err))
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

	log.Info("row updated", slog.String("resource", resource), slog.String("id", id))
	render.JSON(w, r, response.OKWithData(rows[0]))
}
