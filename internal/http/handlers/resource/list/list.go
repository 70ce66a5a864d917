// Package list implements the HTTP handler that lists rows of a
// tenant-scoped resource with optional filters, projection and ordering.
package list

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/osoriolabs/lawdesk/internal/http/middlewarectx"
	"github.com/osoriolabs/lawdesk/internal/http/response"
	"github.com/osoriolabs/lawdesk/internal/lib/sl"
	"github.com/osoriolabs/lawdesk/internal/models"
	"github.com/osoriolabs/lawdesk/internal/storage/repository"
)

// Service is the tenant-scoped select surface.
type Service interface {
	SelectOwned(ctx context.Context, principal models.Principal, table string, filters map[string]any, columns []string, order *repository.Order) ([]map[string]any, error)
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

// Reserved query parameters. Every other parameter is treated as an
// equality filter on a column of the resource.
const (
	paramOrderBy = "order_by"
	paramDesc    = "desc"
	paramColumns = "columns"
)

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.resource.list"
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
	query := r.URL.Query()

	var order *repository.Order
	if orderBy := query.Get(paramOrderBy); orderBy != "" {
		order = &repository.Order{
			Column: orderBy,
			Desc:   query.Get(paramDesc) == "true",
		}
	}

	var columns []string
	if raw := query.Get(paramColumns); raw != "" {
		columns = strings.Split(raw, ",")
	}

	filters := map[string]any{}
	for key, values := range query {
		if key == paramOrderBy || key == paramDesc || key == paramColumns {
			continue
		}
		if len(values) > 0 {
			filters[key] = values[0]
		}
	}

	rows, err := h.service.SelectOwned(r.Context(), principal, resource, filters, columns, order)
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
			log.Error("failed to list rows", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("internal error"))
		}
		return
	}

	log.Info("rows listed", slog.String("resource", resource), slog.Int("count", len(rows)))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"count": len(rows),
		"rows":  rows,
	}))
}
