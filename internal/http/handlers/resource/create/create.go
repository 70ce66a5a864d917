// Package create implements the HTTP handler that inserts rows into a
// tenant-scoped resource. The resource name comes from the URL, the tenant
// id always comes from the authenticated principal.
package create

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

// Service is the tenant-scoped insert surface.
type Service interface {
	InsertOwned(ctx context.Context, principal models.Principal, table string, rows []map[string]any) ([]map[string]any, error)
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
	const op = "handlers.resource.create"
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

	rows, err := decodeRows(r)
	if err != nil {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	inserted, err := h.service.InsertOwned(r.Context(), principal, resource, rows)
	if err != nil {
		writeStorageError(w, r, log, err)
		return
	}

	log.Info("rows inserted", slog.String("resource", resource), slog.Int("count", len(inserted)))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(map[string]any{
		"rows": inserted,
	}))
}

// decodeRows accepts either a single JSON object or an array of objects.
func decodeRows(r *http.Request) ([]map[string]any, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, err
	}

	var rows []map[string]any
	if err := json.Unmarshal(raw, &rows); err == nil {
		return rows, nil
	}

	var row map[string]any
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, err
	}
	return []map[string]any{row}, nil
}

func writeStorageError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
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
		log.Error("storage failure", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
	}
}
