// Package upload implements the HTTP handler that stores a document's blob
// content. The document row must already exist and belong to the caller;
// the blob is stored under a tenant-partitioned key.
package upload

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/osoriolabs/lawdesk/internal/http/middlewarectx"
	"github.com/osoriolabs/lawdesk/internal/http/response"
	"github.com/osoriolabs/lawdesk/internal/lib/sl"
	"github.com/osoriolabs/lawdesk/internal/models"
	"github.com/osoriolabs/lawdesk/internal/objectstore"
	"github.com/osoriolabs/lawdesk/internal/storage/repository"
)

// Store is the tenant-scoped access the handler needs for the document row.
type Store interface {
	SelectOneOwned(ctx context.Context, principal models.Principal, table, idColumn string, idValue any, columns []string) (map[string]any, error)
	UpdateOwned(ctx context.Context, principal models.Principal, table, idColumn string, idValue any, patch map[string]any) ([]map[string]any, error)
}

// Blob uploads document content.
type Blob interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) error
}

type Handler struct {
	log   *slog.Logger
	store Store
	blob  Blob
}

func New(log *slog.Logger, store Store, blob Blob) *Handler {
	return &Handler{
		log:   log,
		store: store,
		blob:  blob,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.document.upload"
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

	id := chi.URLParam(r, "id")

	if _, err := h.store.SelectOneOwned(r.Context(), principal, "documents", "id", id, nil); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Warn("document not found", slog.String("id", id))
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("not found"))
			return
		}
		log.Error("failed to load document", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := objectstore.ObjectKey(principal.UID, id)
	if err := h.blob.Put(r.Context(), key, contentType, r.Body); err != nil {
		log.Error("failed to store blob", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to store content"))
		return
	}

	patch := map[string]any{
		"storage_key":  key,
		"content_type": contentType,
	}
	if r.ContentLength >= 0 {
		patch["size_bytes"] = r.ContentLength
	}
	if _, err := h.store.UpdateOwned(r.Context(), principal, "documents", "id", id, patch); err != nil {
		log.Error("failed to update document row", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("document content stored", slog.String("id", id), slog.String("key", key))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"storage_key": key,
	}))
}
