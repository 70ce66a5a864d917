// Package download implements the HTTP handler that streams a document's
// blob content back to its owner.
package download

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

type Store interface {
	SelectOneOwned(ctx context.Context, principal models.Principal, table, idColumn string, idValue any, columns []string) (map[string]any, error)
}

// Blob downloads document content.
type Blob interface {
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
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
	const op = "handlers.document.download"
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

	doc, err := h.store.SelectOneOwned(r.Context(), principal, "documents", "id", id, nil)
	if err != nil {
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

	storageKey, _ := doc["storage_key"].(string)
	if storageKey == "" {
		log.Warn("document has no content", slog.String("id", id))
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("document has no content"))
		return
	}

	body, contentType, err := h.blob.Get(r.Context(), storageKey)
	if err != nil {
		if errors.Is(err, objectstore.ErrNotFound) {
			log.Warn("blob missing for document", slog.String("id", id), slog.String("key", storageKey))
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("document has no content"))
			return
		}
		log.Error("failed to fetch blob", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}
	defer body.Close()

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if _, err := io.Copy(w, body); err != nil {
		log.Error("failed to stream blob", sl.Err(err))
	}
}
