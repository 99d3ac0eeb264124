package documents

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/doculedger/doculedger/internal/platform/httpx"
)

// Handler exposes the staging-artifact endpoints used by the extraction
// pipeline: a draft is staged here before its confirmation flow commits it.
type Handler struct {
	logger *slog.Logger
	repo   Repository
}

// NewHandler builds the staging handler.
func NewHandler(logger *slog.Logger, repo Repository) *Handler {
	return &Handler{logger: logger, repo: repo}
}

// MountRoutes registers the staging endpoints under an owner scope.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/owners/{ownerID}/staging", func(r chi.Router) {
		r.Post("/", h.CreateStaging)
		r.Get("/{artifactID}", h.GetStaging)
		r.Delete("/{artifactID}", h.DeleteStaging)
	})
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (h *Handler) CreateStaging(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := pathID(r, "ownerID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid owner id")
		return
	}
	var payload json.RawMessage
	if err := httpx.DecodeJSON(r, &payload); err != nil || len(payload) == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "payload must be a JSON document")
		return
	}
	artifact, err := h.repo.CreateStaging(r.Context(), ownerID, payload)
	if err != nil {
		h.logger.Error("create staging artifact", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, artifact)
}

func (h *Handler) GetStaging(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := pathID(r, "ownerID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid owner id")
		return
	}
	artifactID, ok := pathID(r, "artifactID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid artifact id")
		return
	}
	artifact, err := h.repo.GetStaging(r.Context(), ownerID, artifactID)
	if errors.Is(err, ErrNotFound) {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	if err != nil {
		h.logger.Error("get staging artifact", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, artifact)
}

func (h *Handler) DeleteStaging(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := pathID(r, "ownerID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid owner id")
		return
	}
	artifactID, ok := pathID(r, "artifactID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid artifact id")
		return
	}
	if err := h.repo.DeleteStaging(r.Context(), ownerID, artifactID); err != nil {
		h.logger.Error("delete staging artifact", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
