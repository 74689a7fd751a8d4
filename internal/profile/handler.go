package profile

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-stock/internal/platform/httpx"
)

// Handler exposes profile endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs profile handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers profile routes under a /users/{userID} router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/profile", h.handleGet)
	r.Patch("/profile", h.handleMerge)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) handleMerge(w http.ResponseWriter, r *http.Request) {
	var patch Patch
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		h.fail(w, err)
		return
	}
	p, err := h.service.Merge(r.Context(), chi.URLParam(r, "userID"), patch)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	if !httpx.IsClientError(err) {
		h.logger.Error("profile request failed", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
