package inventory

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-stock/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the inventory module.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers inventory routes under a /users/{userID} router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/inventory", h.handleView)
	r.Get("/inventory/lookup/{code}", h.handleLookup)
	r.Post("/products", h.handleCreate)
	r.Patch("/products/{id}", h.handleUpdate)
	r.Delete("/products/{id}", h.handleDelete)
}

func (h *Handler) handleView(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := FilterOptions{Query: q.Get("q"), Status: strings.TrimSpace(q.Get("filter"))}
	view, err := h.service.View(r.Context(), chi.URLParam(r, "userID"), opts)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) handleLookup(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Lookup(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "code"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var input CreateInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.service.Create(r.Context(), chi.URLParam(r, "userID"), input)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch Patch
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.service.Update(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if !httpx.IsClientError(err) && !errors.Is(err, r.Context().Err()) {
		h.logger.Error("inventory request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
	}
	httpx.RespondError(w, err)
}
