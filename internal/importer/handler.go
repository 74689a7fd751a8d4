package importer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-stock/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-stock/internal/shared"
)

const idempotencyModule = "imports"

// Enqueuer schedules a remote import for background processing.
type Enqueuer interface {
	EnqueueImport(ctx context.Context, userID, link string) (string, error)
}

// Handler exposes import endpoints.
type Handler struct {
	logger     *slog.Logger
	reconciler *Reconciler
	enqueuer   Enqueuer
	keys       shared.IdempotencyKeys
	links      LinkPolicy
}

// NewHandler constructs import handler. enqueuer and keys may be nil; links
// decides which remote hosts may be enqueued.
func NewHandler(logger *slog.Logger, reconciler *Reconciler, enqueuer Enqueuer, keys shared.IdempotencyKeys, links LinkPolicy) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, reconciler: reconciler, enqueuer: enqueuer, keys: keys, links: links}
}

// MountRoutes registers import routes under a /users/{userID} router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/imports", h.handleImport)
	r.Post("/imports/remote", h.handleRemote)
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.Problem(w, http.StatusRequestEntityTooLarge, "Payload Too Large", err.Error())
			return
		}
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "read request body: "+err.Error())
		return
	}
	res, err := h.reconciler.ImportJSON(r.Context(), userID, payload)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

type remoteRequest struct {
	URL string `json:"url"`
}

type remoteResponse struct {
	TaskID string `json:"taskId"`
	URL    string `json:"url"`
}

func (h *Handler) handleRemote(w http.ResponseWriter, r *http.Request) {
	if h.enqueuer == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Unavailable", "background imports are disabled")
		return
	}
	userID := chi.URLParam(r, "userID")
	var req remoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	resolved, err := h.links.Resolve(req.URL)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key != "" && h.keys != nil {
		if err := h.keys.CheckAndInsert(r.Context(), userID+":"+key, idempotencyModule); err != nil {
			if !errors.Is(err, shared.ErrIdempotencyConflict) {
				h.logger.Error("idempotency check failed", slog.Any("error", err))
			}
			httpx.RespondError(w, err)
			return
		}
	}

	taskID, err := h.enqueuer.EnqueueImport(r.Context(), userID, resolved)
	if err != nil {
		if key != "" && h.keys != nil {
			_ = h.keys.Delete(r.Context(), userID+":"+key)
		}
		h.logger.Error("enqueue import failed", slog.String("user_id", userID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, remoteResponse{TaskID: taskID, URL: resolved})
}
