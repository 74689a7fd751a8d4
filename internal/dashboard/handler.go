package dashboard

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-stock/internal/inventory"
	"github.com/odyssey-erp/odyssey-stock/internal/platform/httpx"
)

const heartbeatInterval = 15 * time.Second

// Handler exposes the dashboard and the live inventory stream.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	inventory *inventory.Service
}

// NewHandler constructs dashboard handler.
func NewHandler(logger *slog.Logger, service *Service, inv *inventory.Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, inventory: inv}
}

// MountRoutes registers dashboard routes under a /users/{userID} router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/dashboard", h.handleOverview)
	r.Get("/inventory/stream", h.handleStream)
}

func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.service.Overview(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		if !httpx.IsClientError(err) {
			h.logger.Error("dashboard overview failed", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, overview)
}

// handleStream sends a server-sent event with the recomputed view after every
// change of the user's collection.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		httpx.Problem(w, http.StatusInternalServerError, "Streaming Unsupported", "")
		return
	}
	userID := chi.URLParam(r, "userID")
	q := r.URL.Query()
	tracker := NewTracker(h.inventory.Engine(), inventory.FilterOptions{
		Query:  q.Get("q"),
		Status: strings.TrimSpace(q.Get("filter")),
	})

	ctx := r.Context()
	unsubscribe, err := h.inventory.Subscribe(ctx, userID, func(products []inventory.Product) {
		seq := tracker.Next()
		go tracker.PushAt(seq, products)
	})
	if err != nil {
		if !httpx.IsClientError(err) {
			h.logger.Error("inventory stream subscribe failed", slog.String("user_id", userID), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()
	var sent uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case <-tracker.Updates():
			frame, ok := tracker.Latest()
			if !ok || frame.Seq <= sent {
				continue
			}
			if err := writeEvent(w, "inventory", frame); err != nil {
				h.logger.Debug("inventory stream closed", slog.String("user_id", userID), slog.Any("error", err))
				return
			}
			flusher.Flush()
			sent = frame.Seq
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
