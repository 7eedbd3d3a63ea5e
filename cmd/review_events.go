package cmd

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"reviewdeck/internal/bootstrap/logging"
	"reviewdeck/internal/errs"
	"reviewdeck/internal/infrastructure/notify"
	"reviewdeck/internal/ports"
	reviewuc "reviewdeck/internal/usecase/review"
)

// reviewEventsHandler streams a review's lifecycle events to websocket
// clients. Delivery starts at connect time; events fired earlier are only
// visible through the persisted review record.
type reviewEventsHandler struct {
	svc      reviewAPIService
	hub      *notify.Hub
	upgrader websocket.Upgrader
}

func newReviewEventsHandler(svc reviewAPIService, hub *notify.Hub) *reviewEventsHandler {
	return &reviewEventsHandler{
		svc: svc,
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *reviewEventsHandler) mount(r chi.Router) {
	r.Get("/api/reviews/{id}/events", h.handleEvents)
}

func (h *reviewEventsHandler) handleEvents(w http.ResponseWriter, r *http.Request) {
	reviewID := chi.URLParam(r, "id")

	if _, err := h.svc.GetReview(r.Context(), reviewID); err != nil {
		if errors.Is(err, ports.ErrReviewNotFound) {
			writeAPIError(w, http.StatusNotFound, err.Error())
			return
		}
		writeAPIError(w, http.StatusInternalServerError, err.Error())
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote its own error response.
		return
	}
	defer conn.Close()

	events, cancel := h.hub.Subscribe(reviewuc.Channel(reviewID))
	defer cancel()

	ctx := r.Context()

	// Drain client frames so close/ping handling works; the stream is
	// one-directional otherwise.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				logging.Warn(ctx, "websocket write failed",
					slog.String("review_id", reviewID),
					slog.Any("err", errs.Loggable(err)))
				return
			}
		}
	}
}
