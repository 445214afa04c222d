package api

import (
	"log/slog"
	"net/http"

	"github.com/gashawdemlew/telegram-info-guide-bot/internal/bot"
)

// webhookHandler receives push deliveries from the chat platform.
type webhookHandler struct {
	queue  *bot.Queue
	parse  UpdateParser
	logger *slog.Logger
}

// receive parses one delivery, enqueues it, and acks immediately.
//
// Acknowledgement policy: everything that reached us gets a 200 unless the
// body is unreadable — re-delivery of a malformed body can never succeed,
// but a 400 at least surfaces it in the platform's webhook diagnostics.
// Non-message deliveries and queue-full drops are acked so the platform
// does not retry them.
func (h *webhookHandler) receive(w http.ResponseWriter, r *http.Request) {
	upd, err := h.parse(r)
	if err != nil {
		h.logger.Warn("rejecting malformed webhook body", "error", err)
		writeError(w, http.StatusBadRequest, "bad_update", "malformed update body", h.logger)
		return
	}

	// Enqueue handles its own full-queue logging; the ack must not wait.
	if !upd.IsZero() {
		h.queue.Enqueue(upd)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
