package stream

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	chatmodel "github.com/tandelhq/tandel/backend/internal/model/chat"
	"github.com/tandelhq/tandel/backend/internal/service/conversation"
	"github.com/tandelhq/tandel/backend/pkg/utils"
)

// Handler streams reply lifecycles over Server-Sent Events.
type Handler struct {
	conv *conversation.Service
}

// New creates the stream handler.
func New(conv *conversation.Service) *Handler {
	return &Handler{conv: conv}
}

// RegisterRoutes mounts the streaming send endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/stream", h.handleSend)
}

type sendRequest struct {
	Text        string                 `json:"text"`
	Attachments []chatmodel.Attachment `json:"attachments,omitempty"`
}

// handleSend runs one send through the orchestrator, relaying start, snapshot
// and end/error events as SSE frames. The response stays 200 even when the
// provider fails; the failure is a terminal event on the message, not a
// transport error.
func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	var payload sendRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	utils.SetupSSEHeaders(w)

	err := h.conv.SendMessage(r.Context(), payload.Text, payload.Attachments, func(event conversation.Event) {
		utils.SendSSEChunk(w, flusher, event)
	})
	if err != nil {
		if errors.Is(err, conversation.ErrEmptyMessage) {
			utils.SendSSEChunk(w, flusher, conversation.Event{
				Type: conversation.EventError,
				Text: "message requires text or attachments",
			})
			return
		}
		// Stream failures already produced a terminal error event.
		log.Printf("[stream] send failed: %v", err)
	}
}
