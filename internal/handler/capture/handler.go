package capture

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/tandelhq/tandel/backend/internal/service/attachment"
)

// Handler receives camera still frames over a websocket and answers with the
// ingested attachment record. Each binary frame is one captured image; the
// connection is torn down when the client closes the capture modal,
// regardless of how many frames were taken.
type Handler struct {
	upgrader websocket.Upgrader
}

// New creates the capture handler.
func New() *Handler {
	return &Handler{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the capture websocket.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/capture/ws", h.handleCapture)
}

type captureResult struct {
	Type       string `json:"type"`
	PreviewURL string `json:"previewUrl,omitempty"`
	Base64     string `json:"base64,omitempty"`
	MimeType   string `json:"mimeType,omitempty"`
	Error      string `json:"error,omitempty"`
}

func (h *Handler) handleCapture(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		log.Printf("[capture] websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[capture] stream opened from %s", r.RemoteAddr)

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[capture] stream closed unexpectedly: %v", err)
			}
			return
		}
		if messageType != websocket.BinaryMessage {
			continue
		}

		att, err := attachment.Ingest("camera-frame", data)
		if err != nil {
			h.writeResult(conn, captureResult{Type: "error", Error: err.Error()})
			continue
		}

		h.writeResult(conn, captureResult{
			Type:       "attachment",
			PreviewURL: att.PreviewURL,
			Base64:     att.Base64,
			MimeType:   att.MimeType,
		})
	}
}

func (h *Handler) writeResult(conn *websocket.Conn, result captureResult) {
	if err := conn.WriteJSON(result); err != nil {
		log.Printf("[capture] failed to write result: %v", err)
	}
}
