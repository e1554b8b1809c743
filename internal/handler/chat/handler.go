package chat

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tandelhq/tandel/backend/internal/service/conversation"
)

// Handler exposes session registry and transcript operations.
type Handler struct {
	conv *conversation.Service
}

// New creates the chat handler.
func New(conv *conversation.Service) *Handler {
	return &Handler{conv: conv}
}

// RegisterRoutes mounts the session and transcript routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/sessions", h.handleListSessions)
	r.Delete("/sessions/{sessionID}", h.handleDeleteSession)
	r.Post("/sessions/{sessionID}/pin", h.handleTogglePin)
	r.Put("/sessions/{sessionID}/title", h.handleRenameSession)
	r.Post("/sessions/{sessionID}/select", h.handleSelectSession)
	r.Post("/chat/new", h.handleNewChat)
	r.Get("/messages", h.handleMessages)
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"sessions": h.conv.Sessions(),
		"activeId": h.conv.ActiveSession(),
	})
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	h.conv.DeleteSession(chi.URLParam(r, "sessionID"))
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) handleTogglePin(w http.ResponseWriter, r *http.Request) {
	h.conv.TogglePin(chi.URLParam(r, "sessionID"))
	respondJSON(w, http.StatusOK, map[string]string{"status": "toggled"})
}

func (h *Handler) handleRenameSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Title == "" {
		respondError(w, http.StatusBadRequest, "title is required")
		return
	}

	h.conv.RenameSession(chi.URLParam(r, "sessionID"), payload.Title)
	respondJSON(w, http.StatusOK, map[string]string{"status": "renamed"})
}

func (h *Handler) handleSelectSession(w http.ResponseWriter, r *http.Request) {
	h.conv.SelectSession(chi.URLParam(r, "sessionID"))
	respondJSON(w, http.StatusOK, map[string]any{"messages": h.conv.Messages()})
}

func (h *Handler) handleNewChat(w http.ResponseWriter, r *http.Request) {
	h.conv.NewChat()
	respondJSON(w, http.StatusOK, map[string]string{"status": "new"})
}

func (h *Handler) handleMessages(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"messages": h.conv.Messages()})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
