package image

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	imageservice "github.com/tandelhq/tandel/backend/internal/service/image"
	"github.com/tandelhq/tandel/backend/pkg/utils"
)

// Handler exposes image generation.
type Handler struct {
	imageSvc *imageservice.Service
}

// New creates the image handler.
func New(imageSvc *imageservice.Service) *Handler {
	return &Handler{imageSvc: imageSvc}
}

// RegisterRoutes mounts the image generation route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/images", h.handleGenerate)
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	url, err := h.imageSvc.Generate(r.Context(), payload.Prompt)
	if err != nil {
		if errors.Is(err, imageservice.ErrEmptyPrompt) {
			utils.RespondError(w, http.StatusBadRequest, "prompt is required")
			return
		}
		utils.RespondError(w, http.StatusBadGateway, "image generation failed")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"url": url})
}
