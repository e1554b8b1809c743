package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	identitymodel "github.com/tandelhq/tandel/backend/internal/model/identity"
	"github.com/tandelhq/tandel/backend/internal/service/identity"
	"github.com/tandelhq/tandel/backend/pkg/utils"
)

// Handler exposes the identity provider operations.
type Handler struct {
	identitySvc *identity.Service
}

// New creates the auth handler.
func New(identitySvc *identity.Service) *Handler {
	return &Handler{identitySvc: identitySvc}
}

// RegisterRoutes mounts the auth routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/signin", h.handleSignIn)
	r.Post("/auth/signup", h.handleSignUp)
	r.Post("/auth/signout", h.handleSignOut)
	r.Get("/auth/me", h.handleCurrent)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	h.authenticate(w, r, h.identitySvc.SignIn)
}

func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	h.authenticate(w, r, h.identitySvc.SignUp)
}

func (h *Handler) handleSignOut(w http.ResponseWriter, r *http.Request) {
	h.identitySvc.SignOut()
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}

func (h *Handler) handleCurrent(w http.ResponseWriter, r *http.Request) {
	profile := h.identitySvc.Current()
	if profile == nil {
		utils.RespondJSON(w, http.StatusOK, map[string]any{"user": nil})
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"user": profile})
}

type authFunc func(ctx context.Context, email, password string) (*identitymodel.Profile, error)

func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request, verb authFunc) {
	var payload credentials
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Email == "" || payload.Password == "" {
		utils.RespondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	profile, err := verb(r.Context(), payload.Email, payload.Password)
	if err != nil {
		var provider *identity.ProviderError
		switch {
		case errors.As(err, &provider):
			utils.RespondError(w, http.StatusUnauthorized, provider.Message)
		case errors.Is(err, identity.ErrAuthDisabled):
			utils.RespondError(w, http.StatusServiceUnavailable, "authentication unavailable")
		default:
			utils.RespondError(w, http.StatusBadGateway, "An error occurred.")
		}
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{"user": profile})
}
