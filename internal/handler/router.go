package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	authHandler "github.com/tandelhq/tandel/backend/internal/handler/auth"
	captureHandler "github.com/tandelhq/tandel/backend/internal/handler/capture"
	chatHandler "github.com/tandelhq/tandel/backend/internal/handler/chat"
	imageHandler "github.com/tandelhq/tandel/backend/internal/handler/image"
	streamHandler "github.com/tandelhq/tandel/backend/internal/handler/stream"
	middlewarePkg "github.com/tandelhq/tandel/backend/internal/middleware"
	"github.com/tandelhq/tandel/backend/internal/service/conversation"
	identityService "github.com/tandelhq/tandel/backend/internal/service/identity"
	imageService "github.com/tandelhq/tandel/backend/internal/service/image"
	"github.com/tandelhq/tandel/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(conv *conversation.Service, identitySvc *identityService.Service, imageSvc *imageService.Service, streaming bool) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Route("/api", func(api chi.Router) {
		chatHandler.New(conv).RegisterRoutes(api)
		captureHandler.New().RegisterRoutes(api)

		if streaming {
			streamHandler.New(conv).RegisterRoutes(api)
		} else {
			api.Post("/stream", func(w http.ResponseWriter, r *http.Request) {
				utils.RespondError(w, http.StatusServiceUnavailable, "ai streaming unavailable")
			})
		}

		if imageSvc != nil {
			imageHandler.New(imageSvc).RegisterRoutes(api)
		}
		if identitySvc != nil && identitySvc.Enabled() {
			authHandler.New(identitySvc).RegisterRoutes(api)
		}
	})

	return r
}
