package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tandelhq/tandel/backend/internal/config"
	"github.com/tandelhq/tandel/backend/internal/handler"
	"github.com/tandelhq/tandel/backend/internal/service/ai"
	chatservice "github.com/tandelhq/tandel/backend/internal/service/chat"
	"github.com/tandelhq/tandel/backend/internal/service/conversation"
	"github.com/tandelhq/tandel/backend/internal/service/identity"
	imageservice "github.com/tandelhq/tandel/backend/internal/service/image"
	"github.com/tandelhq/tandel/backend/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	st, err := openStore(cfg.Storage)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer st.Close()

	registry := chatservice.NewRegistry(st)
	messageLog := chatservice.NewMessageLog(st)

	// Initialize the language-model service
	var replier conversation.Replier
	streaming := false
	if cfg.AI.Enabled() {
		aiSvc, err := ai.NewService(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize AI service: %v", err)
			log.Println("continuing without AI functionality - check the Ark model environment variables")
		} else {
			replier = aiSvc
			streaming = cfg.AI.StreamResponse
			log.Println("AI service initialized successfully")
		}
	} else {
		log.Println("Ark credentials not configured, skipping AI initialization")
	}

	conv := conversation.NewService(registry, messageLog, replier)

	identitySvc := identity.NewService(cfg.Identity.Endpoint, cfg.Identity.APIKey, 15*time.Second)
	if identitySvc.Enabled() {
		log.Println("Identity provider configured")
	} else {
		log.Println("Identity provider credentials not configured, auth routes disabled")
	}

	imageSvc := imageservice.NewService(cfg.Image.BaseURL, 30*time.Second)

	router := handler.NewRouter(conv, identitySvc, imageSvc, streaming && replier != nil)

	startServer(ctx, cfg.Server, router)
}

func openStore(cfg config.StorageConfig) (store.Store, error) {
	if cfg.Path == "" {
		log.Println("using ephemeral in-memory store")
		return store.NewMemoryStore(), nil
	}
	log.Printf("using SQLite store at %s", cfg.Path)
	return store.OpenSQLite(cfg.Path)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Tandel backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
