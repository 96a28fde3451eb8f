package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"screenscan/internal"
	"screenscan/internal/config"
	"screenscan/internal/container"
	"screenscan/ui"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	gin.SetMode(appConfig.Server.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appContainer, err := container.New(appConfig, internal.DefaultLogger)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}
	if err := appContainer.Init(ctx); err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer appContainer.Close()

	secret := appConfig.Server.SessionSecret
	if secret == "" {
		// workspaces live in memory, so a per-process secret only costs a re-login after restart
		log.Println("SESSION_SECRET not set, generating an ephemeral one")
		secret = uuid.NewString()
	}

	server, err := ui.NewServer(ui.Options{
		Clients:       appContainer.Clients,
		Hub:           appContainer.SSEHub,
		Objects:       appContainer.Objects,
		SessionSecret: secret,
		PublicURL:     appConfig.Server.PublicURL,
		SecureCookie:  strings.HasPrefix(appConfig.Server.PublicURL, "https://"),
		Logger:        appContainer.Logger,
	})
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}

	go appContainer.Clients.Run(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start(":" + appConfig.Server.Port) }()

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	case <-ctx.Done():
		log.Println("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Graceful shutdown failed: %v", err)
		}
	}
}
