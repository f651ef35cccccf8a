package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/DevinMcDonald/GallupStopMotion/config"
	"github.com/DevinMcDonald/GallupStopMotion/internal/api"
	"github.com/DevinMcDonald/GallupStopMotion/internal/db"
	"github.com/DevinMcDonald/GallupStopMotion/internal/hub"
	"github.com/DevinMcDonald/GallupStopMotion/internal/store"
	"github.com/DevinMcDonald/GallupStopMotion/internal/video"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "kioskd ", log.LstdFlags)

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	if cfg.Server.ButtonToken == "" {
		logger.Fatalf("server.button_token must be configured; the button endpoint refuses all requests without it")
	}

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	appStore := store.NewGormStore(gormDB)
	logger.Println("data store initialized")

	// Media directories must exist before the first capture lands.
	for _, dir := range []string{cfg.Media.FramesDir, cfg.Media.VideosDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Fatalf("failed to create media directory %s: %v", dir, err)
		}
	}

	ramp := video.Ramp{
		MinFPS:         cfg.Media.RampMinFPS,
		MaxFPS:         cfg.Media.RampMaxFPS,
		HalfLifeFrames: cfg.Media.RampHalfLifeFrames,
	}
	builder := video.NewBuilder(cfg.Media.FFmpegPath, ramp, logger)

	eventHub := hub.New(logger)

	handler := api.NewHandler(appStore, builder, eventHub,
		cfg.Media.FramesDir, cfg.Media.VideosDir, cfg.Server.ButtonToken, logger)

	router := api.NewRouter(handler, &cfg.Server)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
