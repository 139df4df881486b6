package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"rnetagent/app/config"
	"rnetagent/app/usecase"
	"rnetagent/internal/infrastructure/backend"
	"rnetagent/internal/infrastructure/settings"
	"rnetagent/internal/infrastructure/store/filesystem"
	"rnetagent/internal/infrastructure/transport"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on environment")
	}

	// logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg := loadConfig()

	// Settings provider (rnet-ai namespace)
	provider, err := settings.NewProvider(cfg.SettingsFile, cfg.WorkspaceSettingsFile, logger)
	if err != nil {
		logger.Error("settings init failed", "err", err)
		log.Fatalf("settings init: %v", err)
	}
	snapshot := provider.Snapshot()
	logger.Info("settings loaded",
		"backend_url", snapshot.BackendURL, "timeout", snapshot.BackendTimeout)

	// Backend client
	client := backend.NewClient(snapshot.BackendURL, snapshot.BackendTimeout, logger)

	// Workspace writer
	workspace, err := filesystem.NewWorkspaceRepository(cfg.WorkspaceDir)
	if err != nil {
		logger.Error("workspace init failed", "err", err)
		log.Fatalf("workspace init: %v", err)
	}

	// Usecases / services
	generator := usecase.NewGenerationService(client, workspace, provider, logger)
	defer generator.Close()

	// Startup connectivity probe, informational only
	probeCtx, probeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if status := client.TestConnection(probeCtx); status.Success {
		logger.Info("backend reachable", "url", snapshot.BackendURL)
	} else {
		logger.Warn("backend not reachable at startup", "reason", status.Error)
	}
	probeCancel()

	// Transport (panel HTTP surface)
	handler := transport.NewPanelHandler(generator, provider, logger)

	r := mux.NewRouter()
	handler.RegisterRoutes(r)
	corsHandler := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)(r)

	addr := fmt.Sprintf("%s:%d", cfg.Panel.Host, cfg.Panel.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      corsHandler,
		ReadTimeout:  cfg.Panel.ReadTimeout,
		WriteTimeout: cfg.Panel.WriteTimeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		logger.Info("starting panel server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("panel server failed", "err", err)
			cancel()
		}
	}()

	// OS signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutdown signal received")
	case <-ctx.Done():
		logger.Info("context cancelled")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Info("shutting down panel server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("panel server shutdown error", "err", err)
	}

	logger.Info("agent stopped")
}

type agentConfig struct {
	Panel                 config.HTTPServerConfig
	SettingsFile          string
	WorkspaceSettingsFile string
	WorkspaceDir          string
}

func loadConfig() *agentConfig {
	workspaceDir := getEnv("RNET_WORKSPACE_DIR", "./workspace")

	return &agentConfig{
		Panel: config.HTTPServerConfig{
			Host:         getEnv("RNET_PANEL_HOST", "127.0.0.1"),
			Port:         getEnvInt("RNET_PANEL_PORT", 7420),
			ReadTimeout:  30 * time.Minute,
			WriteTimeout: 30 * time.Minute,
		},
		SettingsFile:          getEnv("RNET_SETTINGS_FILE", "./rnet-ai.yaml"),
		WorkspaceSettingsFile: filepath.Join(workspaceDir, ".rnet-ai.yaml"),
		WorkspaceDir:          workspaceDir,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
