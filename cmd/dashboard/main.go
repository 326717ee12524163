// cmd/dashboard/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telemetry-dashboard/internal/alerting"
	"telemetry-dashboard/internal/anomaly"
	"telemetry-dashboard/internal/api"
	"telemetry-dashboard/internal/auth"
	"telemetry-dashboard/internal/config"
	"telemetry-dashboard/internal/data"
	"telemetry-dashboard/internal/ingest"
	"telemetry-dashboard/internal/logging"
	"telemetry-dashboard/internal/metrics"
	"telemetry-dashboard/internal/storage"
	"telemetry-dashboard/internal/websocket"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// --- Configuration ---
	configPath := flag.String("config", ".", "Path to the configuration file directory")
	webDir := flag.String("webdir", "", "Path to the web assets directory (overrides server.web_dir)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	if *webDir != "" {
		cfg.Server.WebDir = *webDir
	}

	logFile := logging.Setup(cfg.Log)
	defer logFile.Close()

	// --- Initialize Components ---
	store := storage.NewStore(storage.Options{
		HistoryLimit: cfg.Store.HistoryLimit,
		Revision:     data.Revision(cfg.Store.SchemaRevision),
		CapResync:    cfg.Store.CapResync,
		Logger:       logging.New("store"),
		Observer:     metrics.StoreObserver{},
	})

	hub := websocket.NewHub(store.Snapshot(), logging.New("ws"))
	store.Subscribe(hub.OnChange)

	detector := anomaly.NewDetector(cfg.Anomaly, store.Schema())
	alerter := alerting.NewAlerter(hub, logging.New("alert"))
	store.Subscribe(func(c storage.Change) {
		alerter.ProcessAlerts(detector.Check(c.Telemetry.Metric))
	})

	sources, closeSources, err := buildSources(cfg.Ingest)
	if err != nil {
		log.Fatalf("Error setting up ingest: %v", err)
	}
	defer closeSources()
	dispatcher := ingest.NewDispatcher(store, cfg.Ingest.Buffer, logging.New("ingest"), sources...)

	authManager := auth.NewAuthManager(cfg.Auth)
	apiHandler := api.NewAPIHandler(store, dispatcher, hub, authManager, cfg.Server.WebDir, cfg.Server.AllowedOrigins, logging.New("api"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Start hub and ingest ---
	go hub.Run(ctx)

	ingestDone := make(chan error, 1)
	go func() { ingestDone <- dispatcher.Run(ctx) }()

	// --- Setup HTTP Servers ---
	dataServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.DataPort),
		Handler:           api.SetupDataRouter(apiHandler),
		ReadHeaderTimeout: 10 * time.Second,
	}
	uiServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.UIPort),
		Handler:           api.SetupUIRouter(apiHandler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 2)
	go func() {
		log.Printf("Starting Data Ingestion Server on port %d", cfg.Server.DataPort)
		if err := dataServer.ListenAndServe(); err != http.ErrServerClosed {
			serverErr <- fmt.Errorf("data server: %w", err)
		}
	}()
	go func() {
		log.Printf("Starting Web UI & WebSocket Server on port %d", cfg.Server.UIPort)
		if err := uiServer.ListenAndServe(); err != http.ErrServerClosed {
			serverErr <- fmt.Errorf("ui server: %w", err)
		}
	}()

	// --- Graceful Shutdown ---
	exitCode := 0
	select {
	case <-ctx.Done():
		log.Println("Shutdown signal received")
	case err := <-serverErr:
		log.Printf("Server error: %v", err)
		exitCode = 1
	case err := <-ingestDone:
		if err != nil {
			log.Printf("Ingest stopped: %v", err)
			exitCode = 1
		}
	}
	stop()

	log.Println("Shutting down servers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := dataServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Data server shutdown: %v", err)
	}
	if err := uiServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("UI server shutdown: %v", err)
	}

	log.Println("Servers gracefully stopped.")
	if exitCode != 0 {
		closeSources()
		logFile.Close()
		os.Exit(exitCode)
	}
}
