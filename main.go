package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"video-fetcher/internal/database"
	"video-fetcher/internal/downloader"
	"video-fetcher/internal/fetcher"
	"video-fetcher/internal/handlers"
	"video-fetcher/internal/logging"
	"video-fetcher/internal/middleware"
	"video-fetcher/internal/startup"
	"video-fetcher/internal/transcoder"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
)

func main() {
	startTime := time.Now()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	// Initialize database
	db, err := database.New(config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Initialize pipeline components
	trans := transcoder.New()
	dl := downloader.New()
	f := fetcher.New(db, trans, dl, config)

	// Probe external tools (warnings only; errors surface per-fetch)
	startup.LogToolCheck()

	// Schedule the temp directory janitor. A fetch can never legitimately
	// outlive twice its timeout, so anything that old is leftover.
	janitor := cron.New()
	_, err = janitor.AddFunc(fmt.Sprintf("@every %s", config.JanitorInterval), func() {
		if _, err := f.SweepTempDirs(2 * config.FetchTimeout); err != nil {
			logging.Warn("Janitor sweep failed: %v", err)
		}
	})
	if err != nil {
		startup.LogFatal("Failed to schedule janitor: %v", err)
	}
	janitor.Start()

	// Initialize handlers
	h := handlers.New(db, f, config)

	// Setup router
	router := setupRouter(h, config)

	// Log routes dynamically
	startup.LogHTTPRoutes(router)

	// Apply metrics middleware
	meteredRouter := middleware.Metrics(middleware.DefaultMetricsConfig())(router)

	// Apply logging middleware
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler := middleware.Logger(loggingConfig)(meteredRouter)

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // streaming responses manage their own timeouts
		IdleTimeout:  60 * time.Second,
	}

	// Start graceful shutdown handler
	go handleShutdown(srv, janitor, trans, dl)

	// Start server
	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
}

func setupRouter(h *handlers.Handlers, config *startup.Config) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/", h.Root).Methods("GET")
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/api/version", h.GetVersion).Methods("GET")

	// Fetch API
	r.HandleFunc("/api/fetch", h.CreateFetch).Methods("POST")
	r.HandleFunc("/api/fetch", h.ListFetches).Methods("GET")
	r.HandleFunc("/api/fetch/{id}", h.GetFetch).Methods("GET")
	r.HandleFunc("/api/fetch/{id}", h.DeleteFetch).Methods("DELETE")
	r.HandleFunc("/api/fetch/{id}/file", h.GetFile).Methods("GET")
	r.HandleFunc("/api/fetch/{id}/thumbnail", h.GetThumbnail).Methods("GET")
	r.HandleFunc("/api/stats", h.GetStats).Methods("GET")

	// Prometheus metrics on the same listener
	if config.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	}

	return r
}

func handleShutdown(srv *http.Server, janitor *cron.Cron, trans *transcoder.Transcoder, dl *downloader.Downloader) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Stopping janitor")
	janitor.Stop()
	startup.LogShutdownStepComplete("Janitor stopped")

	startup.LogShutdownStep("Stopping downloader processes")
	dl.Cleanup()
	startup.LogShutdownStepComplete("Downloader cleanup complete")

	startup.LogShutdownStep("Stopping transcoder processes")
	trans.Cleanup()
	startup.LogShutdownStepComplete("Transcoder cleanup complete")

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownComplete()
}
