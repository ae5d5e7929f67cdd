package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/extractproof/internal/api"
	"github.com/dgallion1/extractproof/internal/config"
	"github.com/dgallion1/extractproof/internal/pipeline"
	"github.com/joho/godotenv"
	"golang.org/x/net/netutil"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// A missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.ArtifactDir, 0o755); err != nil {
		log.Error("create artifact dir", "dir", cfg.ArtifactDir, "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize pipeline.
	analyzer, closeExtractor := pipeline.NewAnalyzerFromConfig(cfg, log)
	orch := pipeline.NewOrchestrator(cfg, analyzer, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, log, cfg)

	httpServer := &http.Server{
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ln, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		log.Error("listen", "port", cfg.Port, "error", err)
		os.Exit(1)
	}
	ln = netutil.LimitListener(ln, cfg.MaxConnections)

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		// Drain HTTP first so no upload is still submitting when the queue closes.
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
		closeExtractor()
	}()

	log.Info("starting extractproof", "port", cfg.Port, "backend", cfg.ExtractBackend,
		"max_connections", cfg.MaxConnections)
	if err := httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
