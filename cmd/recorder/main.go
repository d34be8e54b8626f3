// Command recorder keeps an identified trade socket session open and records
// the item feed into PostgreSQL.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	empire "github.com/rickgao/empire-trade"
	"github.com/rickgao/empire-trade/internal/config"
	"github.com/rickgao/empire-trade/internal/database"
	"github.com/rickgao/empire-trade/internal/logging"
	"github.com/rickgao/empire-trade/internal/poller"
	"github.com/rickgao/empire-trade/internal/router"
	"github.com/rickgao/empire-trade/internal/version"
	"github.com/rickgao/empire-trade/internal/writer"
)

func main() {
	configPath := flag.String("config", "configs/recorder.local.yaml", "path to config file")
	healthAddr := flag.String("health-addr", ":8080", "health server listen address (empty to disable)")
	flag.Parse()

	if err := run(*configPath, *healthAddr); err != nil {
		slog.Error("recorder failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath, healthAddr string) error {
	// Load configuration
	cfg, err := config.LoadAndValidate(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.Recorder.Enabled {
		return errors.New("recorder.enabled is false, nothing to do")
	}

	// Set up structured logging
	logger, closeLog, err := logging.New(cfg.Logging, os.Stdout)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer closeLog()
	slog.SetDefault(logger)

	v := version.Get()
	logger.Info("starting recorder",
		"version", v.Version,
		"commit", v.Commit,
		"config", configPath,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to database
	logger.Info("connecting to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := writer.EnsureSchema(ctx, pool); err != nil {
		return err
	}
	logger.Info("database connected")

	// Event router and writer
	rt := router.NewRouter(router.RouterConfig{
		Events:     cfg.Recorder.Events,
		BufferSize: cfg.Recorder.BufferSize,
	}, logging.WithComponent(logger, "router"))

	w := writer.NewEventWriter(writer.WriterConfig{
		BatchSize:     cfg.Recorder.BatchSize,
		FlushInterval: cfg.Recorder.FlushInterval,
	}, rt.Buffer(), pool, logging.WithComponent(logger, "writer"))
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start writer: %w", err)
	}

	// Realtime session
	client, err := empire.New(ctx,
		empire.WithAPIKey(cfg.API.APIKey),
		empire.WithBaseURL(cfg.API.BaseURL),
		empire.WithUserAgent(cfg.API.UserAgent),
		empire.WithTimeout(cfg.API.Timeout),
		empire.WithLogger(logger),
		empire.WithRealtime(cfg.Realtime.Enabled),
		empire.WithSocketConfig(cfg.Realtime.ManagerConfig()),
	)
	if err != nil {
		return fmt.Errorf("start realtime session: %w", err)
	}

	sock, err := client.Socket()
	if err != nil {
		return fmt.Errorf("socket: %w", err)
	}
	if err := rt.Start(sock); err != nil {
		return fmt.Errorf("start router: %w", err)
	}

	// Account snapshots
	var snapshots *poller.Poller
	if sc := cfg.Recorder.Snapshots; sc.Enabled {
		store := writer.NewSnapshotStore(pool, logging.WithComponent(logger, "snapshots"))
		snapshots = poller.New(poller.Config{
			Interval:    sc.Interval,
			Concurrency: sc.Concurrency,
			Timeout:     sc.Timeout,
		}, client.API(), store, logging.WithComponent(logger, "poller"))
		if err := snapshots.Start(ctx); err != nil {
			return fmt.Errorf("start snapshot poller: %w", err)
		}
	}

	var healthServer *http.Server
	if healthAddr != "" {
		healthServer = &http.Server{
			Addr:              healthAddr,
			Handler:           createHealthHandler(pool, client, rt, w),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("starting health server", "addr", healthAddr)
			if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
				logger.Error("health server error", "error", err)
			}
		}()
	}

	logger.Info("recorder running", "events", len(cfg.Recorder.Events))

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if healthServer != nil {
		healthServer.Shutdown(shutdownCtx)
	}
	if snapshots != nil {
		if err := snapshots.Stop(shutdownCtx); err != nil {
			logger.Warn("stop snapshot poller", "error", err)
		}
	}
	if err := client.Close(shutdownCtx); err != nil {
		logger.Warn("close realtime session", "error", err)
	}
	// Stop closes the buffer; the writer drains it in its final flush.
	rt.Stop()
	if err := w.Stop(shutdownCtx); err != nil {
		logger.Warn("stop writer", "error", err)
	}

	stats := w.Stats()
	logger.Info("recorder stopped",
		"inserts", stats.Inserts,
		"conflicts", stats.Conflicts,
		"errors", stats.Errors,
	)
	return nil
}

// createHealthHandler creates the HTTP handler for health checks.
func createHealthHandler(pool *pgxpool.Pool, client *empire.Client, rt router.Router, w *writer.EventWriter) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(rw http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]any),
		}

		// Check database
		if err := pool.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["postgres"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["postgres"] = "connected"
		}

		// Check socket session
		session := client.Stats()
		health.Components["realtime"] = session
		if health.Status == "healthy" && (!session.Connected || !session.Authenticated) {
			health.Status = "degraded"
		}

		health.Components["router"] = rt.Stats()
		health.Components["writer"] = w.Stats()

		rw.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			rw.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(rw).Encode(health)
	})

	return mux
}
