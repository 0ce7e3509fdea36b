package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/lysyi3m/rss-relay/app/api"
	"github.com/lysyi3m/rss-relay/app/cfg"
	"github.com/lysyi3m/rss-relay/app/command"
	"github.com/lysyi3m/rss-relay/app/database"
	"github.com/lysyi3m/rss-relay/app/feed"
	"github.com/lysyi3m/rss-relay/app/logging"
	"github.com/lysyi3m/rss-relay/app/metrics"
	"github.com/lysyi3m/rss-relay/app/relay"
	"github.com/lysyi3m/rss-relay/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	logCloser, err := logging.Setup(logging.Options{
		Debug:      appCfg.Debug,
		File:       appCfg.LogFile,
		MaxSize:    appCfg.LogMaxSize,
		MaxBackups: appCfg.LogMaxBackups,
		MaxAge:     appCfg.LogMaxAge,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	slog.Info("Starting RSS Relay", "version", appCfg.Version)

	db, err := database.Open(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Debug("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	stateStore := feed.NewStateStore(appCfg.StateFile)
	state, err := stateStore.Load()
	if err != nil {
		slog.Error("Failed to read config from disk", "path", appCfg.StateFile, "error", err)
		os.Exit(1)
	}

	httpClient := feed.NewHTTPClient(appCfg.Timeout(), appCfg.SafeFetch)
	fetcher := feed.NewFetcher(httpClient, feed.NewParser(), appCfg.UserAgent, appCfg.Timeout())

	opts := relay.Options{
		MaxHashes:     appCfg.MaxHashes,
		ChannelMarker: appCfg.ChannelMarker,
		Shortener:     feed.NewShortener(httpClient, appCfg.ShortenerURL, appCfg.ShortenerRPS),
		Metrics:       collector,
		State:         stateStore,
	}
	if appCfg.StripHTML {
		opts.Cleaner = feed.NewCleaner()
	}

	r := relay.New(fetcher, database.NewHashRepository(db), newEmitter(appCfg), opts)

	if err := r.Hydrate(context.Background(), state); err != nil {
		slog.Error("Failed to restore feeds", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount, "interval", appCfg.Interval().String())
	scheduler := tasks.NewScheduler(r, tasks.SchedulerOptions{
		Interval:    appCfg.Interval(),
		WorkerCount: appCfg.WorkerCount,
		PollTimeout: 2 * appCfg.Timeout(),
	})
	scheduler.Start()

	dispatcher := command.NewDispatcher(r, scheduler, appCfg.CommandPrefix)
	handler := api.NewHandler(dispatcher, r, appCfg.Version)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      api.NewServer(handler, metrics.Handler(registry), appCfg.APIAccessKey),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2*appCfg.Timeout() + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	scheduler.Stop()
	slog.Info("Background scheduler stopped")

	if err := r.SaveState(); err != nil {
		slog.Error("Failed to save state on shutdown", "error", err)
	}

	slog.Info("RSS Relay shutdown complete")
}

// newEmitter logs every post and also delivers it to the webhook when one
// is configured.
func newEmitter(appCfg *cfg.Cfg) relay.Emitter {
	if appCfg.WebhookURL == "" {
		return relay.LogEmitter{}
	}

	client := &http.Client{Timeout: appCfg.Timeout()}
	return relay.MultiEmitter{relay.LogEmitter{}, relay.NewWebhookEmitter(client, appCfg.WebhookURL)}
}
