package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/evanjr/daylog/internal/auth"
	"github.com/evanjr/daylog/internal/config"
	"github.com/evanjr/daylog/internal/musicsync"
	"github.com/evanjr/daylog/internal/scheduler"
	"github.com/evanjr/daylog/internal/secrets"
	"github.com/evanjr/daylog/internal/spotify"
	"github.com/evanjr/daylog/internal/stats"
	"github.com/evanjr/daylog/internal/store"
	"github.com/evanjr/daylog/internal/weather"
	"github.com/evanjr/daylog/internal/web"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger = setupLogger(cfg.LogLevel)

	if cfg.Spotify.ClientID == "" {
		logger.Error("spotify client id is not configured")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.Open(ctx, cfg.Database.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("database ready", "path", cfg.Database.Path)

	secretStore, err := buildSecretStore(cfg.Secrets)
	if err != nil {
		logger.Error("failed to set up secret store", "error", err)
		os.Exit(1)
	}

	authManager := auth.NewManager(auth.Config{
		ClientID:    cfg.Spotify.ClientID,
		RedirectURL: cfg.Spotify.RedirectURL,
		Timeout:     cfg.Sync.Timeout,
		OpenBrowser: true,
	}, secretStore, logger)

	spotifyClient := spotify.New(authManager.HTTPClient())

	syncService := musicsync.NewService(
		spotifyClient,
		db.Plays(),
		db.Artists(),
		db.SyncState(),
		musicsync.Config{
			PageLimit:       cfg.Sync.PageLimit,
			MaxPagesPerSync: cfg.Sync.MaxPagesPerSync,
			InitialLookback: cfg.Sync.InitialLookback,
			ArtistWorkers:   cfg.Sync.ArtistWorkers,
		},
		logger,
	)

	statsService := stats.NewService(db)

	var weatherService *weather.Service
	if cfg.Weather.Enabled && cfg.Weather.APIKey != "" {
		weatherService = weather.NewService(
			weather.NewClient(cfg.Weather.APIKey),
			db.Entries(),
			cfg.Weather.Location,
			logger,
		)
	}

	var backfiller web.WeatherBackfiller
	if weatherService != nil {
		backfiller = weatherService
	}
	handlers := web.NewHandlers(authManager, syncService, statsService, db.Entries(), backfiller, logger)
	server := web.NewServer(cfg.Server.Addr, handlers, logger)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	sched := scheduler.New(syncService, cfg.Sync.Interval, 5*cfg.Sync.Timeout, logger)
	go func() {
		if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("scheduler error", "error", err)
		}
	}()

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	logger.Info("daylog running",
		"addr", cfg.Server.Addr,
		"sync_interval", cfg.Sync.Interval,
		"weather", weatherService != nil,
	)

	select {
	case err := <-serverErr:
		logger.Error("server error", "error", err)
		cancel()
		os.Exit(1)
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Sync.Timeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
}

// buildSecretStore selects the token store backend. The OS keyring is the
// default; the file backend exists for headless setups.
func buildSecretStore(cfg config.SecretsConfig) (secrets.Store, error) {
	switch cfg.Backend {
	case "file":
		if cfg.FilePath != "" {
			return secrets.NewFileStore(cfg.FilePath), nil
		}
		return secrets.DefaultFileStore()
	default:
		return secrets.NewKeyring(), nil
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	return slog.New(handler)
}
