package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/venom-hub/internal/auth"
	"github.com/venom-hub/internal/config"
	"github.com/venom-hub/internal/handler"
	"github.com/venom-hub/internal/kafka"
	"github.com/venom-hub/internal/postgres"
	"github.com/venom-hub/internal/recordstore"
	"github.com/venom-hub/internal/storage"
	"github.com/venom-hub/internal/websocket"
	"github.com/venom-hub/internal/worker"
)

const remoteRetryInterval = 15 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	envPath := flag.String("env", ".env", "Path to an optional .env file")
	flag.Parse()

	envErr := godotenv.Load(*envPath)

	cfg, cfgErr := config.Load(*configPath)
	if cfgErr != nil {
		cfg = config.DefaultConfig()
	}

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Log.SlogLevel(),
	}))
	slog.SetDefault(logger)

	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		logger.Warn("failed to load env file", "path", *envPath, "error", envErr)
	}
	if cfgErr != nil {
		logger.Warn("failed to load config file, using defaults", "error", cfgErr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Local record store
	backend, err := recordstore.NewBackend(&cfg.Local, &cfg.Redis, logger)
	if err != nil {
		logger.Error("failed to open local store", "driver", cfg.Local.Driver, "error", err)
		os.Exit(1)
	}
	adminHash, err := auth.HashPassword(cfg.Auth.AdminPassword, cfg.Auth.BcryptCost)
	if err != nil {
		logger.Error("failed to hash admin password", "error", err)
		os.Exit(1)
	}
	store := recordstore.New(backend, recordstore.Options{
		Prefix:            cfg.Local.Prefix,
		AdminPasswordHash: adminHash,
	}, logger)
	defer store.Close()
	logger.Info("local store ready", "driver", cfg.Local.Driver, "path", cfg.Local.Path)

	// Remote backend, only when configured
	remote, repo := connectRemote(ctx, cfg, logger)
	if repo != nil {
		defer repo.Close()
	}

	facade := storage.New(storage.NewLocalSource(store), remote, storage.Options{
		RemoteTimeout: cfg.Remote.QueryTimeout,
		BcryptCost:    cfg.Auth.BcryptCost,
	}, logger)

	if repo != nil {
		go worker.UntilReady(ctx, prepareRemote(repo, facade), remoteRetryInterval, logger)
	}

	wsHub := websocket.NewHub(logger)
	go wsHub.Run()
	logger.Info("WebSocket hub initialized")

	var mirror *worker.MirrorWorker
	if cfg.Mirror.Enabled && facade.RemoteAvailable() {
		mirror = worker.NewMirrorWorker(facade, &cfg.Mirror, logger)
		if err := mirror.Start(ctx); err != nil {
			logger.Error("failed to start mirror worker", "error", err)
			os.Exit(1)
		}
	}

	var viewConsumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		logger.Info("initializing view consumer",
			"brokers", cfg.Kafka.Brokers,
			"topic", cfg.Kafka.Topic,
		)
		viewConsumer, err = kafka.NewConsumer(&cfg.Kafka, facade, logger)
		if err != nil {
			logger.Warn("failed to create view consumer, continuing without Kafka", "error", err)
			viewConsumer = nil
		} else if err := viewConsumer.Start(); err != nil {
			logger.Warn("failed to start view consumer, continuing without Kafka", "error", err)
			viewConsumer = nil
		}
	}

	tokens := auth.NewTokens(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL)
	httpHandler := handler.NewHandler(facade, tokens, wsHub, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpHandler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("starting HTTP server", "port", cfg.Server.Port, "remote", facade.RemoteAvailable())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	wsHub.Stop()

	if viewConsumer != nil {
		if err := viewConsumer.Stop(); err != nil {
			logger.Error("failed to stop view consumer", "error", err)
		}
	}

	if mirror != nil {
		if err := mirror.Stop(); err != nil {
			logger.Error("failed to stop mirror worker", "error", err)
		}
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "error", err)
	}

	logger.Info("server stopped")
}

// connectRemote opens the PostgreSQL backend when it is configured. The
// returned Remote is a nil interface when the server runs local-only. The
// pool connects lazily, so an unreachable database does not disable it.
func connectRemote(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Remote, *postgres.Repository) {
	if !cfg.Remote.Available() {
		logger.Info("remote backend not configured, running local-only")
		return nil, nil
	}

	repo, err := postgres.NewRepository(ctx, &cfg.Remote, cfg.Auth.Domain, logger)
	if err != nil {
		logger.Warn("failed to create remote backend, running local-only", "error", err)
		return nil, nil
	}

	logger.Info("remote backend configured")
	return repo, repo
}

// prepareRemote runs the remote migrations and seeds the bootstrap admin.
// Calls made before it succeeds fall back to the local store one by one.
func prepareRemote(repo *postgres.Repository, facade *storage.Facade) func(context.Context) error {
	return func(ctx context.Context) error {
		mctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := repo.RunMigrations(mctx); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		return facade.SeedRemoteAdmin(mctx)
	}
}
