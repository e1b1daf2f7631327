package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"setlister/internal/auth"
	"setlister/internal/config"
	"setlister/internal/logging"
	"setlister/internal/realtime"
	"setlister/internal/store"
	"setlister/internal/store/memory"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("setlister stopped")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	logging.SetGlobal(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	data, closeData, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeData()

	issuer, err := auth.NewIssuer([]byte(cfg.Auth.Secret), cfg.Auth.AccessTTL, cfg.Auth.ShareTTL)
	if err != nil {
		return err
	}

	hub := realtime.NewHub(logger, cfg.Server.AllowedOrigins)
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	publisher, closePublisher, err := newPublisher(hubCtx, cfg, hub, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	dispatcher := realtime.NewDispatcher(publisher, cfg.Notify.Buffer, logger)
	defer dispatcher.Close()

	svc := newServices(cfg, data, issuer, dispatcher)

	if cfg.DemoData {
		if err := bootstrapDemoData(ctx, data, svc.songs, svc.setlists); err != nil {
			return err
		}
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           newHTTPHandler(cfg, data, svc, issuer, hub),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Str("store", cfg.Database.Driver).Msg("API listening")
		errs <- server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func openBackend(ctx context.Context, cfg config.Config) (backend, func(), error) {
	if cfg.Database.Driver == config.DriverMemory {
		log.Warn().Msg("using in-memory store; data is lost on restart")
		return memory.New(), func() {}, nil
	}

	db, err := connectPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := store.Migrate(db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		log.Info().Msg("database migrations applied")
	}
	return store.New(db), func() { _ = db.Close() }, nil
}

// newPublisher fans events out through Redis when configured so every
// instance's hub sees them, and straight into the local hub otherwise.
func newPublisher(ctx context.Context, cfg config.Config, hub *realtime.Hub, logger zerolog.Logger) (realtime.Publisher, func(), error) {
	if cfg.Notify.RedisURL == "" {
		return realtime.NewHubNotifier(hub), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.Notify.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}

	notifier := realtime.NewRedisNotifier(rdb, logger)
	go func() {
		if err := notifier.Subscribe(ctx, hub); err != nil {
			log.Error().Err(err).Msg("redis relay stopped")
		}
	}()
	return notifier, func() { _ = rdb.Close() }, nil
}
