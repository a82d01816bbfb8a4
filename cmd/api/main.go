// Package main provides the entry point for the Chronus API server.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/chronus-app/chronus/internal/api"
	"github.com/chronus-app/chronus/internal/auth"
	"github.com/chronus-app/chronus/internal/chat"
	"github.com/chronus-app/chronus/internal/collab"
	"github.com/chronus-app/chronus/internal/ledger"
	"github.com/chronus-app/chronus/internal/notify"
	"github.com/chronus-app/chronus/internal/shutdown"
	pgstore "github.com/chronus-app/chronus/internal/store/postgres"
	"github.com/chronus-app/chronus/internal/sweeper"
	"github.com/chronus-app/chronus/pkg/config"
	"github.com/chronus-app/chronus/pkg/logger"
)

func main() {
	log := logger.New(slog.LevelInfo, true)

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	st, err := pgstore.NewPostgresStore(pgstore.DefaultConfig(cfg.DatabaseDSN), log.Logger)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := pgstore.Migrate(context.Background(), st.DB()); err != nil {
		log.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	authService := auth.NewService(&auth.Config{
		JWTSecret:   []byte(cfg.JWTSecret),
		TokenExpiry: cfg.JWTExpiry,
	}, log.Logger)

	var notifier notify.Notifier = notify.NopNotifier{}
	if cfg.SMTP.Host != "" {
		notifier = notify.NewSMTPNotifier(notify.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}, log.Logger)
	}

	service := collab.NewService(st, ledger.New(log.Logger), notifier, log.Logger)

	hub := chat.NewHub(log.Logger)
	chatHandler := chat.NewHandler(st, authService, hub, log.Logger)

	server := api.NewServer(cfg, st, service, authService, chatHandler, log.Logger)
	sweep := sweeper.New(service, cfg.Sweeper.Interval, log.Logger)

	coordinator := shutdown.NewCoordinator(
		shutdown.WithTimeout(cfg.ShutdownTimeout),
		shutdown.WithLogger(log.Logger),
	)
	coordinator.Register(server)
	coordinator.Register(sweep)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := sweep.Start(ctx); err != nil {
			log.Error("sweeper error", "error", err)
		}
	}()

	go func() {
		if err := server.Start(ctx); err != nil {
			log.Error("server error", "error", err)
			coordinator.Shutdown()
		}
	}()

	go coordinator.WaitForSignal()

	coordinator.Wait()
	log.Info("server stopped")
	os.Exit(coordinator.ExitCode())
}
