package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"chatrelay/internal/config"
	"chatrelay/internal/conversation"
	"chatrelay/internal/group"
	"chatrelay/internal/httpserver"
	"chatrelay/internal/logging"
	"chatrelay/internal/presence"
	"chatrelay/internal/router"
	"chatrelay/internal/security"
	"chatrelay/internal/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logging.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	logging.Init(cfg.Log)
	log := logging.L()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	if err := sqlite.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	var encryptor *security.Encryptor
	if cfg.Database.EncryptKey != "" {
		encryptor, err = security.NewEncryptor([]byte(cfg.Database.EncryptKey))
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize encryptor")
		}
	}

	var tokens *security.TokenService
	if cfg.Auth.JWTSecret != "" {
		tokens = security.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	}

	registry := presence.NewRegistry()
	store := conversation.NewStore()
	groups := group.NewDirectory()
	gateway := sqlite.NewGateway(db, encryptor)

	rt := router.New(registry, store, groups, gateway, log)

	// Durable state loads fully before any inbound event is accepted.
	if err := rt.Restore(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("failed to restore durable state")
	}

	handler := httpserver.NewRouter(cfg, rt, registry, groups, tokens, log)
	srv := httpserver.NewServer(cfg, handler)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr()).Msg("starting chatrelay server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Persistence flusher; drains pending writes on shutdown.
	g.Go(func() error {
		return rt.Run(ctx)
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server exited with error")
	}
}
