// Command server runs the chat relay: the HTTP API the embedded widget posts
// to, backed by business rules, an optional Redis reply cache and an upstream
// language model.
//
// @title       Chat Relay API
// @version     1.0
// @description Widget backend: business-rule answers with a language-model fallback, persisted per user.
// @BasePath    /api/v1
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	_ "github.com/tbourn/go-chat-relay/docs"
	"github.com/tbourn/go-chat-relay/internal/cache"
	"github.com/tbourn/go-chat-relay/internal/config"
	httpapi "github.com/tbourn/go-chat-relay/internal/http"
	"github.com/tbourn/go-chat-relay/internal/llm"
	"github.com/tbourn/go-chat-relay/internal/observability"
	"github.com/tbourn/go-chat-relay/internal/repo"
	"github.com/tbourn/go-chat-relay/internal/rules"
	"github.com/tbourn/go-chat-relay/internal/services"
	"github.com/tbourn/go-chat-relay/internal/sysutil"
)

var version = "dev"

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	logger := sysutil.SetupLogger(cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName, version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version, observability.ResourceAttributes(cfg)...)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	db, err := repo.Open(cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DB.Driver).Msg("database open failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}

	src, err := rules.NewSource(cfg.Rules, db)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid rule source")
	}
	matcher := rules.LoadMatcher(ctx, src, logger,
		rules.WithThreshold(cfg.Rules.Threshold),
		rules.WithMaxDistance(cfg.Rules.MaxDistance),
	)

	model, err := llm.New(cfg.LLM)
	if err != nil {
		log.Fatal().Err(err).Str("provider", cfg.LLM.Provider).Msg("llm client setup failed")
	}

	deps := httpapi.Deps{DB: db, Matcher: matcher, LLM: model}
	if cfg.Cache.Addr != "" {
		rc, err := cache.NewRedisReplyCache(cfg.Cache)
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.Cache.Addr).Msg("reply cache disabled")
		} else {
			defer rc.Close()
			deps.Cache = rc
		}
	}

	if cfg.PendingSweepSchedule != "" {
		sweeper := &services.PendingSweeper{
			DB:              db,
			MaxAge:          cfg.PendingMaxAge,
			FallbackMessage: cfg.FallbackMessage,
			Log:             logger.With().Str("component", "sweeper").Logger(),
		}
		c, err := sweeper.Start(cfg.PendingSweepSchedule)
		if err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.PendingSweepSchedule).Msg("invalid sweep schedule")
		}
		defer c.Stop()
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	httpapi.RegisterRoutes(r, deps, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("provider", model.Provider()).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := shutdownOTel(sctx); err != nil {
		log.Error().Err(err).Msg("otel shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
