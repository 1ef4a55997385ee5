package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"lg/energy-balance-api/internal/store"
)

func main() {
	// .env is optional in deployed environments; real env vars win.
	_ = godotenv.Load()

	cfg, err := envConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	setupLogging(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := store.Connect(ctx, cfg.DBURL)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to connect to database")
	}
	defer pool.Close()
	log.Info().Msg("DB pool ready")

	m := newMetrics(prometheus.NewRegistry())
	st := store.New(pool, log.Logger)
	st.OnQuery = m.observeQuery
	h := newHandler(st, cfg, m)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	router.SetTrustedProxies(nil)
	h.registerRoutes(router)

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: router}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("shutdown")
		}
	}()

	log.Info().Str("addr", cfg.ListenAddr).Dur("poll_interval", cfg.PollInterval).Msg("energy balance API listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
