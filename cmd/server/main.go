package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/starkhackai/voiceroom/internal/adapters/http"
	"github.com/starkhackai/voiceroom/internal/config"
	"github.com/starkhackai/voiceroom/internal/metrics"
	"github.com/starkhackai/voiceroom/internal/moa"
	"github.com/starkhackai/voiceroom/internal/presence"
	wssignal "github.com/starkhackai/voiceroom/internal/signal"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	collector := metrics.NewCollector(prometheus.DefaultRegisterer)
	registry := presence.NewRegistry(collector)
	controller := wssignal.NewController(cfg, registry)

	moaStore := moa.NewStore(ctx, cfg)
	defer func() {
		if err := moaStore.Close(); err != nil {
			log.Error().Err(err).Msg("moa store close")
		}
	}()

	r := router.SetupRouter(ctx, cfg, registry, controller, moaStore)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Voiceroom server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
