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

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/SkyMonder/SkyCalling/internal/adapters/auth"
	router "github.com/SkyMonder/SkyCalling/internal/adapters/http"
	"github.com/SkyMonder/SkyCalling/internal/adapters/rtc"
	sig "github.com/SkyMonder/SkyCalling/internal/adapters/signal"
	"github.com/SkyMonder/SkyCalling/internal/adapters/store"
	"github.com/SkyMonder/SkyCalling/internal/app"
	"github.com/SkyMonder/SkyCalling/internal/app/orch"
	"github.com/SkyMonder/SkyCalling/internal/config"
	"github.com/SkyMonder/SkyCalling/internal/core"
	"github.com/SkyMonder/SkyCalling/internal/metrics"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	zerolog.SetGlobalLevel(cfg.Level())
	if cfg.Mode == "release" {
		// JSON lines in production
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	users, err := openUsers(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open user store")
	}
	defer users.Close()

	tokens := auth.NewJWTAuthenticator(cfg.Secret, cfg.TokenTTL, users)
	accounts := &auth.Accounts{Users: users, Tokens: tokens}

	o := &orch.Orchestrator{
		Registry:    app.NewRegistry(),
		Bindings:    app.NewBindingTable(),
		Calls:       app.NewCallRegistry(),
		Auth:        tokens,
		Policy:      app.SimplePolicy{},
		Metrics:     metrics.New(),
		RingTimeout: cfg.RingTimeout,
		ICEServers: rtc.ICEServers(rtc.ICEConfig{
			URLs:       cfg.ICEServers,
			Username:   cfg.ICEUsername,
			Credential: cfg.ICECredential,
		}),
	}
	limiter := sig.NewCallRateLimiter(cfg.CallRate, cfg.CallBurst)

	r := router.SetupRouter(ctx, cfg, o, accounts, limiter)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("SkyCalling server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server error")
		return
	}
	log.Info().Msg("Server exited gracefully")
}

func openUsers(cfg *config.Config) (core.UserStore, error) {
	if cfg.DatabasePath == "" {
		log.Warn().Str("module", "main").Msg("no database_path set, accounts are kept in memory")
		return store.NewMemoryStore(), nil
	}
	return store.OpenSQLite(cfg.DatabasePath)
}
