package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"server/internal/adminsession"
	"server/internal/analytics"
	"server/internal/chatrelay"
	"server/internal/history"
	"server/internal/http/handlers"
	httpapi "server/internal/http/httpapi"
	"server/internal/infra"
	"server/internal/infra/geoip"
	"server/internal/membership"
	appmw "server/internal/middleware"
	"server/internal/quota"
)

func main() {
	// Load .env (optional)
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer pool.Close()

	if err := infra.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("failed to ensure schema")
	}

	runner := infra.NewSQLRunner(pool, logger)
	emitter := analytics.New(cfg.PostHogAPIKey, cfg.PostHogHost, logger)

	relay, err := chatrelay.NewClient(chatrelay.Options{
		APIKey:  cfg.DeepSeekAPIKey,
		BaseURL: cfg.DeepSeekBaseURL,
		Model:   cfg.DeepSeekModel,
		Logger:  logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure chat client")
	}

	ledger := quota.NewLedger(runner, emitter, logger)
	members := membership.NewResolver(cfg.MembershipAPIURL, emitter, logger)
	store := history.NewStore(runner, emitter, logger)

	sessions := adminsession.NewStore(cfg.AdminSessionTTL)
	sessions.StartSweeper(ctx, time.Minute)

	var countryLookup appmw.CountryLookup
	geoResolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip database unavailable, country enrichment disabled")
	} else if geoResolver != nil {
		countryLookup = geoResolver.CountryCode
		if closer, ok := geoResolver.(*geoip.Resolver); ok {
			defer func() {
				_ = closer.Close()
			}()
		}
	}

	app, err := handlers.NewApp(cfg, runner, logger, ledger, members, relay, store, sessions, emitter)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build app")
	}

	router := httpapi.NewRouter(app, countryLookup)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
