package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"arena-backend/internal/bus"
	"arena-backend/internal/config"
	"arena-backend/internal/constants"
	"arena-backend/internal/events"
	fxmodules "arena-backend/internal/fx"
	"arena-backend/internal/middleware"
	"arena-backend/internal/server"
	"arena-backend/internal/service"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(runServer),
	).Run()
}

func runServer(
	lc fx.Lifecycle,
	arenaServer *server.ArenaServer,
	queue *service.QueueCoordinator,
	processor *service.MatchEventProcessor,
	settlement *service.RewardSettlement,
	eventBus bus.Bus,
	cfg *config.Config,
	db *sql.DB,
	logger zerolog.Logger,
) {
	processor.Register()
	settlement.Register()
	subscribeObservers(eventBus, logger)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	handler := middleware.RequestID(logger)(c.Handler(arenaServer.Routes()))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: handler,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			queue.Start()
			go func() {
				logger.Info().Str("addr", srv.Addr).Msg("server starting")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Fatal().Err(err).Msg("server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.AppShutdownTimeout)
			defer cancel()

			queue.Stop()

			if closer, ok := eventBus.(*bus.Redis); ok {
				if err := closer.Close(); err != nil {
					logger.Warn().Err(err).Msg("error closing event bus")
				}
			}
			if err := db.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing database connection")
			}

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("server shutdown failed")
				return err
			}
			logger.Info().Msg("server stopped gracefully")
			return nil
		},
	})
}

// subscribeObservers logs telemetry-only channels, including anti-cheat
// flags produced outside this core.
func subscribeObservers(eventBus bus.Bus, logger zerolog.Logger) {
	eventBus.Subscribe(events.ChannelWalletReward, func(_ context.Context, evt events.BusEvent) error {
		var payload events.WalletReward
		if err := json.Unmarshal(evt.Payload, &payload); err != nil {
			return err
		}
		logger.Info().Str("match_id", payload.MatchID).Msg("rewards paid out")
		return nil
	})

	eventBus.Subscribe(events.ChannelACFlagged, func(_ context.Context, evt events.BusEvent) error {
		var payload events.ACFlagged
		if err := json.Unmarshal(evt.Payload, &payload); err != nil {
			return err
		}
		logger.Warn().
			Str("steam_id", payload.SteamID).
			Int("severity", payload.Severity).
			Str("type", payload.Type).
			Msg("anti-cheat flag received")
		return nil
	})
}
