package fx

import (
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"arena-backend/internal/bus"
	"arena-backend/internal/compute"
	"arena-backend/internal/config"
	"arena-backend/internal/database"
	"arena-backend/internal/logger"
	"arena-backend/internal/pool"
	"arena-backend/internal/repository"
	"arena-backend/internal/server"
	"arena-backend/internal/service"
)

// ProvideRedis is nil when no REDIS_ADDR is configured; the in-process pool
// and bus variants are used instead.
func ProvideRedis(cfg *config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
}

func ProvideBus(cfg *config.Config, rdb *redis.Client, log zerolog.Logger) bus.Bus {
	if rdb != nil {
		log.Info().Str("addr", cfg.RedisAddr).Msg("using redis event bus")
		return bus.NewRedis(rdb, log)
	}
	return bus.NewMemory(log)
}

func ProvidePool(cfg *config.Config, rdb *redis.Client, log zerolog.Logger) pool.TicketPool {
	if rdb != nil {
		log.Info().Str("addr", cfg.RedisAddr).Msg("using redis ticket pool")
		return pool.NewSortedSet(rdb, log)
	}
	return pool.NewMemory()
}

func ProvideCompute(cfg *config.Config) compute.Client {
	return compute.NewRESTClient(cfg)
}

var Module = fx.Options(
	logger.Module,
	config.Module,
	fx.Provide(database.New),
	fx.Provide(ProvideRedis),
	fx.Provide(ProvideBus),
	fx.Provide(ProvidePool),
	fx.Provide(ProvideCompute),
	// repos
	fx.Provide(repository.NewUserRepository),
	fx.Provide(repository.NewMatchRepository),
	fx.Provide(repository.NewServerInstanceRepository),
	fx.Provide(repository.NewWalletRepository),
	// svc
	fx.Provide(service.NewQueueCoordinator),
	fx.Provide(service.NewServerProvisioner),
	fx.Provide(service.NewMatchEventProcessor),
	fx.Provide(service.NewRewardSettlement),
	// server
	fx.Provide(server.NewArenaServer),
)
