package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Girls-Girls-Inc/wits-quest-sub001/config"
	"github.com/Girls-Girls-Inc/wits-quest-sub001/metrics"
	"github.com/Girls-Girls-Inc/wits-quest-sub001/services"
	"github.com/Girls-Girls-Inc/wits-quest-sub001/storage"
)

const (
	syncKeyPrefix = "witsquest:thrift_sync"
	syncLeaseTTL  = 2 * time.Minute
)

// gateway is everything the services need from a data store.
type gateway interface {
	services.QuestStore
	services.LedgerStore
	services.LocationStore
	services.MembershipStore
}

// openGateway returns the configured store and a function releasing it.
func openGateway(cfg *config.Config, migrate bool) (gateway, func(), error) {
	if cfg.StoreBackend == config.BackendMemory {
		slog.Warn("[STORE] using in-memory store, data is lost on exit")
		return storage.NewMemoryStore(), func() {}, nil
	}

	db, err := storage.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	closeFn := func() {
		if err := sqlDB.Close(); err != nil {
			slog.Error("[STORE] close failed", "error", err)
		}
	}
	if migrate {
		if err := storage.Migrate(db); err != nil {
			closeFn()
			return nil, nil, err
		}
	}
	return storage.NewGormStore(db), closeFn, nil
}

// newSyncGuard uses a Redis lease when REDIS_URL is set so several replicas
// share one import at a time.
func newSyncGuard(ctx context.Context, cfg *config.Config) (services.SyncGuard, func(), error) {
	if cfg.RedisURL == "" {
		return storage.NewMemorySyncGuard(services.SyncTTL), func() {}, nil
	}
	client, err := storage.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("[SYNC] using redis sync lease", "prefix", syncKeyPrefix)
	guard := storage.NewRedisSyncGuard(client, syncKeyPrefix, services.SyncTTL, syncLeaseTTL)
	return guard, func() { _ = client.Close() }, nil
}

func newImporter(store gateway, guard services.SyncGuard, cfg *config.Config, m *metrics.Metrics) *services.StoreImportService {
	fetcher := services.NewThriftClient(cfg.ThriftAPIBaseURL, cfg.ThriftAPIKey, cfg.ThriftAPITimeout.Std())
	return services.NewStoreImportService(store, fetcher, guard, services.ImportConfig{
		SystemUserID: cfg.SystemUserID,
		QuestPoints:  cfg.ImportQuestPoints,
	}, m)
}
