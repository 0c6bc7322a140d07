package cmd

import (
	"context"
	"fmt"

	"github.com/agenthost/agenthost-mini/internal/config"
	"github.com/agenthost/agenthost-mini/internal/db"
	"github.com/agenthost/agenthost-mini/internal/logger"
	"github.com/agenthost/agenthost-mini/internal/model"
	"github.com/agenthost/agenthost-mini/internal/quota"
	"github.com/agenthost/agenthost-mini/internal/repository"
	"go.uber.org/zap"
)

// loadConfig reads config and brings up the process logger.
func loadConfig() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.Init(logger.Options{
		Level:      cfg.Log.Level,
		Encoding:   cfg.Log.Encoding,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	return cfg, log, nil
}

// openGate builds the quota gate on the configured backend. The returned
// closer releases the backend connection.
func openGate(cfg config.Config, log *zap.Logger) (*quota.Gate, func(), error) {
	var (
		repo   repository.QuotaRepository
		closer = func() {}
	)
	switch cfg.Quota.Backend {
	case config.BackendRedis:
		rdb, err := db.NewRedisClient(db.RedisOpts{
			Addr:        cfg.Redis.Addr,
			Username:    cfg.Redis.Username,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("redis connect: %w", err)
		}
		repo = repository.NewRedisQuotaRepository(rdb, cfg.Quota.RedisPrefix)
		closer = func() { _ = rdb.Close() }
	default:
		repo = repository.NewMemoryQuotaRepository()
	}
	log.Info("quota backend ready", zap.String("backend", cfg.Quota.Backend))

	return quota.NewGate(repo, quota.WithUpgradeURL(cfg.Quota.UpgradeURL)), closer, nil
}

// seedKeys registers the configured fixed keys, leaving existing ones as they are.
func seedKeys(ctx context.Context, gate *quota.Gate, keys []config.SeedKey, log *zap.Logger) error {
	for _, k := range keys {
		tier, ok := model.ParseTier(k.Tier)
		if !ok {
			return fmt.Errorf("seed key %q: unknown tier %q", k.Key, k.Tier)
		}
		if err := gate.Seed(ctx, k.Key, tier); err != nil {
			return err
		}
		log.Debug("seed key ready", zap.String("key", k.Key), zap.String("tier", tier.String()))
	}
	return nil
}
