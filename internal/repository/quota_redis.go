package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/agenthost/agenthost-mini/internal/model"
	"github.com/redis/go-redis/v9"
)

const (
	fieldTier      = "tier"
	fieldLimit     = "daily_limit"
	fieldCreatedAt = "created_at"
)

// RedisQuotaRepository shares quota counters between relay replicas.
// Each key owns two hashes:
//
//	{prefix}quota:{key}  tier, daily_limit, created_at
//	{prefix}usage:{key}  date -> count
//
// The usage hash expires a day after the retention window so abandoned keys
// do not accumulate counters.
type RedisQuotaRepository struct {
	rdb      *redis.Client
	prefix   string
	usageTTL time.Duration
}

func NewRedisQuotaRepository(rdb *redis.Client, prefix string) *RedisQuotaRepository {
	if prefix == "" {
		prefix = "agenthost:"
	}
	return &RedisQuotaRepository{
		rdb:      rdb,
		prefix:   prefix,
		usageTTL: time.Duration(model.UsageRetentionDays+1) * 24 * time.Hour,
	}
}

var _ QuotaRepository = (*RedisQuotaRepository)(nil)

func (r *RedisQuotaRepository) recordKey(key string) string { return r.prefix + "quota:" + key }
func (r *RedisQuotaRepository) usageKey(key string) string  { return r.prefix + "usage:" + key }

func (r *RedisQuotaRepository) Get(ctx context.Context, key string) (*model.QuotaRecord, error) {
	pipe := r.rdb.Pipeline()
	recCmd := pipe.HGetAll(ctx, r.recordKey(key))
	usageCmd := pipe.HGetAll(ctx, r.usageKey(key))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis get quota: %w", err)
	}

	fields := recCmd.Val()
	if len(fields) == 0 {
		return nil, nil
	}

	tier, _ := model.ParseTier(fields[fieldTier])
	limit, err := model.ParseLimit(fields[fieldLimit])
	if err != nil {
		limit = tier.DailyLimit()
	}
	rec := &model.QuotaRecord{
		Key:        key,
		Tier:       tier,
		DailyLimit: limit,
		Usage:      make(map[string]int, len(usageCmd.Val())),
	}
	if ts, err := time.Parse(time.RFC3339Nano, fields[fieldCreatedAt]); err == nil {
		rec.CreatedAt = ts
	}
	for d, v := range usageCmd.Val() {
		n, err := strconv.Atoi(v)
		if err != nil {
			continue
		}
		rec.Usage[d] = n
	}
	return rec, nil
}

func (r *RedisQuotaRepository) Create(ctx context.Context, rec model.QuotaRecord) error {
	rk := r.recordKey(rec.Key)

	// tier doubles as the insert-if-absent sentinel
	ok, err := r.rdb.HSetNX(ctx, rk, fieldTier, rec.Tier.String()).Result()
	if err != nil {
		return fmt.Errorf("redis create quota: %w", err)
	}
	if !ok {
		return ErrKeyExists
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	if err := r.rdb.HSet(ctx, rk,
		fieldLimit, rec.DailyLimit.String(),
		fieldCreatedAt, createdAt.UTC().Format(time.RFC3339Nano),
	).Err(); err != nil {
		return fmt.Errorf("redis create quota: %w", err)
	}
	return nil
}

func (r *RedisQuotaRepository) Increment(ctx context.Context, key, date string, keep int) (int, error) {
	exists, err := r.rdb.Exists(ctx, r.recordKey(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis increment quota: %w", err)
	}
	if exists == 0 {
		return 0, ErrKeyNotFound
	}

	uk := r.usageKey(key)
	pipe := r.rdb.TxPipeline()
	cnt := pipe.HIncrBy(ctx, uk, date, 1)
	pipe.Expire(ctx, uk, r.usageTTL)
	dates := pipe.HKeys(ctx, uk)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis increment quota: %w", err)
	}

	if stale := staleDates(dates.Val(), keep); len(stale) > 0 {
		if err := r.rdb.HDel(ctx, uk, stale...).Err(); err != nil {
			return 0, fmt.Errorf("redis purge usage: %w", err)
		}
	}
	return int(cnt.Val()), nil
}
