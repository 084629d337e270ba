package policy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"staysync/core/reconcile"

	"github.com/redis/go-redis/v9"
)

const (
	ReasonCooldown = "cooldown"
	ReasonQuota    = "daily_quota_exceeded"
)

// NewRedisClient connects to Redis and verifies the connection with a ping.
func NewRedisClient(cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// RedisPolicy throttles syncs per account with a cooldown key and a daily counter.
type RedisPolicy struct {
	rdb *redis.Client
	cfg Config
	now func() time.Time
}

var _ reconcile.SyncPolicy = (*RedisPolicy)(nil)

// NewRedisPolicy creates a policy backed by rdb.
func NewRedisPolicy(rdb *redis.Client, cfg Config) *RedisPolicy {
	if cfg.Prefix == "" {
		cfg.Prefix = "staysync"
	}
	return &RedisPolicy{rdb: rdb, cfg: cfg, now: time.Now}
}

func (p *RedisPolicy) cooldownKey(accountID, eventType string) string {
	return fmt.Sprintf("%s:sync:cooldown:%s:%s", p.cfg.Prefix, accountID, eventType)
}

func (p *RedisPolicy) quotaKey(accountID, eventType string, day time.Time) string {
	return fmt.Sprintf("%s:sync:quota:%s:%s:%s", p.cfg.Prefix, accountID, eventType, day.Format("20060102"))
}

// CanSyncNow denies while the account's cooldown key lives or its daily counter is exhausted.
func (p *RedisPolicy) CanSyncNow(ctx context.Context, accountID, eventType string) (reconcile.PolicyDecision, error) {
	ttl, err := p.rdb.PTTL(ctx, p.cooldownKey(accountID, eventType)).Result()
	if err != nil {
		return reconcile.PolicyDecision{}, err
	}
	if ttl > 0 {
		return reconcile.PolicyDecision{Allowed: false, Reason: ReasonCooldown, CooldownRemaining: ttl}, nil
	}

	if p.cfg.DailyQuota > 0 {
		now := p.now().UTC()
		used, err := p.rdb.Get(ctx, p.quotaKey(accountID, eventType, now)).Int()
		if err != nil && !errors.Is(err, redis.Nil) {
			return reconcile.PolicyDecision{}, err
		}
		if used >= p.cfg.DailyQuota {
			midnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
			return reconcile.PolicyDecision{Allowed: false, Reason: ReasonQuota, CooldownRemaining: midnight.Sub(now)}, nil
		}
	}

	return reconcile.PolicyDecision{Allowed: true}, nil
}

// RegisterSyncUsage starts the cooldown and counts the sync against today's quota.
func (p *RedisPolicy) RegisterSyncUsage(ctx context.Context, accountID, eventType string) error {
	now := p.now().UTC()
	quotaKey := p.quotaKey(accountID, eventType, now)

	_, err := p.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if cd := p.cfg.cooldown(eventType); cd > 0 {
			pipe.Set(ctx, p.cooldownKey(accountID, eventType), now.Unix(), cd)
		}
		pipe.Incr(ctx, quotaKey)
		pipe.Expire(ctx, quotaKey, 48*time.Hour)
		return nil
	})
	return err
}
