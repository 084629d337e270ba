package policy

import (
	"context"
	"testing"
	"time"

	"staysync/core/reconcile"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPolicy(t *testing.T, cfg Config) (*RedisPolicy, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	p := NewRedisPolicy(rdb, cfg)
	p.now = func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) }
	return p, mr
}

func TestRedisPolicy_Cooldown(t *testing.T) {
	p, mr := newTestPolicy(t, Config{ScheduledCooldownSeconds: 300, ManualCooldownSeconds: 60})
	ctx := context.Background()

	d, err := p.CanSyncNow(ctx, "acc1", reconcile.EventScheduledSync)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	require.NoError(t, p.RegisterSyncUsage(ctx, "acc1", reconcile.EventScheduledSync))

	d, err = p.CanSyncNow(ctx, "acc1", reconcile.EventScheduledSync)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonCooldown, d.Reason)
	assert.InDelta(t, (300 * time.Second).Seconds(), d.CooldownRemaining.Seconds(), 1)

	// Manual syncs track their own cooldown.
	d, err = p.CanSyncNow(ctx, "acc1", reconcile.EventManualSync)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	// Other accounts are unaffected.
	d, err = p.CanSyncNow(ctx, "acc2", reconcile.EventScheduledSync)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	mr.FastForward(301 * time.Second)

	d, err = p.CanSyncNow(ctx, "acc1", reconcile.EventScheduledSync)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRedisPolicy_DailyQuota(t *testing.T) {
	p, _ := newTestPolicy(t, Config{DailyQuota: 2})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, err := p.CanSyncNow(ctx, "acc1", reconcile.EventManualSync)
		require.NoError(t, err)
		require.True(t, d.Allowed)
		require.NoError(t, p.RegisterSyncUsage(ctx, "acc1", reconcile.EventManualSync))
	}

	d, err := p.CanSyncNow(ctx, "acc1", reconcile.EventManualSync)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonQuota, d.Reason)
	assert.Equal(t, 12*time.Hour, d.CooldownRemaining)

	// The counter is per UTC day.
	p.now = func() time.Time { return time.Date(2025, 3, 11, 0, 5, 0, 0, time.UTC) }
	d, err = p.CanSyncNow(ctx, "acc1", reconcile.EventManualSync)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRedisPolicy_BackendDown(t *testing.T) {
	p, mr := newTestPolicy(t, Config{})
	mr.Close()

	_, err := p.CanSyncNow(context.Background(), "acc1", reconcile.EventScheduledSync)
	assert.Error(t, err)
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(Config{Addr: mr.Addr()})
	require.NoError(t, err)
	client.Close()

	_, err = NewRedisClient(Config{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}
