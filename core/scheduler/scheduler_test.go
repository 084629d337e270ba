package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"staysync/core/reconcile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
	block chan struct{}
}

func (c *countingSweeper) RunScheduledSweep(ctx context.Context) (*reconcile.RunSummary, error) {
	c.calls.Add(1)
	if c.block != nil {
		<-c.block
	}
	if c.err != nil {
		return nil, c.err
	}
	return &reconcile.RunSummary{RunID: "r1", OK: true, TotalImported: 2}, nil
}

func TestNew_InvalidSpec(t *testing.T) {
	_, err := New(Config{Spec: "every now and then"}, &countingSweeper{}, zap.NewNop())
	assert.ErrorContains(t, err, "invalid schedule")
}

func TestScheduler_Sweep(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sw := &countingSweeper{}
	s, err := New(Config{Spec: "@every 1h"}, sw, zap.New(core))
	require.NoError(t, err)

	s.sweep()

	assert.Equal(t, int32(1), sw.calls.Load())
	entries := logs.FilterMessage("Scheduled sweep done").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "r1", entries[0].ContextMap()["run_id"])
}

func TestScheduler_SweepError(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s, err := New(Config{Spec: "@every 1h"}, &countingSweeper{err: errors.New("db down")}, zap.New(core))
	require.NoError(t, err)

	s.sweep()

	assert.Equal(t, 1, logs.FilterMessage("Scheduled sweep failed").Len())
}

func TestScheduler_StartStop(t *testing.T) {
	sw := &countingSweeper{}
	s, err := New(Config{Spec: "@every 1s"}, sw, zap.NewNop())
	require.NoError(t, err)

	assert.True(t, s.NextRun().IsZero())
	s.Start()
	assert.False(t, s.NextRun().IsZero())

	assert.Eventually(t, func() bool { return sw.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}

func TestScheduler_SkipsOverlappingSweeps(t *testing.T) {
	sw := &countingSweeper{block: make(chan struct{})}
	s, err := New(Config{Spec: "@every 1s"}, sw, zap.NewNop())
	require.NoError(t, err)

	s.Start()
	assert.Eventually(t, func() bool { return sw.calls.Load() == 1 }, 3*time.Second, 50*time.Millisecond)

	// Two more ticks pass while the first sweep is blocked.
	time.Sleep(2200 * time.Millisecond)
	assert.Equal(t, int32(1), sw.calls.Load())

	close(sw.block)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}

func TestConfig_RunTimeout(t *testing.T) {
	assert.Equal(t, 10*time.Minute, Config{}.RunTimeout())
	assert.Equal(t, 30*time.Second, Config{RunTimeoutSeconds: 30}.RunTimeout())
}
