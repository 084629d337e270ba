package scheduler

import (
	"context"
	"fmt"
	"time"

	"staysync/core/reconcile"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper runs one scheduled sweep over every active feed.
type Sweeper interface {
	RunScheduledSweep(ctx context.Context) (*reconcile.RunSummary, error)
}

// Scheduler triggers scheduled sweeps on a cron spec. A sweep that is still
// running when the next tick fires causes that tick to be skipped.
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	cfg     Config
	logger  *zap.Logger
	entry   cron.EntryID
}

// New parses the cron expression and registers the sweep job.
func New(cfg Config, sweeper Sweeper, logger *zap.Logger) (*Scheduler, error) {
	cl := cronLogger{s: logger.Sugar()}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		sweeper: sweeper,
		cfg:     cfg,
		logger:  logger,
	}

	id, err := s.cron.AddFunc(cfg.Spec, s.sweep)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", cfg.Spec, err)
	}
	s.entry = id
	return s, nil
}

// Start runs the cron loop in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started", zap.String("spec", s.cfg.Spec), zap.Time("next_run", s.NextRun()))
}

// Stop prevents new sweeps and waits for a running one to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NextRun reports when the next sweep is due. It is zero before Start.
func (s *Scheduler) NextRun() time.Time {
	return s.cron.Entry(s.entry).Next
}

func (s *Scheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RunTimeout())
	defer cancel()

	started := time.Now()
	summary, err := s.sweeper.RunScheduledSweep(ctx)
	if err != nil {
		s.logger.Error("Scheduled sweep failed", zap.Error(err))
		return
	}
	s.logger.Info("Scheduled sweep done",
		zap.String("run_id", summary.RunID),
		zap.Bool("ok", summary.OK),
		zap.Int("imported", summary.TotalImported),
		zap.Duration("took", time.Since(started)),
	)
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
