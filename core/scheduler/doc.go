// Package scheduler runs the scheduled feed sweep on a cron spec using
// github.com/robfig/cron/v3. Overlapping sweeps are skipped rather than queued.
package scheduler
