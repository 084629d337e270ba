package ics

import (
	"context"
	"fmt"
	"time"

	"staysync/core/reconcile"
)

// Source downloads and parses feeds for the reconciliation engine.
type Source struct {
	fetcher *Fetcher
	cfg     Config
	now     func() time.Time
}

var _ reconcile.EventSource = (*Source)(nil)

// NewSource creates a Source backed by fetcher.
func NewSource(fetcher *Fetcher, cfg Config) *Source {
	return &Source{fetcher: fetcher, cfg: cfg, now: time.Now}
}

// Events fetches the feed URL and parses its events.
func (s *Source) Events(ctx context.Context, feed reconcile.Feed) ([]reconcile.CalendarEvent, error) {
	body, err := s.fetcher.Fetch(ctx, feed.URL)
	if err != nil {
		return nil, err
	}

	events, err := Parse(body, ParseOptions{
		Now:            s.now(),
		Horizon:        s.cfg.horizon(),
		MaxOccurrences: s.cfg.maxOccurrences(),
	})
	if err != nil {
		return nil, fmt.Errorf("feed %s: %w", feed.ID, err)
	}
	return events, nil
}
