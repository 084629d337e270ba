package calendarsync

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"staysync/core/reconcile"
	"staysync/core/store"

	"go.uber.org/zap"
)

var (
	// ErrInvalidInput is returned for malformed request values.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNothingToAssign is returned when a queue entry has no booking to place.
	ErrNothingToAssign = errors.New("unassigned event has no booking")
	// ErrAlreadyResolved is returned when assigning a closed queue entry.
	ErrAlreadyResolved = errors.New("unassigned event already resolved")
)

// RunRequest overrides the engine defaults for one on-demand run.
type RunRequest struct {
	Mode   string
	DryRun bool
}

// SuppressResult reports what a suppression changed.
type SuppressResult struct {
	PropertyID string `json:"property_id"`
	UID        string `json:"uid"`
	// CancelledBookingID is set when a mapped booking was cancelled.
	CancelledBookingID string `json:"cancelled_booking_id,omitempty"`
}

// Service exposes runs and host actions over the reconciliation engine.
type Service struct {
	engine *reconcile.Engine
	store  *store.GormStore
	logger *zap.Logger
}

// NewService creates a new sync service.
func NewService(engine *reconcile.Engine, st *store.GormStore, logger *zap.Logger) *Service {
	return &Service{engine: engine, store: st, logger: logger}
}

func (s *Service) options(req RunRequest) (reconcile.Options, error) {
	opts := s.engine.Options()
	if req.Mode != "" {
		mode, err := reconcile.ParseMode(req.Mode)
		if err != nil {
			return opts, err
		}
		opts.Mode = mode
	}
	opts.DryRun = opts.DryRun || req.DryRun
	return opts, nil
}

// RunAll runs the scheduled sweep immediately.
func (s *Service) RunAll(ctx context.Context, req RunRequest) (*reconcile.RunSummary, error) {
	opts, err := s.options(req)
	if err != nil {
		return nil, err
	}
	return s.engine.Run(ctx, reconcile.Selection{Trigger: reconcile.TriggerScheduled}, opts)
}

// RunProperty syncs the feeds of one property.
func (s *Service) RunProperty(ctx context.Context, propertyID string, req RunRequest) (*reconcile.RunSummary, error) {
	opts, err := s.options(req)
	if err != nil {
		return nil, err
	}
	return s.engine.Run(ctx, reconcile.Selection{
		Trigger: reconcile.TriggerProperty,
		Filter:  reconcile.FeedFilter{PropertyID: propertyID},
	}, opts)
}

// RunFeed syncs one feed.
func (s *Service) RunFeed(ctx context.Context, feedID string, req RunRequest) (*reconcile.RunSummary, error) {
	opts, err := s.options(req)
	if err != nil {
		return nil, err
	}
	return s.engine.Run(ctx, reconcile.Selection{
		Trigger: reconcile.TriggerFeed,
		Filter:  reconcile.FeedFilter{FeedID: feedID},
	}, opts)
}

// ListRuns returns recent runs, newest first.
func (s *Service) ListRuns(ctx context.Context, limit int) ([]store.SyncRun, error) {
	return s.store.ListRuns(ctx, limit)
}

// GetRun returns the full summary of a run.
func (s *Service) GetRun(ctx context.Context, id string) (*reconcile.RunSummary, error) {
	return s.store.GetRun(ctx, id)
}

// FeedLogs returns the audit rows of a feed.
func (s *Service) FeedLogs(ctx context.Context, feedID string, limit int) ([]store.FeedSyncLog, error) {
	return s.store.ListFeedLogs(ctx, feedID, limit)
}

// Suppress stops uid from being imported again for the property and
// cancels the booking it currently maps to.
func (s *Service) Suppress(ctx context.Context, propertyID, uid string) (*SuppressResult, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil, fmt.Errorf("%w: uid is required", ErrInvalidInput)
	}
	if err := s.store.Suppress(ctx, propertyID, uid); err != nil {
		return nil, fmt.Errorf("suppress: %w", err)
	}

	result := &SuppressResult{PropertyID: propertyID, UID: uid}

	var b *reconcile.Booking
	m, err := s.store.GetMapping(ctx, propertyID, uid)
	switch {
	case err == nil:
		b, err = s.store.GetBooking(ctx, m.BookingID)
	case errors.Is(err, reconcile.ErrNotFound):
		b, err = s.store.FindBookingByExternalUID(ctx, propertyID, uid)
	}
	if errors.Is(err, reconcile.ErrNotFound) {
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	if b.Status == reconcile.StatusCancelled {
		return result, nil
	}

	b.Status = reconcile.StatusCancelled
	if err := s.store.UpdateBooking(ctx, b); err != nil {
		return nil, fmt.Errorf("cancel booking %s: %w", b.ID, err)
	}
	result.CancelledBookingID = b.ID
	if _, err := s.store.ResolveUnassigned(ctx, propertyID, uid, b.ID); err != nil {
		return nil, fmt.Errorf("resolve unassigned: %w", err)
	}

	s.logger.Info("UID suppressed",
		zap.String("property_id", propertyID),
		zap.String("uid", uid),
		zap.String("booking_id", b.ID))
	return result, nil
}

// Unsuppress allows uid to be imported again. It reports whether a suppression existed.
func (s *Service) Unsuppress(ctx context.Context, propertyID, uid string) (bool, error) {
	return s.store.Unsuppress(ctx, propertyID, uid)
}

// ListUnassigned returns the queue of a property.
func (s *Service) ListUnassigned(ctx context.Context, propertyID string, all bool) ([]reconcile.UnassignedEvent, error) {
	return s.store.ListUnassigned(ctx, propertyID, all)
}

// Assign places the booking of a queue entry in roomID and closes the entry.
func (s *Service) Assign(ctx context.Context, unassignedID, roomID string) (*reconcile.Booking, error) {
	if roomID == "" {
		return nil, fmt.Errorf("%w: room_id is required", ErrInvalidInput)
	}

	ev, err := s.store.GetUnassigned(ctx, unassignedID)
	if err != nil {
		return nil, err
	}
	if ev.Resolved {
		return nil, ErrAlreadyResolved
	}
	if ev.BookingID == nil {
		return nil, ErrNothingToAssign
	}

	if err := s.store.ClaimRoom(ctx, *ev.BookingID, roomID); err != nil {
		return nil, err
	}
	if _, err := s.store.ResolveUnassigned(ctx, ev.PropertyID, ev.Key, *ev.BookingID); err != nil {
		return nil, fmt.Errorf("resolve unassigned: %w", err)
	}

	s.logger.Info("Unassigned event placed",
		zap.String("unassigned_id", unassignedID),
		zap.String("booking_id", *ev.BookingID),
		zap.String("room_id", roomID))
	return s.store.GetBooking(ctx, *ev.BookingID)
}
