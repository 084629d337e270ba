package reconcile_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"staysync/core/database"
	"staysync/core/reconcile"
	"staysync/core/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func ptr(s string) *string { return &s }

type fakeSource struct {
	events map[string][]reconcile.CalendarEvent
	errs   map[string]error
}

func (f *fakeSource) Events(_ context.Context, feed reconcile.Feed) ([]reconcile.CalendarEvent, error) {
	if err := f.errs[feed.ID]; err != nil {
		return nil, err
	}
	return f.events[feed.ID], nil
}

type fakePolicy struct {
	deny       map[string]string
	err        error
	registered []string
}

func (p *fakePolicy) CanSyncNow(_ context.Context, accountID, _ string) (reconcile.PolicyDecision, error) {
	if p.err != nil {
		return reconcile.PolicyDecision{}, p.err
	}
	if reason, ok := p.deny[accountID]; ok {
		return reconcile.PolicyDecision{Reason: reason, CooldownRemaining: time.Minute}, nil
	}
	return reconcile.PolicyDecision{Allowed: true}, nil
}

func (p *fakePolicy) RegisterSyncUsage(_ context.Context, accountID, eventType string) error {
	p.registered = append(p.registered, accountID+":"+eventType)
	return nil
}

type recorder struct {
	mu       sync.Mutex
	topics   []string
	archived []string
}

func (r *recorder) Publish(_ context.Context, topic string, _ any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, topic)
	return nil
}

func (r *recorder) Archive(_ context.Context, runID string, _ time.Time, _ any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.archived = append(r.archived, runID)
	return nil
}

func allDay(uid, start, end string) reconcile.CalendarEvent {
	return reconcile.CalendarEvent{
		UID:   uid,
		Start: reconcile.EventTime{Date: start},
		End:   reconcile.EventTime{Date: end},
	}
}

var testNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type env struct {
	db     *gorm.DB
	store  *store.GormStore
	source *fakeSource
	policy *fakePolicy
	rec    *recorder
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, store.Migrate(db))

	seed := []any{
		&store.Account{ID: "acc1", Name: "Host"},
		&store.Account{ID: "acc2", Name: "Other host"},
		&store.Property{ID: "p1", AccountID: "acc1", Name: "Villa", Timezone: "Europe/Rome", CheckInTime: "15:00", CheckOutTime: "11:00"},
		&store.Property{ID: "p2", AccountID: "acc2", Name: "Flat", Timezone: "UTC", CheckInTime: "14:00", CheckOutTime: "10:00"},
		&store.RoomType{ID: "rt1", PropertyID: "p1", Name: "Double"},
		&store.Room{ID: "r1", PropertyID: "p1", RoomTypeID: ptr("rt1"), Name: "Room 1"},
		&store.Room{ID: "r2", PropertyID: "p1", RoomTypeID: ptr("rt1"), Name: "Room 2"},
		&store.Feed{ID: "f-open", PropertyID: "p1", Provider: "airbnb", URL: "https://example.test/open.ics", Active: true},
		&store.Feed{ID: "f-type", PropertyID: "p1", RoomTypeID: ptr("rt1"), Provider: "booking", URL: "https://example.test/type.ics", Active: true},
		&store.Feed{ID: "f-room", PropertyID: "p1", RoomID: ptr("r1"), Provider: "vrbo", URL: "https://example.test/room.ics", Active: true},
		&store.Feed{ID: "f-other", PropertyID: "p2", Provider: "airbnb", URL: "https://example.test/other.ics", Active: true},
	}
	for _, row := range seed {
		require.NoError(t, db.Create(row).Error)
	}

	return &env{
		db:     db,
		store:  store.New(db),
		source: &fakeSource{events: map[string][]reconcile.CalendarEvent{}, errs: map[string]error{}},
		policy: &fakePolicy{deny: map[string]string{}},
		rec:    &recorder{},
	}
}

func (e *env) engine(mode reconcile.Mode) *reconcile.Engine {
	return e.engineAt(mode, testNow)
}

func (e *env) engineAt(mode reconcile.Mode, now time.Time) *reconcile.Engine {
	return reconcile.NewEngine(e.store, e.source, zap.NewNop(),
		reconcile.Options{Mode: mode, SkipPast: true},
		reconcile.WithPolicy(e.policy),
		reconcile.WithPublisher(e.rec),
		reconcile.WithArchiver(e.rec),
		reconcile.WithClock(func() time.Time { return now }),
	)
}

func (e *env) manual(t *testing.T, roomID, start, end string) {
	t.Helper()
	require.NoError(t, e.store.CreateBooking(context.Background(), &reconcile.Booking{
		PropertyID: "p1",
		RoomID:     ptr(roomID),
		RoomTypeID: ptr("rt1"),
		StartDate:  start,
		EndDate:    end,
		Status:     reconcile.StatusConfirmed,
		Source:     reconcile.SourceManual,
	}))
}

func (e *env) bookings(t *testing.T) []store.Booking {
	t.Helper()
	var rows []store.Booking
	require.NoError(t, e.db.Order("created_at, id").Find(&rows).Error)
	return rows
}

func feedResult(t *testing.T, s *reconcile.RunSummary, feedID string) reconcile.FeedResult {
	t.Helper()
	for _, f := range s.Feeds {
		if f.FeedID == feedID {
			return f
		}
	}
	t.Fatalf("feed %s not in summary", feedID)
	return reconcile.FeedResult{}
}

func TestEngine_ImportIsIdempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.source.events["f-open"] = []reconcile.CalendarEvent{allDay("abc", "2025-03-10", "2025-03-12")}
	eng := e.engine(reconcile.ModeHold)

	first, err := eng.RunSingleFeed(ctx, "f-open")
	require.NoError(t, err)
	assert.Equal(t, 1, feedResult(t, first, "f-open").Created)

	rows := e.bookings(t)
	require.Len(t, rows, 1)
	b := rows[0]
	assert.Equal(t, "2025-03-10", b.StartDate)
	assert.Equal(t, "2025-03-12", b.EndDate)
	assert.Equal(t, "15:00", b.StartTime)
	assert.Equal(t, "11:00", b.EndTime)
	assert.Equal(t, "hold", b.Status)
	assert.Equal(t, "ical", b.Source)
	assert.Equal(t, "abc", *b.ExternalUID)
	assert.Nil(t, b.RoomID)

	second, err := eng.RunSingleFeed(ctx, "f-open")
	require.NoError(t, err)
	res := feedResult(t, second, "f-open")
	assert.Equal(t, 1, res.Unchanged)
	assert.Zero(t, res.ImportedCount)

	rows = e.bookings(t)
	require.Len(t, rows, 1)
	assert.Equal(t, b.ID, rows[0].ID)
	assert.Equal(t, b.Version, rows[0].Version)

	var m store.UIDMapping
	require.NoError(t, e.db.Where("property_id = ? AND external_key = ?", "p1", "abc").Take(&m).Error)
	assert.Equal(t, b.ID, m.BookingID)
}

func TestEngine_CancellationNeverCreates(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	eng := e.engine(reconcile.ModeHold)

	e.source.events["f-open"] = []reconcile.CalendarEvent{allDay("abc", "2025-03-10", "2025-03-12")}
	_, err := eng.RunSingleFeed(ctx, "f-open")
	require.NoError(t, err)

	cancelled := allDay("abc", "2025-03-10", "2025-03-12")
	cancelled.Status = "CANCELLED"
	unknown := allDay("ghost", "2025-04-01", "2025-04-03")
	unknown.Status = "cancelled"
	e.source.events["f-open"] = []reconcile.CalendarEvent{cancelled, unknown}

	summary, err := eng.RunSingleFeed(ctx, "f-open")
	require.NoError(t, err)
	res := feedResult(t, summary, "f-open")
	assert.Equal(t, 1, res.Cancelled)
	assert.Equal(t, 1, res.Skipped)

	rows := e.bookings(t)
	require.Len(t, rows, 1)
	assert.Equal(t, "cancelled", rows[0].Status)

	t.Run("Reappearing UID reopens the booking", func(t *testing.T) {
		e.source.events["f-open"] = []reconcile.CalendarEvent{allDay("abc", "2025-03-10", "2025-03-12")}
		_, err := eng.RunSingleFeed(ctx, "f-open")
		require.NoError(t, err)

		rows := e.bookings(t)
		require.Len(t, rows, 1)
		assert.Equal(t, "hold", rows[0].Status)
	})
}

func TestEngine_TypeFeedWithoutCapacity(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	for _, room := range []string{"r1", "r2"} {
		require.NoError(t, e.store.CreateBooking(ctx, &reconcile.Booking{
			PropertyID: "p1",
			RoomID:     ptr(room),
			RoomTypeID: ptr("rt1"),
			StartDate:  "2025-03-09",
			EndDate:    "2025-03-14",
			Status:     reconcile.StatusConfirmed,
			Source:     reconcile.SourceManual,
		}))
	}
	before := e.bookings(t)

	e.source.events["f-type"] = []reconcile.CalendarEvent{allDay("full", "2025-03-10", "2025-03-12")}
	summary, err := e.engine(reconcile.ModeHold).RunSingleFeed(ctx, "f-type")
	require.NoError(t, err)
	res := feedResult(t, summary, "f-type")
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Unassigned)

	require.Len(t, e.bookings(t), 3)
	for _, old := range before {
		current, err := e.store.GetBooking(ctx, old.ID)
		require.NoError(t, err)
		assert.Equal(t, old.Version, current.Version)
		assert.Equal(t, *old.RoomID, *current.RoomID)
	}

	held, err := e.store.FindBookingByExternalUID(ctx, "p1", "full")
	require.NoError(t, err)
	assert.Nil(t, held.RoomID)
	assert.Equal(t, "rt1", *held.RoomTypeID)

	queue, err := e.store.ListUnassigned(ctx, "p1", false)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, reconcile.ReasonNoCapacity, queue[0].Reason)
	assert.Equal(t, held.ID, *queue[0].BookingID)

	assert.Contains(t, e.rec.topics, reconcile.TopicBookingUnassigned)
	assert.Contains(t, e.rec.topics, reconcile.TopicSyncCompleted)
	assert.Equal(t, []string{summary.RunID}, e.rec.archived)

	t.Run("Next sweep does not announce the same entry again", func(t *testing.T) {
		e.rec.topics = nil
		_, err := e.engine(reconcile.ModeHold).RunSingleFeed(ctx, "f-type")
		require.NoError(t, err)
		assert.Equal(t, []string{reconcile.TopicSyncCompleted}, e.rec.topics)
	})
}

func TestEngine_TypeFeedAllocatesDistinctRooms(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.source.events["f-type"] = []reconcile.CalendarEvent{
		allDay("a", "2025-03-10", "2025-03-12"),
		allDay("b", "2025-03-11", "2025-03-13"),
		allDay("c", "2025-03-12", "2025-03-14"),
	}

	summary, err := e.engine(reconcile.ModeConfirmed).RunSingleFeed(ctx, "f-type")
	require.NoError(t, err)
	res := feedResult(t, summary, "f-type")
	assert.Equal(t, 3, res.Created)
	assert.Zero(t, res.Unassigned)

	rooms := map[string]string{}
	for _, b := range e.bookings(t) {
		require.NotNil(t, b.RoomID)
		rooms[*b.ExternalUID] = *b.RoomID
	}
	assert.Equal(t, "r1", rooms["a"])
	assert.Equal(t, "r2", rooms["b"])
	// a checks out on the 12th, so c fits in r1 again.
	assert.Equal(t, "r1", rooms["c"])
}

func TestEngine_RoomFeedConflictIsHeld(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.store.CreateBooking(ctx, &reconcile.Booking{
		PropertyID: "p1",
		RoomID:     ptr("r1"),
		StartDate:  "2025-03-10",
		EndDate:    "2025-03-12",
		Status:     reconcile.StatusConfirmed,
		Source:     reconcile.SourceManual,
	}))

	e.source.events["f-room"] = []reconcile.CalendarEvent{allDay("clash", "2025-03-11", "2025-03-13")}
	summary, err := e.engine(reconcile.ModeConfirmed).RunSingleFeed(ctx, "f-room")
	require.NoError(t, err)
	assert.Equal(t, 1, feedResult(t, summary, "f-room").Unassigned)

	b, err := e.store.FindBookingByExternalUID(ctx, "p1", "clash")
	require.NoError(t, err)
	assert.Equal(t, reconcile.StatusHold, b.Status)

	queue, err := e.store.ListUnassigned(ctx, "p1", false)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, reconcile.ReasonRoomConflict, queue[0].Reason)
}

func TestEngine_FormMerge(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	submitted := time.Date(2025, 2, 20, 12, 0, 0, 0, time.UTC)
	form := &reconcile.Booking{
		PropertyID:   "p1",
		RoomID:       ptr("r1"),
		StartDate:    "2025-03-10",
		EndDate:      "2025-03-12",
		Status:       reconcile.StatusHold,
		Source:       reconcile.SourceForm,
		GuestName:    "Ada Lovelace",
		GuestEmail:   "ada@example.test",
		GuestPhone:   "+39 000",
		DocumentRefs: []string{"doc-1"},
		SubmittedAt:  &submitted,
	}
	require.NoError(t, e.store.CreateBooking(ctx, form))

	e.source.events["f-room"] = []reconcile.CalendarEvent{allDay("guest", "2025-03-10", "2025-03-12")}
	summary, err := e.engine(reconcile.ModeHold).RunSingleFeed(ctx, "f-room")
	require.NoError(t, err)
	assert.Equal(t, 1, feedResult(t, summary, "f-room").FormsMerged)

	b, err := e.store.FindBookingByExternalUID(ctx, "p1", "guest")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", b.GuestName)
	assert.Equal(t, "ada@example.test", b.GuestEmail)
	assert.Equal(t, "+39 000", b.GuestPhone)
	assert.Equal(t, []string{"doc-1"}, b.DocumentRefs)
	assert.Equal(t, form.ID, *b.FormSubmissionID)
	assert.True(t, b.Locked())

	t.Run("Locked booking keeps its details", func(t *testing.T) {
		later := &reconcile.Booking{
			PropertyID: "p1",
			RoomID:     ptr("r1"),
			StartDate:  "2025-03-10",
			EndDate:    "2025-03-12",
			Status:     reconcile.StatusHold,
			Source:     reconcile.SourceForm,
			GuestName:  "Someone Else",
		}
		require.NoError(t, e.store.CreateBooking(ctx, later))

		_, err := e.engine(reconcile.ModeHold).RunSingleFeed(ctx, "f-room")
		require.NoError(t, err)

		b, err := e.store.FindBookingByExternalUID(ctx, "p1", "guest")
		require.NoError(t, err)
		assert.Equal(t, "Ada Lovelace", b.GuestName)

		stored, err := e.store.GetBooking(ctx, form.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ada Lovelace", stored.GuestName)
		assert.Equal(t, 1, stored.Version)
	})
}

func TestEngine_Suppression(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.store.Suppress(ctx, "p1", "gone"))

	e.source.events["f-open"] = []reconcile.CalendarEvent{allDay("gone", "2025-03-10", "2025-03-12")}
	summary, err := e.engine(reconcile.ModeHold).RunSingleFeed(ctx, "f-open")
	require.NoError(t, err)

	res := feedResult(t, summary, "f-open")
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Events, 1)
	assert.Equal(t, reconcile.ReasonSuppressed, res.Events[0].Reason)
	assert.Empty(t, e.bookings(t))
}

func TestEngine_PastStaysAreSkipped(t *testing.T) {
	e := newEnv(t)
	e.source.events["f-open"] = []reconcile.CalendarEvent{allDay("old", "2025-02-10", "2025-02-12")}

	summary, err := e.engine(reconcile.ModeHold).RunSingleFeed(context.Background(), "f-open")
	require.NoError(t, err)
	res := feedResult(t, summary, "f-open")
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, reconcile.ReasonPastStay, res.Events[0].Reason)
	assert.Empty(t, e.bookings(t))
}

func TestEngine_PolicyGatesAccounts(t *testing.T) {
	e := newEnv(t)
	e.policy.deny["acc1"] = "cooldown"
	e.source.events["f-open"] = []reconcile.CalendarEvent{allDay("abc", "2025-03-10", "2025-03-12")}
	e.source.events["f-other"] = []reconcile.CalendarEvent{allDay("xyz", "2025-03-10", "2025-03-12")}

	summary, err := e.engine(reconcile.ModeHold).RunScheduledSweep(context.Background())
	require.NoError(t, err)

	require.Len(t, summary.Skipped, 1)
	skip := summary.Skipped[0]
	assert.Equal(t, "acc1", skip.AccountID)
	assert.Equal(t, "cooldown", skip.Reason)
	assert.Equal(t, time.Minute, skip.CooldownRemaining)
	assert.ElementsMatch(t, []string{"f-open", "f-type", "f-room"}, skip.FeedIDs)

	require.Len(t, summary.Feeds, 1)
	assert.Equal(t, "f-other", summary.Feeds[0].FeedID)
	assert.Equal(t, []string{"acc2:" + reconcile.EventScheduledSync}, e.policy.registered)

	rows := e.bookings(t)
	require.Len(t, rows, 1)
	assert.Equal(t, "p2", rows[0].PropertyID)
}

func TestEngine_PolicyOutageFailsOpen(t *testing.T) {
	e := newEnv(t)
	e.policy.err = errors.New("redis down")
	e.source.events["f-open"] = []reconcile.CalendarEvent{allDay("abc", "2025-03-10", "2025-03-12")}

	summary, err := e.engine(reconcile.ModeHold).RunPropertySweep(context.Background(), "p1")
	require.NoError(t, err)
	assert.Empty(t, summary.Skipped)
	assert.Equal(t, 1, summary.TotalImported)
	assert.Equal(t, []string{"acc1:" + reconcile.EventManualSync}, e.policy.registered)
}

func TestEngine_FailedFeedDoesNotStopRun(t *testing.T) {
	e := newEnv(t)
	e.source.errs["f-open"] = errors.New("upstream returned 503")
	e.source.events["f-type"] = []reconcile.CalendarEvent{allDay("ok", "2025-03-10", "2025-03-12")}

	summary, err := e.engine(reconcile.ModeHold).RunPropertySweep(context.Background(), "p1")
	require.NoError(t, err)
	assert.False(t, summary.OK)

	failed := feedResult(t, summary, "f-open")
	assert.False(t, failed.OK)
	assert.Contains(t, failed.Error, "503")
	assert.True(t, feedResult(t, summary, "f-type").OK)

	var feed store.Feed
	require.NoError(t, e.db.Where("id = ?", "f-open").Take(&feed).Error)
	assert.Equal(t, "error", feed.LastStatus)
	assert.NotNil(t, feed.LastSyncAt)

	var logs []store.FeedSyncLog
	require.NoError(t, e.db.Where("run_id = ?", summary.RunID).Find(&logs).Error)
	assert.Len(t, logs, 3)
}

func TestEngine_DryRunWritesNothing(t *testing.T) {
	e := newEnv(t)
	e.source.events["f-type"] = []reconcile.CalendarEvent{allDay("a", "2025-03-10", "2025-03-12")}
	eng := e.engine(reconcile.ModeHold)

	summary, err := eng.Run(context.Background(),
		reconcile.Selection{Trigger: reconcile.TriggerFeed, Filter: reconcile.FeedFilter{FeedID: "f-type"}},
		reconcile.Options{Mode: reconcile.ModeConfirmed, DryRun: true, SkipPast: true})
	require.NoError(t, err)
	assert.True(t, summary.DryRun)
	assert.Equal(t, 1, feedResult(t, summary, "f-type").Created)

	assert.Empty(t, e.bookings(t))
	var n int64
	require.NoError(t, e.db.Model(&store.SyncRun{}).Count(&n).Error)
	assert.Zero(t, n)
	assert.Empty(t, e.policy.registered)
	assert.Empty(t, e.rec.topics)
	assert.Empty(t, e.rec.archived)
}

func TestEngine_UnknownFeed(t *testing.T) {
	e := newEnv(t)
	_, err := e.engine(reconcile.ModeHold).RunSingleFeed(context.Background(), "missing")
	assert.ErrorIs(t, err, reconcile.ErrFeedNotFound)
}

func TestEngine_DateMatchAdoptsUntaggedBooking(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	legacy := &reconcile.Booking{
		PropertyID: "p1",
		StartDate:  "2025-03-20",
		EndDate:    "2025-03-22",
		Status:     reconcile.StatusHold,
		Source:     reconcile.SourceICal,
	}
	require.NoError(t, e.store.CreateBooking(ctx, legacy))

	e.source.events["f-open"] = []reconcile.CalendarEvent{allDay("late-uid", "2025-03-20", "2025-03-22")}
	summary, err := e.engine(reconcile.ModeHold).RunSingleFeed(ctx, "f-open")
	require.NoError(t, err)
	res := feedResult(t, summary, "f-open")
	assert.Equal(t, 1, res.Updated)

	rows := e.bookings(t)
	require.Len(t, rows, 1)
	assert.Equal(t, legacy.ID, rows[0].ID)
	assert.Equal(t, "late-uid", *rows[0].ExternalUID)
}

func TestEngine_PastStayStillTakesCorrections(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.source.events["f-open"] = []reconcile.CalendarEvent{allDay("late", "2025-03-10", "2025-03-12")}
	_, err := e.engine(reconcile.ModeHold).RunSingleFeed(ctx, "f-open")
	require.NoError(t, err)

	// The stay is over by the time the provider fixes the check-out date.
	e.source.events["f-open"] = []reconcile.CalendarEvent{allDay("late", "2025-03-10", "2025-03-13")}
	later := time.Date(2025, 3, 20, 9, 0, 0, 0, time.UTC)
	summary, err := e.engineAt(reconcile.ModeHold, later).RunSingleFeed(ctx, "f-open")
	require.NoError(t, err)
	assert.Equal(t, 1, feedResult(t, summary, "f-open").Updated)

	rows := e.bookings(t)
	require.Len(t, rows, 1)
	assert.Equal(t, "2025-03-13", rows[0].EndDate)
}

func TestEngine_UIDlessEventIsIdempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.source.events["f-open"] = []reconcile.CalendarEvent{allDay("", "2025-03-10", "2025-03-12")}

	for i := 0; i < 2; i++ {
		_, err := e.engine(reconcile.ModeHold).RunSingleFeed(ctx, "f-open")
		require.NoError(t, err)
	}

	require.Len(t, e.bookings(t), 1)

	var ledger []store.UIDMapping
	require.NoError(t, e.db.Find(&ledger).Error)
	require.Len(t, ledger, 1)
	assert.Equal(t, reconcile.SyntheticKey("f-open", "2025-03-10", "2025-03-12"), ledger[0].ExternalKey)
}

func TestEngine_AmbiguousDateMatchCreates(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	var legacy []string
	for i := 0; i < 2; i++ {
		b := &reconcile.Booking{
			PropertyID: "p1",
			StartDate:  "2025-03-20",
			EndDate:    "2025-03-22",
			Status:     reconcile.StatusHold,
			Source:     reconcile.SourceICal,
		}
		require.NoError(t, e.store.CreateBooking(ctx, b))
		legacy = append(legacy, b.ID)
	}

	e.source.events["f-open"] = []reconcile.CalendarEvent{allDay("fresh", "2025-03-20", "2025-03-22")}
	summary, err := e.engine(reconcile.ModeHold).RunSingleFeed(ctx, "f-open")
	require.NoError(t, err)
	assert.Equal(t, 1, feedResult(t, summary, "f-open").Created)

	rows := e.bookings(t)
	require.Len(t, rows, 3)
	for _, row := range rows {
		if row.ID == legacy[0] || row.ID == legacy[1] {
			assert.Nil(t, row.ExternalUID, "legacy booking %s must not be adopted", row.ID)
			continue
		}
		require.NotNil(t, row.ExternalUID)
		assert.Equal(t, "fresh", *row.ExternalUID)
	}
}

func TestEngine_TypeFeedDateChangeKeepsRoom(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.source.events["f-type"] = []reconcile.CalendarEvent{allDay("moved", "2025-03-10", "2025-03-12")}
	_, err := e.engine(reconcile.ModeConfirmed).RunSingleFeed(ctx, "f-type")
	require.NoError(t, err)

	e.manual(t, "r1", "2025-03-13", "2025-03-16")
	e.manual(t, "r2", "2025-03-13", "2025-03-16")

	e.source.events["f-type"] = []reconcile.CalendarEvent{allDay("moved", "2025-03-12", "2025-03-15")}
	summary, err := e.engine(reconcile.ModeConfirmed).RunSingleFeed(ctx, "f-type")
	require.NoError(t, err)
	res := feedResult(t, summary, "f-type")
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 1, res.Unassigned)

	b, err := e.store.FindBookingByExternalUID(ctx, "p1", "moved")
	require.NoError(t, err)
	require.NotNil(t, b.RoomID, "room must survive the conflict")
	assert.Equal(t, "r1", *b.RoomID)
	assert.Equal(t, reconcile.StatusHold, b.Status)
	assert.Equal(t, "2025-03-15", b.EndDate)

	queue, err := e.store.ListUnassigned(ctx, "p1", false)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, reconcile.ReasonRoomConflict, queue[0].Reason)
	assert.Equal(t, "moved", queue[0].Key)
}

func TestEngine_TypeFeedDateChangeMovesRoom(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.source.events["f-type"] = []reconcile.CalendarEvent{allDay("moved", "2025-03-10", "2025-03-12")}
	_, err := e.engine(reconcile.ModeConfirmed).RunSingleFeed(ctx, "f-type")
	require.NoError(t, err)

	e.manual(t, "r1", "2025-03-13", "2025-03-16")

	e.source.events["f-type"] = []reconcile.CalendarEvent{allDay("moved", "2025-03-12", "2025-03-15")}
	summary, err := e.engine(reconcile.ModeConfirmed).RunSingleFeed(ctx, "f-type")
	require.NoError(t, err)
	assert.Zero(t, feedResult(t, summary, "f-type").Unassigned)

	b, err := e.store.FindBookingByExternalUID(ctx, "p1", "moved")
	require.NoError(t, err)
	require.NotNil(t, b.RoomID)
	assert.Equal(t, "r2", *b.RoomID)
	assert.Equal(t, reconcile.StatusConfirmed, b.Status)

	queue, err := e.store.ListUnassigned(ctx, "p1", false)
	require.NoError(t, err)
	assert.Empty(t, queue)
}
