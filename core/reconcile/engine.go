package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrFeedNotFound is returned by RunSingleFeed when the feed is missing or inactive.
var ErrFeedNotFound = errors.New("feed not found or inactive")

// FeedResult summarizes one feed within a run.
type FeedResult struct {
	FeedID     string    `json:"feed_id" yaml:"feed_id"`
	PropertyID string    `json:"property_id" yaml:"property_id"`
	AccountID  string    `json:"account_id" yaml:"account_id"`
	Provider   string    `json:"provider" yaml:"provider"`
	OK         bool      `json:"ok" yaml:"ok"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`

	EventsFound int `json:"events_found" yaml:"events_found"`
	// ImportedCount counts events that created, updated or cancelled a booking.
	ImportedCount int `json:"imported_count" yaml:"imported_count"`
	Created       int `json:"created" yaml:"created"`
	Updated       int `json:"updated" yaml:"updated"`
	Unchanged     int `json:"unchanged" yaml:"unchanged"`
	Cancelled     int `json:"cancelled" yaml:"cancelled"`
	Skipped       int `json:"skipped" yaml:"skipped"`
	Unassigned    int `json:"unassigned" yaml:"unassigned"`
	FormsMerged   int `json:"forms_merged" yaml:"forms_merged"`
	Failed        int `json:"failed" yaml:"failed"`

	// Events lists the events that failed or were skipped.
	Events []EventResult `json:"events,omitempty" yaml:"events,omitempty"`
}

// AccountSkip records an account the sync policy held back.
type AccountSkip struct {
	AccountID         string        `json:"account_id" yaml:"account_id"`
	Reason            string        `json:"reason" yaml:"reason"`
	CooldownRemaining time.Duration `json:"cooldown_remaining" yaml:"cooldown_remaining"`
	FeedIDs           []string      `json:"feed_ids" yaml:"feed_ids"`
}

// RunSummary is the result of one reconciliation run.
type RunSummary struct {
	RunID         string        `json:"run_id" yaml:"run_id"`
	Trigger       Trigger       `json:"trigger" yaml:"trigger"`
	ScopeID       string        `json:"scope_id,omitempty" yaml:"scope_id,omitempty"`
	Mode          Mode          `json:"mode" yaml:"mode"`
	DryRun        bool          `json:"dry_run" yaml:"dry_run"`
	OK            bool          `json:"ok" yaml:"ok"`
	TotalImported int           `json:"total_imported" yaml:"total_imported"`
	StartedAt     time.Time     `json:"started_at" yaml:"started_at"`
	FinishedAt    time.Time     `json:"finished_at" yaml:"finished_at"`
	Feeds         []FeedResult  `json:"feeds" yaml:"feeds"`
	Skipped       []AccountSkip `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// Options tune a run.
type Options struct {
	Mode     Mode
	DryRun   bool
	SkipPast bool
}

// OptionsFromConfig builds run options from configuration.
func OptionsFromConfig(cfg Config) (Options, error) {
	mode, err := ParseMode(cfg.Mode)
	if err != nil {
		return Options{}, err
	}
	return Options{Mode: mode, DryRun: cfg.DryRun, SkipPast: cfg.SkipPast}, nil
}

// Selection chooses the feeds of a run.
type Selection struct {
	Trigger Trigger
	Filter  FeedFilter
}

// Engine runs reconciliation for a feed selection. The scheduled sweep, the
// property sweep and the single-feed run all go through Run.
type Engine struct {
	store     Store
	source    EventSource
	policy    SyncPolicy
	publisher Publisher
	archiver  Archiver
	logger    *zap.Logger
	options   Options
	now       func() time.Time
}

// EngineOption customises an Engine.
type EngineOption func(*Engine)

// WithPolicy sets the sync policy. The default allows every run.
func WithPolicy(p SyncPolicy) EngineOption {
	return func(e *Engine) { e.policy = p }
}

// WithPublisher sets the notification publisher.
func WithPublisher(p Publisher) EngineOption {
	return func(e *Engine) { e.publisher = p }
}

// WithArchiver sets where run summaries are archived.
func WithArchiver(a Archiver) EngineOption {
	return func(e *Engine) { e.archiver = a }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine with the given default run options.
func NewEngine(store Store, source EventSource, logger *zap.Logger, opts Options, options ...EngineOption) *Engine {
	if opts.Mode == "" {
		opts.Mode = ModeHold
	}
	e := &Engine{
		store:   store,
		source:  source,
		policy:  AllowAll{},
		logger:  logger,
		options: opts,
		now:     time.Now,
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

// Options returns the engine's default run options.
func (e *Engine) Options() Options {
	return e.options
}

// RunScheduledSweep syncs every active feed.
func (e *Engine) RunScheduledSweep(ctx context.Context) (*RunSummary, error) {
	return e.Run(ctx, Selection{Trigger: TriggerScheduled}, e.options)
}

// RunPropertySweep syncs the active feeds of one property.
func (e *Engine) RunPropertySweep(ctx context.Context, propertyID string) (*RunSummary, error) {
	return e.Run(ctx, Selection{Trigger: TriggerProperty, Filter: FeedFilter{PropertyID: propertyID}}, e.options)
}

// RunSingleFeed syncs one active feed.
func (e *Engine) RunSingleFeed(ctx context.Context, feedID string) (*RunSummary, error) {
	return e.Run(ctx, Selection{Trigger: TriggerFeed, Filter: FeedFilter{FeedID: feedID}}, e.options)
}

// Run reconciles the selected feeds grouped by account. Each account is gated
// by the sync policy; a failing feed or event is recorded and the run goes on.
func (e *Engine) Run(ctx context.Context, sel Selection, opts Options) (*RunSummary, error) {
	if opts.Mode == "" {
		opts.Mode = ModeHold
	}

	store := e.store
	if opts.DryRun {
		store = dryRunStore{Store: e.store}
	}

	summary := &RunSummary{
		RunID:     uuid.NewString(),
		Trigger:   sel.Trigger,
		ScopeID:   sel.Filter.PropertyID + sel.Filter.FeedID,
		Mode:      opts.Mode,
		DryRun:    opts.DryRun,
		StartedAt: e.now(),
		Feeds:     []FeedResult{},
	}
	log := e.logger.With(
		zap.String("run_id", summary.RunID),
		zap.String("trigger", string(sel.Trigger)),
		zap.String("mode", string(opts.Mode)),
		zap.Bool("dry_run", opts.DryRun),
	)

	feeds, err := store.ListActiveFeeds(ctx, sel.Filter)
	if err != nil {
		return nil, fmt.Errorf("list feeds: %w", err)
	}
	if sel.Filter.FeedID != "" && len(feeds) == 0 {
		return nil, ErrFeedNotFound
	}

	log.Info("Sync run started", zap.Int("feeds", len(feeds)))

	r := &run{
		engine:   e,
		store:    store,
		resolver: NewResolver(store, e.now),
		opts:     opts,
		policies: make(map[string]*PropertyPolicy),
		log:      log,
	}
	r.merger = NewMerger(store, NewAllocator(store), e.now)

	eventType := sel.Trigger.EventType()
	for _, group := range groupByAccount(feeds) {
		if ctx.Err() != nil {
			break
		}

		decision, err := e.policy.CanSyncNow(ctx, group.accountID, eventType)
		if err != nil {
			// Policy backend outages must not stop calendar sync.
			log.Warn("Sync policy unavailable, allowing account",
				zap.String("account_id", group.accountID), zap.Error(err))
			decision = PolicyDecision{Allowed: true}
		}
		if !decision.Allowed {
			skip := AccountSkip{
				AccountID:         group.accountID,
				Reason:            decision.Reason,
				CooldownRemaining: decision.CooldownRemaining,
			}
			for _, f := range group.feeds {
				skip.FeedIDs = append(skip.FeedIDs, f.ID)
			}
			summary.Skipped = append(summary.Skipped, skip)
			log.Info("Account skipped by sync policy",
				zap.String("account_id", group.accountID),
				zap.String("reason", decision.Reason),
				zap.Duration("cooldown_remaining", decision.CooldownRemaining))
			continue
		}

		for _, feed := range group.feeds {
			res := r.syncFeed(ctx, summary.RunID, feed)
			summary.Feeds = append(summary.Feeds, res)
			summary.TotalImported += res.ImportedCount
		}

		if !opts.DryRun {
			if err := e.policy.RegisterSyncUsage(ctx, group.accountID, eventType); err != nil {
				log.Warn("Failed to register sync usage", zap.String("account_id", group.accountID), zap.Error(err))
			}
		}
	}

	summary.OK = true
	for _, f := range summary.Feeds {
		if !f.OK {
			summary.OK = false
		}
	}
	summary.FinishedAt = e.now()

	e.finalize(ctx, store, summary, r.opened, log)
	return summary, nil
}

// finalize persists, archives and announces the run. These steps are best
// effort; their failures are logged and do not change the summary.
func (e *Engine) finalize(ctx context.Context, store Store, summary *RunSummary, opened []UnassignedEvent, log *zap.Logger) {
	if err := store.SaveRun(ctx, summary); err != nil {
		log.Error("Failed to save run summary", zap.Error(err))
	}

	if summary.DryRun {
		log.Info("Dry run finished", zap.Int("feeds", len(summary.Feeds)), zap.Int("imported", summary.TotalImported))
		return
	}

	if e.archiver != nil {
		if err := e.archiver.Archive(ctx, summary.RunID, summary.StartedAt, summary); err != nil {
			log.Warn("Failed to archive run summary", zap.Error(err))
		}
	}

	if e.publisher != nil {
		for _, ev := range opened {
			if err := e.publisher.Publish(ctx, TopicBookingUnassigned, ev); err != nil {
				log.Warn("Failed to publish unassigned event", zap.String("key", ev.Key), zap.Error(err))
			}
		}
		if err := e.publisher.Publish(ctx, TopicSyncCompleted, summary); err != nil {
			log.Warn("Failed to publish sync completion", zap.Error(err))
		}
	}

	log.Info("Sync run finished",
		zap.Bool("ok", summary.OK),
		zap.Int("feeds", len(summary.Feeds)),
		zap.Int("skipped_accounts", len(summary.Skipped)),
		zap.Int("imported", summary.TotalImported),
		zap.Duration("duration", summary.FinishedAt.Sub(summary.StartedAt)))
}

type accountGroup struct {
	accountID string
	feeds     []Feed
}

// groupByAccount groups feeds by account, ordered by account id, keeping feed order.
func groupByAccount(feeds []Feed) []accountGroup {
	index := make(map[string]int)
	var groups []accountGroup
	for _, f := range feeds {
		i, ok := index[f.AccountID]
		if !ok {
			i = len(groups)
			index[f.AccountID] = i
			groups = append(groups, accountGroup{accountID: f.AccountID})
		}
		groups[i].feeds = append(groups[i].feeds, f)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].accountID < groups[j].accountID
	})
	return groups
}

// run holds the per-run state shared by the feeds of one run.
type run struct {
	engine   *Engine
	store    Store
	resolver *Resolver
	merger   *Merger
	opts     Options
	policies map[string]*PropertyPolicy
	opened   []UnassignedEvent
	log      *zap.Logger
}

func (r *run) policyFor(ctx context.Context, propertyID string) (*PropertyPolicy, error) {
	if p, ok := r.policies[propertyID]; ok {
		return p, nil
	}
	p, err := r.store.PropertyPolicy(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	r.policies[propertyID] = p
	return p, nil
}

func (r *run) syncFeed(ctx context.Context, runID string, feed Feed) FeedResult {
	now := r.engine.now
	res := FeedResult{
		FeedID:     feed.ID,
		PropertyID: feed.PropertyID,
		AccountID:  feed.AccountID,
		Provider:   feed.Provider,
		StartedAt:  now(),
	}
	log := r.log.With(zap.String("feed_id", feed.ID), zap.String("property_id", feed.PropertyID))

	err := r.processFeed(ctx, feed, &res, log)
	res.FinishedAt = now()

	status := FeedSyncOK
	if err != nil {
		res.OK = false
		res.Error = err.Error()
		status = FeedSyncError
		log.Warn("Feed sync failed", zap.Error(err))
	} else {
		res.OK = true
		log.Info("Feed synced",
			zap.Int("events", res.EventsFound),
			zap.Int("imported", res.ImportedCount),
			zap.Int("unassigned", res.Unassigned),
			zap.Int("failed", res.Failed))
	}

	if err := r.store.MarkFeedSynced(ctx, feed.ID, res.FinishedAt, status, res.Error); err != nil {
		log.Error("Failed to mark feed synced", zap.Error(err))
	}
	if err := r.store.RecordFeedLog(ctx, runID, res); err != nil {
		log.Error("Failed to record feed log", zap.Error(err))
	}
	return res
}

func (r *run) processFeed(ctx context.Context, feed Feed, res *FeedResult, log *zap.Logger) error {
	policy, err := r.policyFor(ctx, feed.PropertyID)
	if err != nil {
		return fmt.Errorf("load property policy: %w", err)
	}

	events, err := r.engine.source.Events(ctx, feed)
	if err != nil {
		return err
	}
	res.EventsFound = len(events)

	today := r.engine.now().In(locationOf(policy)).Format(DateLayout)

	for _, ev := range events {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		er := r.processEvent(ctx, feed, *policy, ev, today)
		switch er.Outcome {
		case OutcomeCreated:
			res.Created++
			res.ImportedCount++
		case OutcomeUpdated:
			res.Updated++
			res.ImportedCount++
		case OutcomeCancelled:
			res.Cancelled++
			res.ImportedCount++
		case OutcomeUnchanged:
			res.Unchanged++
		case OutcomeSkipped:
			res.Skipped++
			res.Events = append(res.Events, er)
		case OutcomeFailed:
			res.Failed++
			res.Events = append(res.Events, er)
			log.Warn("Event failed", zap.String("key", er.Key), zap.String("error", er.Error))
		}
		if er.Unassigned {
			res.Unassigned++
		}
		if er.FormMerged {
			res.FormsMerged++
		}
		if er.opened != nil {
			r.opened = append(r.opened, *er.opened)
		}
	}
	return nil
}

func (r *run) processEvent(ctx context.Context, feed Feed, policy PropertyPolicy, ev CalendarEvent, today string) EventResult {
	n, err := Normalize(ev, policy)
	if err != nil {
		return EventResult{Key: ev.UID, Outcome: OutcomeSkipped, Reason: ReasonInvalid, Error: err.Error()}
	}
	key := n.Key(feed.ID)

	dec, err := r.resolver.Resolve(ctx, feed, n)
	if err != nil {
		return EventResult{Key: key, Outcome: OutcomeFailed, Error: err.Error()}
	}

	// Only new stays are skipped; a known booking still takes corrections
	// after check-out.
	if r.opts.SkipPast && dec.Kind == DecisionCreate && n.EndDate < today {
		return EventResult{Key: key, Outcome: OutcomeSkipped, Reason: ReasonPastStay}
	}

	er, err := r.merger.Apply(ctx, feed, n, dec, r.opts.Mode)
	if err != nil {
		er.Key = key
		er.Outcome = OutcomeFailed
		er.Error = err.Error()
	}
	return er
}

func locationOf(p *PropertyPolicy) *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}
