package store

import (
	"time"
)

// Account owns properties and is the unit the sync policy throttles.
type Account struct {
	ID        string    `gorm:"column:id;primaryKey;type:varchar(36)"`
	Name      string    `gorm:"column:name;type:varchar(191);not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (Account) TableName() string { return "accounts" }

// Property is a rental property with its timezone and default stay times.
type Property struct {
	ID           string    `gorm:"column:id;primaryKey;type:varchar(36)"`
	AccountID    string    `gorm:"column:account_id;type:varchar(36);not null;index:idx_properties_account"`
	Name         string    `gorm:"column:name;type:varchar(191);not null"`
	Timezone     string    `gorm:"column:timezone;type:varchar(64);not null;default:'UTC'"`
	CheckInTime  string    `gorm:"column:check_in_time;type:varchar(5);not null;default:'15:00'"`
	CheckOutTime string    `gorm:"column:check_out_time;type:varchar(5);not null;default:'11:00'"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (Property) TableName() string { return "properties" }

// RoomType groups interchangeable rooms of a property.
type RoomType struct {
	ID         string `gorm:"column:id;primaryKey;type:varchar(36)"`
	PropertyID string `gorm:"column:property_id;type:varchar(36);not null;index:idx_room_types_property"`
	Name       string `gorm:"column:name;type:varchar(191);not null"`
}

func (RoomType) TableName() string { return "room_types" }

// Room is a physical unit. Its row is the lock target when claiming it.
type Room struct {
	ID         string  `gorm:"column:id;primaryKey;type:varchar(36)"`
	PropertyID string  `gorm:"column:property_id;type:varchar(36);not null;index:idx_rooms_property_type,priority:1"`
	RoomTypeID *string `gorm:"column:room_type_id;type:varchar(36);index:idx_rooms_property_type,priority:2"`
	Name       string  `gorm:"column:name;type:varchar(191);not null"`
}

func (Room) TableName() string { return "rooms" }

// Feed is an external calendar integration.
type Feed struct {
	ID         string     `gorm:"column:id;primaryKey;type:varchar(36)"`
	PropertyID string     `gorm:"column:property_id;type:varchar(36);not null;index:idx_feeds_property"`
	RoomID     *string    `gorm:"column:room_id;type:varchar(36)"`
	RoomTypeID *string    `gorm:"column:room_type_id;type:varchar(36)"`
	Provider   string     `gorm:"column:provider;type:varchar(64);not null"`
	URL        string     `gorm:"column:url;type:text;not null"`
	Active     bool       `gorm:"column:active;not null"`
	LastSyncAt *time.Time `gorm:"column:last_sync_at"`
	LastStatus string     `gorm:"column:last_status;type:varchar(16)"`
	LastError  string     `gorm:"column:last_error;type:text"`
	CreatedAt  time.Time  `gorm:"column:created_at"`
	UpdatedAt  time.Time  `gorm:"column:updated_at"`
}

func (Feed) TableName() string { return "feeds" }

// Booking is a stay on the internal calendar.
type Booking struct {
	ID               string     `gorm:"column:id;primaryKey;type:varchar(36)"`
	PropertyID       string     `gorm:"column:property_id;type:varchar(36);not null;index:idx_bookings_property_dates,priority:1;index:idx_bookings_property_uid,priority:1"`
	RoomID           *string    `gorm:"column:room_id;type:varchar(36);index:idx_bookings_room_dates,priority:1"`
	RoomTypeID       *string    `gorm:"column:room_type_id;type:varchar(36)"`
	StartDate        string     `gorm:"column:start_date;type:varchar(10);not null;index:idx_bookings_property_dates,priority:2;index:idx_bookings_room_dates,priority:2"`
	EndDate          string     `gorm:"column:end_date;type:varchar(10);not null;index:idx_bookings_property_dates,priority:3;index:idx_bookings_room_dates,priority:3"`
	StartTime        string     `gorm:"column:start_time;type:varchar(5)"`
	EndTime          string     `gorm:"column:end_time;type:varchar(5)"`
	Status           string     `gorm:"column:status;type:varchar(16);not null"`
	Source           string     `gorm:"column:source;type:varchar(16);not null"`
	ExternalUID      *string    `gorm:"column:external_uid;type:varchar(255);index:idx_bookings_property_uid,priority:2"`
	FeedID           *string    `gorm:"column:feed_id;type:varchar(36)"`
	Provider         string     `gorm:"column:provider;type:varchar(64)"`
	GuestName        string     `gorm:"column:guest_name;type:varchar(191)"`
	GuestEmail       string     `gorm:"column:guest_email;type:varchar(191)"`
	GuestPhone       string     `gorm:"column:guest_phone;type:varchar(64)"`
	GuestAddress     string     `gorm:"column:guest_address;type:text"`
	DocumentRefs     string     `gorm:"column:document_refs;type:text"`
	FormSubmissionID *string    `gorm:"column:form_submission_id;type:varchar(36)"`
	SubmittedAt      *time.Time `gorm:"column:submitted_at"`
	Version          int        `gorm:"column:version;not null"`
	CreatedAt        time.Time  `gorm:"column:created_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at"`
}

func (Booking) TableName() string { return "bookings" }

// UIDMapping is the ledger of external keys. The unique index on
// (property_id, external_key) is what makes imports idempotent.
type UIDMapping struct {
	ID          uint      `gorm:"column:id;primaryKey;autoIncrement"`
	PropertyID  string    `gorm:"column:property_id;type:varchar(36);not null;uniqueIndex:ux_uid_map_property_key,priority:1"`
	ExternalKey string    `gorm:"column:external_key;type:varchar(255);not null;uniqueIndex:ux_uid_map_property_key,priority:2"`
	BookingID   string    `gorm:"column:booking_id;type:varchar(36);not null;index:idx_uid_map_booking"`
	RoomID      *string   `gorm:"column:room_id;type:varchar(36)"`
	RoomTypeID  *string   `gorm:"column:room_type_id;type:varchar(36)"`
	StartDate   string    `gorm:"column:start_date;type:varchar(10)"`
	EndDate     string    `gorm:"column:end_date;type:varchar(10)"`
	LastSeenAt  time.Time `gorm:"column:last_seen_at"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (UIDMapping) TableName() string { return "ical_uid_map" }

// Suppression marks a UID the host removed from the internal calendar.
type Suppression struct {
	ID         uint      `gorm:"column:id;primaryKey;autoIncrement"`
	PropertyID string    `gorm:"column:property_id;type:varchar(36);not null;uniqueIndex:ux_suppressions_property_uid,priority:1"`
	UID        string    `gorm:"column:uid;type:varchar(255);not null;uniqueIndex:ux_suppressions_property_uid,priority:2"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (Suppression) TableName() string { return "ical_suppressions" }

// UnassignedEvent is the host-facing queue of stays without a room.
// One row per (property, key); resolving closes it, a new failure reopens it.
type UnassignedEvent struct {
	ID          string     `gorm:"column:id;primaryKey;type:varchar(36)"`
	PropertyID  string     `gorm:"column:property_id;type:varchar(36);not null;uniqueIndex:ux_unassigned_property_key,priority:1"`
	ExternalKey string     `gorm:"column:external_key;type:varchar(255);not null;uniqueIndex:ux_unassigned_property_key,priority:2"`
	FeedID      string     `gorm:"column:feed_id;type:varchar(36);not null"`
	RoomTypeID  *string    `gorm:"column:room_type_id;type:varchar(36)"`
	BookingID   *string    `gorm:"column:booking_id;type:varchar(36)"`
	StartDate   string     `gorm:"column:start_date;type:varchar(10);not null"`
	EndDate     string     `gorm:"column:end_date;type:varchar(10);not null"`
	Reason      string     `gorm:"column:reason;type:varchar(32);not null"`
	Resolved    bool       `gorm:"column:resolved;not null;default:false"`
	ResolvedAt  *time.Time `gorm:"column:resolved_at"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at"`
}

func (UnassignedEvent) TableName() string { return "unassigned_events" }

// FeedSyncLog is the per-feed audit trail of a run.
type FeedSyncLog struct {
	ID          uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	RunID       string    `gorm:"column:run_id;type:varchar(36);not null;index:idx_feed_sync_logs_run" json:"run_id"`
	FeedID      string    `gorm:"column:feed_id;type:varchar(36);not null;index:idx_feed_sync_logs_feed" json:"feed_id"`
	Status      string    `gorm:"column:status;type:varchar(16);not null" json:"status"`
	EventsFound int       `gorm:"column:events_found" json:"events_found"`
	Imported    int       `gorm:"column:imported" json:"imported"`
	Created     int       `gorm:"column:created" json:"created"`
	Updated     int       `gorm:"column:updated" json:"updated"`
	Cancelled   int       `gorm:"column:cancelled" json:"cancelled"`
	Skipped     int       `gorm:"column:skipped" json:"skipped"`
	Unassigned  int       `gorm:"column:unassigned" json:"unassigned"`
	Failed      int       `gorm:"column:failed" json:"failed"`
	Error       string    `gorm:"column:error;type:text" json:"error"`
	StartedAt   time.Time `gorm:"column:started_at" json:"started_at"`
	FinishedAt  time.Time `gorm:"column:finished_at" json:"finished_at"`
}

func (FeedSyncLog) TableName() string { return "feed_sync_logs" }

// SyncRun stores the outcome of each reconciliation run.
type SyncRun struct {
	ID            string    `gorm:"column:id;primaryKey;type:varchar(36)" json:"id"`
	Trigger       string    `gorm:"column:trigger_name;type:varchar(16);not null" json:"trigger"`
	ScopeID       string    `gorm:"column:scope_id;type:varchar(36)" json:"scope_id"`
	Mode          string    `gorm:"column:mode;type:varchar(16);not null" json:"mode"`
	OK            bool      `gorm:"column:ok;not null" json:"ok"`
	TotalImported int       `gorm:"column:total_imported" json:"total_imported"`
	FeedCount     int       `gorm:"column:feed_count" json:"feed_count"`
	SkippedCount  int       `gorm:"column:skipped_count" json:"skipped_count"`
	Summary       string    `gorm:"column:summary;type:longtext" json:"-"`
	StartedAt     time.Time `gorm:"column:started_at;index:idx_sync_runs_started" json:"started_at"`
	FinishedAt    time.Time `gorm:"column:finished_at" json:"finished_at"`
}

func (SyncRun) TableName() string { return "sync_runs" }

// Models lists every table owned by the service, in migration order.
func Models() []any {
	return []any{
		&Account{},
		&Property{},
		&RoomType{},
		&Room{},
		&Feed{},
		&Booking{},
		&UIDMapping{},
		&Suppression{},
		&UnassignedEvent{},
		&FeedSyncLog{},
		&SyncRun{},
	}
}
