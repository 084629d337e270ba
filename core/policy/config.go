package policy

import (
	"time"

	"staysync/core/reconcile"
)

// Config holds the Redis connection and throttling settings.
type Config struct {
	// Enabled switches on cooldown and quota enforcement.
	Enabled bool `mapstructure:"enabled" default:"false"`
	// Addr is the Redis host:port.
	Addr string `mapstructure:"addr" default:"localhost:6379"`
	// Password is the optional Redis password.
	Password string `mapstructure:"password" default:""`
	// DB is the Redis database number.
	DB int `mapstructure:"db" default:"0"`
	// Prefix namespaces every key.
	Prefix string `mapstructure:"prefix" default:"staysync"`
	// ScheduledCooldownSeconds is the minimum gap between scheduled syncs of one account.
	ScheduledCooldownSeconds int `mapstructure:"scheduled_cooldown_seconds" default:"300"`
	// ManualCooldownSeconds is the minimum gap between host-triggered syncs of one account.
	ManualCooldownSeconds int `mapstructure:"manual_cooldown_seconds" default:"60"`
	// DailyQuota caps syncs per account, event type and UTC day. Zero disables it.
	DailyQuota int `mapstructure:"daily_quota" default:"200"`
}

func (c Config) cooldown(eventType string) time.Duration {
	secs := c.ScheduledCooldownSeconds
	if eventType != reconcile.EventScheduledSync {
		secs = c.ManualCooldownSeconds
	}
	if secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
