// Package policy throttles calendar syncs per account using Redis.
//
// Two limits apply per account and event type (scheduled_sync, manual_sync):
// a cooldown key whose TTL must expire before the next sync, and a counter
// per UTC day capped by DailyQuota. When Redis is disabled the engine falls
// back to reconcile.AllowAll.
package policy
