package cmd

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"staysync/core/reconcile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleSummary() *reconcile.RunSummary {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	return &reconcile.RunSummary{
		RunID:         "run-1",
		Trigger:       reconcile.TriggerFeed,
		Mode:          reconcile.ModeHold,
		OK:            false,
		TotalImported: 2,
		StartedAt:     at,
		FinishedAt:    at.Add(time.Second),
		Feeds: []reconcile.FeedResult{
			{FeedID: "f1", Provider: "airbnb", OK: true, EventsFound: 3, Created: 2, Unchanged: 1, ImportedCount: 2},
			{FeedID: "f2", Provider: "vrbo", OK: false, Error: "http 500"},
		},
		Skipped: []reconcile.AccountSkip{{AccountID: "acc2", Reason: "cooldown", CooldownRemaining: 30 * time.Second}},
	}
}

func TestWriteSummary_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeSummary(&buf, sampleSummary(), "text"))

	out := buf.String()
	assert.Contains(t, out, "=== Sync Run run-1 ===")
	assert.Contains(t, out, "feed f1 (airbnb): found=3 created=2")
	assert.Contains(t, out, "[error: http 500]")
	assert.Contains(t, out, "account acc2 skipped: cooldown (retry in 30s)")
}

func TestWriteSummary_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeSummary(&buf, sampleSummary(), "json"))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded["run_id"])
	assert.Equal(t, "feed", decoded["trigger"])
	assert.Len(t, decoded["feeds"], 2)
}

func TestWriteSummary_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeSummary(&buf, sampleSummary(), "yaml"))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded["run_id"])
	assert.Equal(t, "hold", decoded["mode"])
	assert.Equal(t, 2, decoded["total_imported"])
}
