package database_test

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"rasgo-sdk/internal/database"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndListUsage(t *testing.T) {
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "tracking.db"))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, database.RecordUsage(ctx, db, "profile", "ds1", "exp1", 120*time.Millisecond, nil))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, database.RecordUsage(ctx, db, "feature_importance", "ds1", "exp1", time.Second, errors.New("bad target")))
	require.NoError(t, database.RecordUsage(ctx, db, "profile", "ds2", "", 0, nil))

	events, err := database.ListUsage(ctx, db, "exp1", 0)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "feature_importance", events[0].Operation)
	assert.True(t, events[0].Error.Valid)
	assert.Equal(t, "bad target", events[0].Error.String)
	assert.Equal(t, int64(1000), events[0].DurationMs)

	assert.Equal(t, "profile", events[1].Operation)
	assert.False(t, events[1].Error.Valid)
	assert.Equal(t, "ds1", events[1].DatasetId.String)

	all, err := database.ListUsage(ctx, db, "", 1)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSavePayload(t *testing.T) {
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "tracking.db"))
	require.NoError(t, err)
	ctx := context.Background()

	payload := map[string]any{"targetFeature": "y", "featureImportance": map[string]float64{"x": 0.5}}
	require.NoError(t, database.SavePayload(ctx, db, "ds1", database.PayloadImportance, "http://app/dataframes/ds1/importance", payload))

	payloads, err := database.ListPayloads(ctx, db, "ds1")
	require.NoError(t, err)
	require.Len(t, payloads, 1)
	assert.Equal(t, database.PayloadImportance, payloads[0].Kind)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payloads[0].Payload, &decoded))
	assert.Equal(t, "y", decoded["targetFeature"])

	none, err := database.ListPayloads(ctx, db, "other")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracking.db")

	_, err := database.NewDatabase(path)
	require.NoError(t, err)

	db, err := database.NewDatabase(path)
	require.NoError(t, err)
	assert.True(t, db.Migrator().HasColumn(&database.UsageEvent{}, "error"))
}
