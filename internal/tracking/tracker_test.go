package tracking_test

import (
	"context"
	"errors"
	"path/filepath"
	"rasgo-sdk/internal/database"
	"rasgo-sdk/internal/tracking"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDBTracker(t *testing.T) {
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "tracking.db"))
	require.NoError(t, err)
	ctx := context.Background()

	tracker := tracking.NewDBTracker(db, "exp")
	tracker.Track(ctx, "profile", "ds", time.Now(), nil)
	tracker.SetExperiment("other")
	tracker.Track(ctx, "prune_features", "ds", time.Now(), errors.New("no method"))
	tracker.Published(ctx, "ds", database.PayloadProfile, "http://app", map[string]int{"a": 1})

	events, err := database.ListUsage(ctx, db, "exp", 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "profile", events[0].Operation)

	events, err = database.ListUsage(ctx, db, "other", 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "no method", events[0].Error.String)

	payloads, err := database.ListPayloads(ctx, db, "ds")
	require.NoError(t, err)
	assert.Len(t, payloads, 1)
}

func TestNoopTracker(t *testing.T) {
	var tracker tracking.Tracker = tracking.NoopTracker{}
	tracker.SetExperiment("x")
	tracker.Track(context.Background(), "profile", "ds", time.Now(), nil)
	tracker.Published(context.Background(), "ds", database.PayloadProfile, "", nil)
}
