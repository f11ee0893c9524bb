package stats_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmenichole/tiltcheck/internal/stats"
	"github.com/jmenichole/tiltcheck/internal/testutil"
)

func TestPostgresStoreAggregates(t *testing.T) {
	db := testutil.PostgresDB(t)
	testutil.Truncate(t, db, "daily_stats")
	store := stats.NewPostgresStore(db)
	ctx := context.Background()

	require.NoError(t, store.FoldSession(ctx, "2026-08-30", stats.SessionSummary{
		Platform:     "stake.us",
		PeakScore:    6.5,
		Interactions: 40,
		SignalCounts: map[string]int{"loss_detected": 3},
	}))
	require.NoError(t, store.FoldSession(ctx, "2026-08-30", stats.SessionSummary{
		Platform:     "stake.us",
		PeakScore:    4.0,
		Interactions: 10,
		SignalCounts: map[string]int{"loss_detected": 1, "rapid_clicking": 2},
	}))
	require.NoError(t, store.CountAlert(ctx, "2026-08-30", "stake.us", "high"))
	require.NoError(t, store.CountAlert(ctx, "2026-08-30", "stake.us", "high"))

	out, err := store.List(ctx, "2026-08-30", "2026-08-30")
	require.NoError(t, err)
	require.Len(t, out, 1)

	b := out[0]
	assert.Equal(t, 2, b.Sessions)
	assert.Equal(t, int64(50), b.TotalInteractions)
	assert.Equal(t, 6.5, b.PeakScore)
	assert.Equal(t, 4, b.SignalCounts["loss_detected"])
	assert.Equal(t, 2, b.SignalCounts["rapid_clicking"])
	assert.Equal(t, 2, b.Alerts)
	assert.Equal(t, 2, b.AlertsByLevel["high"])
}
