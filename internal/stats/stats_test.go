package stats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmenichole/tiltcheck/internal/signal"
	"github.com/jmenichole/tiltcheck/internal/tilt"
)

func TestDay(t *testing.T) {
	at := time.Date(2026, 8, 30, 23, 30, 0, 0, time.FixedZone("UTC+2", 2*3600))
	assert.Equal(t, "2026-08-30", Day(at))
}

func TestMemoryStoreFoldSession(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.FoldSession(ctx, "2026-08-30", SessionSummary{
		Platform:     "stake.us",
		PeakScore:    6.5,
		Interactions: 40,
		SignalCounts: map[string]int{"loss_detected": 3},
	}))
	require.NoError(t, s.FoldSession(ctx, "2026-08-30", SessionSummary{
		Platform:     "stake.us",
		PeakScore:    4.0,
		Interactions: 10,
		SignalCounts: map[string]int{"loss_detected": 1, "rapid_clicking": 2},
	}))

	out, err := s.List(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, out, 1)

	b := out[0]
	assert.Equal(t, 2, b.Sessions)
	assert.Equal(t, int64(50), b.TotalInteractions)
	assert.Equal(t, 6.5, b.PeakScore)
	assert.Equal(t, 4, b.SignalCounts["loss_detected"])
	assert.Equal(t, 2, b.SignalCounts["rapid_clicking"])
}

func TestMemoryStoreCountAlert(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.CountAlert(ctx, "2026-08-30", "stake.us", "high"))
	require.NoError(t, s.CountAlert(ctx, "2026-08-30", "stake.us", "high"))
	require.NoError(t, s.CountAlert(ctx, "2026-08-30", "stake.us", "critical"))

	out, err := s.List(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 3, out[0].Alerts)
	assert.Equal(t, 2, out[0].AlertsByLevel["high"])
	assert.Equal(t, 1, out[0].AlertsByLevel["critical"])
}

func TestMemoryStoreListRange(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for _, day := range []string{"2026-08-28", "2026-08-29", "2026-08-30"} {
		require.NoError(t, s.CountAlert(ctx, day, "stake.us", "high"))
	}

	out, err := s.List(ctx, "2026-08-29", "2026-08-30")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "2026-08-29", out[0].Day)
	assert.Equal(t, "2026-08-30", out[1].Day)
}

func TestRecorderFoldSession(t *testing.T) {
	store := NewMemoryStore()
	r := NewRecorder(store)

	sess := &tilt.Session{
		ID:             "sess_1",
		UserID:         "u1",
		Platform:       "bovada.lv",
		LastUpdateTime: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
		TiltScore:      2.0,
		PeakScore:      7.5,
		Interactions:   12,
		SignalCounts: map[signal.Kind]int{
			signal.KindLossDetected: 2,
		},
	}
	require.NoError(t, r.FoldSession(context.Background(), sess))

	out, err := store.List(context.Background(), "", "")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "2026-08-30", out[0].Day)
	assert.Equal(t, "bovada.lv", out[0].Platform)
	assert.Equal(t, 7.5, out[0].PeakScore)
	assert.Equal(t, 2, out[0].SignalCounts["loss_detected"])
}
