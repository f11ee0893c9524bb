package tilt

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmenichole/tiltcheck/internal/alerts"
	"github.com/jmenichole/tiltcheck/internal/signal"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type stubAdapter struct{}

func (stubAdapter) Name() string                              { return "stub" }
func (stubAdapter) Send(context.Context, *alerts.Alert) error { return nil }

type engineFixture struct {
	engine     *Engine
	store      *MemoryStore
	alertStore *alerts.MemoryStore
	clock      *fakeClock
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	clock := newFakeClock()
	store := NewMemoryStore()
	alertStore := alerts.NewMemoryStore()

	configs := &alerts.StaticSource{
		Default: alerts.Config{
			EnabledLevels: []string{"high", "critical"},
			Adapters:      []string{"stub"},
			Cooldown:      5 * time.Minute,
		},
	}
	dispatcher := alerts.NewDispatcher(slog.Default(), stubAdapter{})

	engine := NewEngine(store, alertStore, dispatcher, configs, slog.Default(), EngineConfig{
		SignalWindow: 10 * time.Minute,
		Now:          clock.Now,
	})
	return &engineFixture{engine: engine, store: store, alertStore: alertStore, clock: clock}
}

func lossObs(dollars float64) *signal.Observation {
	return &signal.Observation{
		UserID:          "u1",
		Platform:        "stake.us",
		BalanceDeltaSet: true,
		BalanceDelta:    -dollars,
	}
}

func TestIngestCreatesSession(t *testing.T) {
	fx := newEngineFixture(t)

	res, err := fx.engine.Ingest(context.Background(), lossObs(100))
	require.NoError(t, err)

	assert.True(t, res.Matched)
	assert.NotEmpty(t, res.SessionID)
	assert.InDelta(t, 1.0, res.Score, 1e-9)
	assert.Equal(t, LevelLow, res.Level)
	assert.False(t, res.Alerted)

	s, err := fx.store.Get(context.Background(), res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "u1", s.UserID)
	assert.Equal(t, int64(1), s.Interactions)
	assert.Equal(t, 1, s.SignalCounts[signal.KindLossDetected])
}

func TestIngestReusesActiveSession(t *testing.T) {
	fx := newEngineFixture(t)

	first, err := fx.engine.Ingest(context.Background(), lossObs(100))
	require.NoError(t, err)
	second, err := fx.engine.Ingest(context.Background(), lossObs(100))
	require.NoError(t, err)

	assert.Equal(t, first.SessionID, second.SessionID)
	assert.InDelta(t, 2.0, second.Score, 1e-9)
}

func TestIngestUnmatchedObservationDiscarded(t *testing.T) {
	fx := newEngineFixture(t)

	res, err := fx.engine.Ingest(context.Background(), &signal.Observation{
		UserID: "u1", Platform: "stake.us", Clicks: 3,
	})
	require.NoError(t, err)
	assert.False(t, res.Matched)

	sessions, err := fx.store.List(context.Background(), SessionFilter{})
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestAlertOnUpwardTransition(t *testing.T) {
	fx := newEngineFixture(t)
	ctx := context.Background()

	// Two capped losses: 2 + 2 = 4, still below high.
	_, err := fx.engine.Ingest(ctx, lossObs(500))
	require.NoError(t, err)
	res, err := fx.engine.Ingest(ctx, lossObs(500))
	require.NoError(t, err)
	assert.Equal(t, LevelMedium, res.Level)
	assert.False(t, res.Alerted)

	// Third pushes to 6: medium -> high, which is enabled.
	res, err = fx.engine.Ingest(ctx, lossObs(500))
	require.NoError(t, err)
	assert.Equal(t, LevelHigh, res.Level)
	assert.Equal(t, LevelMedium, res.PrevLevel)
	assert.True(t, res.Alerted)
	assert.NotEmpty(t, res.AlertID)

	// Delivery and recording happen off the ingest path.
	require.Eventually(t, func() bool {
		recorded, err := fx.alertStore.List(ctx, alerts.Filter{SessionID: res.SessionID})
		return err == nil && len(recorded) == 1
	}, 2*time.Second, 10*time.Millisecond)

	recorded, err := fx.alertStore.List(ctx, alerts.Filter{SessionID: res.SessionID})
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.Equal(t, "high", recorded[0].Level)
	require.Len(t, recorded[0].DispatchResults, 1)
	assert.True(t, recorded[0].DispatchResults[0].Success)
}

func TestNoAlertForDisabledLevel(t *testing.T) {
	fx := newEngineFixture(t)

	// low -> medium transition, but only high/critical are enabled.
	_, err := fx.engine.Ingest(context.Background(), lossObs(200))
	require.NoError(t, err)
	res, err := fx.engine.Ingest(context.Background(), lossObs(200))
	require.NoError(t, err)

	assert.Equal(t, LevelMedium, res.Level)
	assert.False(t, res.Alerted)
}

func TestCooldownSuppressesSecondAlert(t *testing.T) {
	fx := newEngineFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := fx.engine.Ingest(ctx, lossObs(500))
		require.NoError(t, err)
	}

	// Push high -> critical one minute later, well inside the cooldown.
	fx.clock.Advance(time.Minute)
	_, err := fx.engine.Ingest(ctx, lossObs(500))
	require.NoError(t, err)
	res, err := fx.engine.Ingest(ctx, lossObs(500))
	require.NoError(t, err)

	assert.Equal(t, LevelCritical, res.Level)
	assert.False(t, res.Alerted)
}

func TestReAlertAfterDecayAndCooldown(t *testing.T) {
	fx := newEngineFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := fx.engine.Ingest(ctx, lossObs(500))
		require.NoError(t, err)
	}

	// Past both the signal window and the cooldown: the score has decayed
	// to zero, so the next climb is a fresh upward transition.
	fx.clock.Advance(11 * time.Minute)

	var res *IngestResult
	var err error
	for i := 0; i < 3; i++ {
		res, err = fx.engine.Ingest(ctx, lossObs(500))
		require.NoError(t, err)
	}
	assert.Equal(t, LevelHigh, res.Level)
	assert.True(t, res.Alerted)
}

func TestDownwardTransitionIsSilent(t *testing.T) {
	fx := newEngineFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := fx.engine.Ingest(ctx, lossObs(500))
		require.NoError(t, err)
	}

	fx.clock.Advance(11 * time.Minute)
	res, err := fx.engine.Ingest(ctx, lossObs(100))
	require.NoError(t, err)

	assert.Equal(t, LevelLow, res.Level)
	assert.Equal(t, LevelHigh, res.PrevLevel)
	assert.False(t, res.Alerted)
}

func TestSessionDecayOnRead(t *testing.T) {
	fx := newEngineFixture(t)
	ctx := context.Background()

	res, err := fx.engine.Ingest(ctx, lossObs(500))
	require.NoError(t, err)
	assert.InDelta(t, 2.0, res.Score, 1e-9)

	fx.clock.Advance(11 * time.Minute)
	s, err := fx.engine.Session(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, MinScore, s.TiltScore)
	assert.Equal(t, LevelLow, s.RiskLevel)
}

func TestSessionNotFound(t *testing.T) {
	fx := newEngineFixture(t)
	_, err := fx.engine.Session(context.Background(), "sess_missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestConcurrentIngestStaysInBounds(t *testing.T) {
	fx := newEngineFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := fx.engine.Ingest(ctx, lossObs(100))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	sessions, err := fx.store.List(ctx, SessionFilter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	s := sessions[0]
	assert.Equal(t, int64(50), s.Interactions)
	assert.Equal(t, MaxScore, s.TiltScore)
	assert.Equal(t, LevelCritical, s.RiskLevel)
}
