package tilt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepEvictsIdleSessions(t *testing.T) {
	fx := newEngineFixture(t)
	ctx := context.Background()

	res, err := fx.engine.Ingest(ctx, lossObs(100))
	require.NoError(t, err)

	sw := NewSweeper(fx.engine, 30*time.Minute, time.Minute, fx.engine.logger)

	var folded []*Session
	sw.OnEvict = func(_ context.Context, s *Session) {
		folded = append(folded, s)
	}

	// Not idle yet.
	assert.Equal(t, 0, sw.Sweep(ctx))

	fx.clock.Advance(31 * time.Minute)
	assert.Equal(t, 1, sw.Sweep(ctx))

	_, err = fx.store.Get(ctx, res.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	require.Len(t, folded, 1)
	assert.Equal(t, res.SessionID, folded[0].ID)
}

func TestSweepSparesRecentlyActiveSessions(t *testing.T) {
	fx := newEngineFixture(t)
	ctx := context.Background()

	_, err := fx.engine.Ingest(ctx, lossObs(100))
	require.NoError(t, err)

	fx.clock.Advance(29 * time.Minute)
	// Fresh observation resets the idle clock.
	res, err := fx.engine.Ingest(ctx, lossObs(100))
	require.NoError(t, err)

	fx.clock.Advance(2 * time.Minute)
	sw := NewSweeper(fx.engine, 30*time.Minute, time.Minute, fx.engine.logger)
	assert.Equal(t, 0, sw.Sweep(ctx))

	_, err = fx.store.Get(ctx, res.SessionID)
	assert.NoError(t, err)
}

func TestSweeperStartStop(t *testing.T) {
	fx := newEngineFixture(t)
	sw := NewSweeper(fx.engine, 0, 0, fx.engine.logger)
	assert.Equal(t, DefaultSessionTTL, sw.ttl)
	assert.Equal(t, DefaultSweepInterval, sw.interval)

	sw.Start(context.Background())
	sw.Start(context.Background()) // second start is a no-op
	sw.Stop()
	sw.Stop() // second stop is a no-op
}
