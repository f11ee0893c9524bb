package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyRapidClicking(t *testing.T) {
	c := Default()

	sig, ok := c.Classify(&Observation{
		UserID: "u1", Platform: "stake.us",
		Clicks: 14, ClickWindowMs: 1000,
	})
	require.True(t, ok)
	assert.Equal(t, KindRapidClicking, sig.Kind)
	assert.Equal(t, 14.0, sig.Intensity)

	// At or under the threshold is normal clicking.
	_, ok = c.Classify(&Observation{
		UserID: "u1", Platform: "stake.us",
		Clicks: 10, ClickWindowMs: 1000,
	})
	assert.False(t, ok)

	// A high count over a long window is not a burst.
	_, ok = c.Classify(&Observation{
		UserID: "u1", Platform: "stake.us",
		Clicks: 50, ClickWindowMs: 30000,
	})
	assert.False(t, ok)
}

func TestClassifyExtendedSession(t *testing.T) {
	c := Default()

	sig, ok := c.Classify(&Observation{
		UserID: "u1", Platform: "stake.us", SessionMinutes: 95,
	})
	require.True(t, ok)
	assert.Equal(t, KindExtendedSession, sig.Kind)
	assert.Equal(t, 95.0, sig.Intensity)

	_, ok = c.Classify(&Observation{
		UserID: "u1", Platform: "stake.us", SessionMinutes: 45,
	})
	assert.False(t, ok)
}

func TestClassifyBalanceDelta(t *testing.T) {
	c := Default()

	sig, ok := c.Classify(&Observation{
		UserID: "u1", Platform: "stake.us",
		BalanceDeltaSet: true, BalanceDelta: -250,
	})
	require.True(t, ok)
	assert.Equal(t, KindLossDetected, sig.Kind)
	assert.Equal(t, 250.0, sig.Intensity)

	sig, ok = c.Classify(&Observation{
		UserID: "u1", Platform: "stake.us",
		BalanceDeltaSet: true, BalanceDelta: 80,
	})
	require.True(t, ok)
	assert.Equal(t, KindWinDetected, sig.Kind)
	assert.Equal(t, 80.0, sig.Intensity)

	// A zero delta is not a result.
	_, ok = c.Classify(&Observation{
		UserID: "u1", Platform: "stake.us",
		BalanceDeltaSet: true, BalanceDelta: 0,
	})
	assert.False(t, ok)
}

func TestClassifyBetEscalation(t *testing.T) {
	c := Default()

	sig, ok := c.Classify(&Observation{
		UserID: "u1", Platform: "stake.us",
		PreviousBet: 10, CurrentBet: 25,
	})
	require.True(t, ok)
	assert.Equal(t, KindBetEscalation, sig.Kind)
	assert.InDelta(t, 2.5, sig.Intensity, 1e-9)

	_, ok = c.Classify(&Observation{
		UserID: "u1", Platform: "stake.us",
		PreviousBet: 10, CurrentBet: 15,
	})
	assert.False(t, ok)
}

func TestClassifyPreclassifiedWins(t *testing.T) {
	c := Default()

	// A monitor-supplied kind takes precedence over derived rules.
	sig, ok := c.Classify(&Observation{
		UserID: "u1", Platform: "stake.us",
		Kind: KindFranticTyping, Intensity: 42,
		Clicks: 20, ClickWindowMs: 500,
	})
	require.True(t, ok)
	assert.Equal(t, KindFranticTyping, sig.Kind)
	assert.Equal(t, 42.0, sig.Intensity)
}

func TestClassifyUnknownKindFallsThrough(t *testing.T) {
	c := Default()

	// An unrecognized kind is ignored; the other fields still classify.
	sig, ok := c.Classify(&Observation{
		UserID: "u1", Platform: "stake.us",
		Kind: "rage_quit", Clicks: 20, ClickWindowMs: 500,
	})
	require.True(t, ok)
	assert.Equal(t, KindRapidClicking, sig.Kind)
}

func TestClassifyNothingMatches(t *testing.T) {
	c := Default()
	_, ok := c.Classify(&Observation{UserID: "u1", Platform: "stake.us"})
	assert.False(t, ok)
}

func TestClassifyStampsTime(t *testing.T) {
	c := Default()

	at := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	sig, ok := c.Classify(&Observation{
		UserID: "u1", Platform: "stake.us",
		At: at, SessionMinutes: 70,
	})
	require.True(t, ok)
	assert.True(t, sig.At.Equal(at))

	sig, ok = c.Classify(&Observation{
		UserID: "u1", Platform: "stake.us", SessionMinutes: 70,
	})
	require.True(t, ok)
	assert.False(t, sig.At.IsZero())
}

func TestKnown(t *testing.T) {
	assert.True(t, Known(KindLossDetected))
	assert.False(t, Known("rage_quit"))
	assert.False(t, Known(""))
}
