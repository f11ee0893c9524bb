package tilt

import (
	"math"
	"time"

	"github.com/jmenichole/tiltcheck/internal/signal"
)

// DefaultSignalWindow is how long a signal's weight stays in the score
// before decaying out.
const DefaultSignalWindow = 10 * time.Minute

// Per-signal weight caps and scale factors. Intensity units differ per
// kind (clicks, dollars, a bet ratio, minutes), so each kind has its own
// mapping into score points.
const (
	rapidClickFactor = 0.1   // points per click in the burst
	franticFactor    = 0.05  // points per keypress in the burst
	lossDollarScale  = 100.0 // dollars lost per score point
	lossWeightCap    = 2.0
	winDollarScale   = 200.0 // dollars won per point of relief
	betWeightCap     = 3.0   // bet ratio contributes at most this
	extendedPerHour  = 1.0   // points per hour past the first
)

// weightFor maps a classified signal to its score contribution. Wins
// contribute negative weight (relief); everything else is non-negative.
func weightFor(sig *signal.Signal) float64 {
	switch sig.Kind {
	case signal.KindRapidClicking:
		return sig.Intensity * rapidClickFactor
	case signal.KindFranticTyping:
		return sig.Intensity * franticFactor
	case signal.KindLossDetected:
		return math.Min(sig.Intensity/lossDollarScale, lossWeightCap)
	case signal.KindWinDetected:
		return -sig.Intensity / winDollarScale
	case signal.KindBetEscalation:
		return math.Min(sig.Intensity, betWeightCap)
	case signal.KindExtendedSession:
		return sig.Intensity / 60.0 * extendedPerHour
	}
	return 0
}

func clamp(score float64) float64 {
	return math.Max(MinScore, math.Min(MaxScore, score))
}

// windowEntry records one signal's weight so it can be subtracted when it
// ages out of the window.
type windowEntry struct {
	at     time.Time
	weight float64
}

// signalWindow tracks the weights contributed within the rolling window.
// Entries are kept in arrival order; eviction pops from the front. Not
// safe for concurrent use — the engine serializes access per session.
type signalWindow struct {
	span    time.Duration
	entries []windowEntry
}

func newSignalWindow(span time.Duration) *signalWindow {
	if span <= 0 {
		span = DefaultSignalWindow
	}
	return &signalWindow{span: span}
}

// add records a weight at the given time.
func (w *signalWindow) add(at time.Time, weight float64) {
	w.entries = append(w.entries, windowEntry{at: at, weight: weight})
}

// prune evicts entries older than the window relative to now and returns
// the sum of the evicted weights.
func (w *signalWindow) prune(now time.Time) float64 {
	cutoff := now.Add(-w.span)
	var expired float64
	i := 0
	for ; i < len(w.entries); i++ {
		if !w.entries[i].at.Before(cutoff) {
			break
		}
		expired += w.entries[i].weight
	}
	if i > 0 {
		w.entries = append(w.entries[:0], w.entries[i:]...)
	}
	return expired
}

func (w *signalWindow) len() int { return len(w.entries) }

// applySignal advances the session score: expired weights decay out first,
// then the new signal's weight lands, with clamping after each step so the
// score never leaves [0, 10].
func applySignal(s *Session, w *signalWindow, sig *signal.Signal, now time.Time) float64 {
	expired := w.prune(now)
	s.TiltScore = clamp(s.TiltScore - expired)

	weight := weightFor(sig)
	s.TiltScore = clamp(s.TiltScore + weight)
	w.add(now, weight)

	return weight
}

// decay advances the session score without a new signal, used when the
// engine touches a session outside of ingest (reads, sweeps).
func decay(s *Session, w *signalWindow, now time.Time) {
	expired := w.prune(now)
	s.TiltScore = clamp(s.TiltScore - expired)
}
