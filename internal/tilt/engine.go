package tilt

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jmenichole/tiltcheck/internal/alerts"
	"github.com/jmenichole/tiltcheck/internal/idgen"
	"github.com/jmenichole/tiltcheck/internal/retry"
	"github.com/jmenichole/tiltcheck/internal/signal"
	"github.com/jmenichole/tiltcheck/internal/syncutil"
	"github.com/jmenichole/tiltcheck/internal/traces"
)

// Broadcaster pushes live updates to connected dashboard clients.
// Implementations must not block; the engine calls these inline.
type Broadcaster interface {
	ScoreUpdated(s *Session)
	AlertTriggered(a *alerts.Alert)
}

// IngestResult reports what one observation did to its session.
type IngestResult struct {
	Matched   bool           `json:"matched"`
	SessionID string         `json:"sessionId,omitempty"`
	Signal    *signal.Signal `json:"signal,omitempty"`
	Score     float64        `json:"tiltScore,omitempty"`
	Level     Level          `json:"riskLevel,omitempty"`
	PrevLevel Level          `json:"prevLevel,omitempty"`
	Alerted   bool           `json:"alerted,omitempty"`
	AlertID   string         `json:"alertId,omitempty"`
}

// EngineConfig tunes the engine. Zero values fall back to defaults.
type EngineConfig struct {
	// SignalWindow is how long a signal's weight persists in the score.
	SignalWindow time.Duration

	// Classifier overrides the default rule table.
	Classifier *signal.Classifier

	// Broadcaster receives live score and alert updates. May be nil.
	Broadcaster Broadcaster

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Engine runs the ingest pipeline: classify an observation, fold the
// resulting signal into the session's decaying score, re-evaluate the risk
// level, and dispatch an alert on qualifying upward transitions.
//
// Work for a given user/platform pair is serialized through a sharded lock
// so concurrent observations for one session apply one at a time; sessions
// for different users proceed in parallel.
type Engine struct {
	store      Store
	alertStore alerts.Store
	dispatcher *alerts.Dispatcher
	configs    alerts.ConfigSource
	classifier *signal.Classifier
	broadcast  Broadcaster
	logger     *slog.Logger

	window time.Duration
	now    func() time.Time
	locks  *syncutil.ContextShardedMutex

	mu      sync.Mutex
	windows map[string]*signalWindow
}

// NewEngine creates the scoring engine.
func NewEngine(store Store, alertStore alerts.Store, dispatcher *alerts.Dispatcher,
	configs alerts.ConfigSource, logger *slog.Logger, cfg EngineConfig) *Engine {

	e := &Engine{
		store:      store,
		alertStore: alertStore,
		dispatcher: dispatcher,
		configs:    configs,
		classifier: cfg.Classifier,
		broadcast:  cfg.Broadcaster,
		logger:     logger,
		window:     cfg.SignalWindow,
		now:        cfg.Now,
		locks:      syncutil.NewContextShardedMutex(),
		windows:    make(map[string]*signalWindow),
	}
	if e.classifier == nil {
		e.classifier = signal.Default()
	}
	if e.window <= 0 {
		e.window = DefaultSignalWindow
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

func lockKey(userID, platform string) string {
	return userID + "|" + platform
}

// Ingest processes one observation end to end. An observation that matches
// no classification rule is discarded without touching any session.
func (e *Engine) Ingest(ctx context.Context, obs *signal.Observation) (*IngestResult, error) {
	ctx, span := traces.StartSpan(ctx, "tilt.ingest",
		traces.UserID(obs.UserID), traces.Platform(obs.Platform))
	defer span.End()

	sig, ok := e.classifier.Classify(obs)
	if !ok {
		observationsDiscarded.Inc()
		return &IngestResult{Matched: false}, nil
	}
	signalsClassified.WithLabelValues(string(sig.Kind)).Inc()

	unlock, err := e.locks.LockContext(ctx, lockKey(obs.UserID, obs.Platform))
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := e.now()
	s, err := e.sessionFor(ctx, obs.UserID, obs.Platform, now)
	if err != nil {
		return nil, err
	}

	w := e.windowFor(s.ID)
	applySignal(s, w, sig, now)
	scoreObserved.Observe(s.TiltScore)
	if s.TiltScore > s.PeakScore {
		s.PeakScore = s.TiltScore
	}

	prev := s.RiskLevel
	next := LevelForScore(s.TiltScore)
	s.RiskLevel = next
	s.LastUpdateTime = now
	s.Interactions++
	s.SignalCounts[sig.Kind]++

	result := &IngestResult{
		Matched:   true,
		SessionID: s.ID,
		Signal:    sig,
		Score:     s.TiltScore,
		Level:     next,
		PrevLevel: prev,
	}

	cfg := e.configs.ConfigFor(obs.UserID)
	var alert *alerts.Alert
	if shouldAlert(s, prev, next, cfg, now) {
		alert = &alerts.Alert{
			ID:        idgen.WithPrefix("alr_"),
			SessionID: s.ID,
			UserID:    s.UserID,
			Platform:  s.Platform,
			Level:     string(next),
			Score:     s.TiltScore,
			Message:   alertMessage(next),
			At:        now,
		}
		s.LastAlertAt = now
		result.Alerted = true
		result.AlertID = alert.ID
	}

	if err := e.store.Save(ctx, s); err != nil {
		return nil, err
	}
	span.SetAttributes(traces.SessionID(s.ID), traces.RiskLevel(string(next)))

	if e.broadcast != nil {
		e.broadcast.ScoreUpdated(s.Clone())
	}
	if alert != nil {
		alerts.CountTriggered(alert.Level)
		// Delivery is best-effort and must not hold the session lock or the
		// caller's request; record the outcome whenever it completes.
		go e.deliver(context.WithoutCancel(ctx), alert, cfg)
	}

	return result, nil
}

// sessionFor loads the live session for a user/platform pair, creating one
// on first observation. Caller must hold the pair's lock.
func (e *Engine) sessionFor(ctx context.Context, userID, platform string, now time.Time) (*Session, error) {
	s, err := e.store.Active(ctx, userID, platform)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, ErrSessionNotFound) {
		return nil, err
	}

	s = &Session{
		ID:             idgen.WithPrefix("sess_"),
		UserID:         userID,
		Platform:       platform,
		StartTime:      now,
		LastUpdateTime: now,
		RiskLevel:      LevelLow,
		SignalCounts:   make(map[signal.Kind]int),
	}
	activeSessions.Inc()
	e.logger.Info("session started", "session", s.ID, "user", userID, "platform", platform)
	return s, nil
}

// Session returns a point-in-time view of one session with decay applied,
// so a dashboard read minutes after the last signal sees the cooled score.
// Decay on read never triggers alerts.
func (e *Engine) Session(ctx context.Context, id string) (*Session, error) {
	snap, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock, err := e.locks.LockContext(ctx, lockKey(snap.UserID, snap.Platform))
	if err != nil {
		return nil, err
	}
	defer unlock()

	s, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	decay(s, e.windowFor(s.ID), e.now())
	s.RiskLevel = LevelForScore(s.TiltScore)
	if err := e.store.Save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Sessions lists sessions matching the filter. Scores are as of each
// session's last update; use Session for a decay-adjusted view.
func (e *Engine) Sessions(ctx context.Context, f SessionFilter) ([]*Session, error) {
	return e.store.List(ctx, f)
}

// evict removes one idle session. Caller passes a snapshot from IdleSince;
// the live state is re-checked under the lock so a session that received an
// observation mid-sweep survives. Returns the final state when evicted.
func (e *Engine) evict(ctx context.Context, snap *Session, cutoff time.Time) (*Session, bool, error) {
	unlock, err := e.locks.LockContext(ctx, lockKey(snap.UserID, snap.Platform))
	if err != nil {
		return nil, false, err
	}
	defer unlock()

	s, err := e.store.Get(ctx, snap.ID)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if s.LastUpdateTime.After(cutoff) {
		return nil, false, nil
	}

	if err := e.store.Delete(ctx, s.ID); err != nil {
		return nil, false, err
	}
	e.dropWindow(s.ID)
	activeSessions.Dec()
	sessionsEvicted.Inc()
	return s, true, nil
}

func (e *Engine) windowFor(sessionID string) *signalWindow {
	e.mu.Lock()
	defer e.mu.Unlock()
	w, ok := e.windows[sessionID]
	if !ok {
		w = newSignalWindow(e.window)
		e.windows[sessionID] = w
	}
	return w
}

func (e *Engine) dropWindow(sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.windows, sessionID)
}

// deliver dispatches an alert and records it with its delivery outcomes.
func (e *Engine) deliver(ctx context.Context, alert *alerts.Alert, cfg alerts.Config) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	alert.DispatchResults = e.dispatcher.Dispatch(ctx, alert, cfg)

	// The alert log is the audit trail; retry transient store failures.
	err := retry.Do(ctx, 3, 200*time.Millisecond, func() error {
		return e.alertStore.Record(ctx, alert)
	})
	if err != nil {
		e.logger.Error("failed to record alert", "alert", alert.ID, "error", err)
	}
	if e.broadcast != nil {
		e.broadcast.AlertTriggered(alert)
	}
}
