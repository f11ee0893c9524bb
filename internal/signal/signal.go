// Package signal classifies raw behavioral observations into typed tilt
// signals. Classification is a pure function of the observation plus a
// static rule table; an observation that matches no rule is simply
// discarded by the caller.
package signal

import (
	"time"
)

// Kind identifies the type of a classified signal.
type Kind string

const (
	KindRapidClicking   Kind = "rapid_clicking"
	KindFranticTyping   Kind = "frantic_typing"
	KindLossDetected    Kind = "loss_detected"
	KindWinDetected     Kind = "win_detected"
	KindBetEscalation   Kind = "bet_escalation"
	KindExtendedSession Kind = "extended_session"
)

// Known reports whether k is a recognized signal kind.
func Known(k Kind) bool {
	switch k {
	case KindRapidClicking, KindFranticTyping, KindLossDetected,
		KindWinDetected, KindBetEscalation, KindExtendedSession:
		return true
	}
	return false
}

// Signal is a single classified behavioral observation. Immutable once
// created; owned by the session that recorded it.
type Signal struct {
	Kind      Kind      `json:"kind"`
	Intensity float64   `json:"intensity"` // meaning depends on Kind (click count, dollars, ratio, minutes)
	At        time.Time `json:"at"`
}

// Observation is the loosely-typed payload pushed by monitors (browser
// extension content scripts, webhook ingesters). Zero values mean "not
// observed"; the classifier inspects whichever fields are populated.
type Observation struct {
	UserID   string `json:"userId"`
	Platform string `json:"platform"`

	// At is when the observation was made. Zero means "now".
	At time.Time `json:"at,omitempty"`

	// Clicks within ClickWindowMs (rolling window maintained by the monitor).
	Clicks        int   `json:"clicks,omitempty"`
	ClickWindowMs int64 `json:"clickWindowMs,omitempty"`

	// SessionMinutes is how long the monitored session has been open.
	SessionMinutes float64 `json:"sessionMinutes,omitempty"`

	// BalanceDelta is the observed balance change in dollars; negative = loss.
	BalanceDeltaSet bool    `json:"balanceDeltaSet,omitempty"`
	BalanceDelta    float64 `json:"balanceDelta,omitempty"`

	// Bet amounts for escalation detection.
	CurrentBet  float64 `json:"currentBet,omitempty"`
	PreviousBet float64 `json:"previousBet,omitempty"`

	// Kind/Intensity carry an observation the monitor already classified
	// itself (the extension emits frantic_typing this way).
	Kind      Kind    `json:"kind,omitempty"`
	Intensity float64 `json:"intensity,omitempty"`
}

// Classification thresholds.
const (
	rapidClickThreshold = 10   // clicks within the click window
	rapidClickWindowMs  = 1000 // rolling window the click count refers to
	extendedSessionMin  = 60.0 // minutes before a session counts as extended
	betEscalationRatio  = 2.0  // current/previous bet ratio that counts as escalation
)

// Rule matches an observation and produces a signal, or nil.
type Rule interface {
	Name() string
	Match(obs *Observation) *Signal
}

// Classifier applies an ordered rule table to observations.
// The first matching rule wins; at most one signal per observation.
type Classifier struct {
	rules []Rule
}

// NewClassifier creates a classifier with the given rules.
func NewClassifier(rules ...Rule) *Classifier {
	return &Classifier{rules: rules}
}

// Default creates a classifier with the built-in rule table.
func Default() *Classifier {
	return NewClassifier(DefaultRules()...)
}

// Classify maps an observation to a signal. Returns (nil, false) when no
// rule matches — not an error, there is simply nothing to record.
func (c *Classifier) Classify(obs *Observation) (*Signal, bool) {
	for _, rule := range c.rules {
		if sig := rule.Match(obs); sig != nil {
			if sig.At.IsZero() {
				sig.At = obs.At
			}
			if sig.At.IsZero() {
				sig.At = time.Now()
			}
			return sig, true
		}
	}
	return nil, false
}

// DefaultRules returns the built-in classification rules, in match order.
func DefaultRules() []Rule {
	return []Rule{
		&PreclassifiedRule{},
		&RapidClickingRule{},
		&ExtendedSessionRule{},
		&BalanceDeltaRule{},
		&BetEscalationRule{},
	}
}

// ---------------------------------------------------------------------------
// PreclassifiedRule: monitor supplied its own kind (e.g. frantic_typing)
// ---------------------------------------------------------------------------

type PreclassifiedRule struct{}

func (r *PreclassifiedRule) Name() string { return "preclassified" }

func (r *PreclassifiedRule) Match(obs *Observation) *Signal {
	if obs.Kind == "" || !Known(obs.Kind) {
		return nil
	}
	return &Signal{Kind: obs.Kind, Intensity: obs.Intensity, At: obs.At}
}

// ---------------------------------------------------------------------------
// RapidClickingRule: >10 clicks within a 1-second rolling window
// ---------------------------------------------------------------------------

type RapidClickingRule struct{}

func (r *RapidClickingRule) Name() string { return "rapid_clicking" }

func (r *RapidClickingRule) Match(obs *Observation) *Signal {
	if obs.Clicks <= rapidClickThreshold {
		return nil
	}
	// Only trust click counts measured over a window at most as long as the
	// rule's reference window; a count over 30s is not a click burst.
	if obs.ClickWindowMs > rapidClickWindowMs {
		return nil
	}
	return &Signal{Kind: KindRapidClicking, Intensity: float64(obs.Clicks), At: obs.At}
}

// ---------------------------------------------------------------------------
// ExtendedSessionRule: session open more than 60 minutes
// ---------------------------------------------------------------------------

type ExtendedSessionRule struct{}

func (r *ExtendedSessionRule) Name() string { return "extended_session" }

func (r *ExtendedSessionRule) Match(obs *Observation) *Signal {
	if obs.SessionMinutes <= extendedSessionMin {
		return nil
	}
	return &Signal{Kind: KindExtendedSession, Intensity: obs.SessionMinutes, At: obs.At}
}

// ---------------------------------------------------------------------------
// BalanceDeltaRule: negative delta → loss, positive delta → win
// ---------------------------------------------------------------------------

type BalanceDeltaRule struct{}

func (r *BalanceDeltaRule) Name() string { return "balance_delta" }

func (r *BalanceDeltaRule) Match(obs *Observation) *Signal {
	if !obs.BalanceDeltaSet || obs.BalanceDelta == 0 {
		return nil
	}
	if obs.BalanceDelta < 0 {
		return &Signal{Kind: KindLossDetected, Intensity: -obs.BalanceDelta, At: obs.At}
	}
	return &Signal{Kind: KindWinDetected, Intensity: obs.BalanceDelta, At: obs.At}
}

// ---------------------------------------------------------------------------
// BetEscalationRule: current bet at least 2x the previous bet
// ---------------------------------------------------------------------------

type BetEscalationRule struct{}

func (r *BetEscalationRule) Name() string { return "bet_escalation" }

func (r *BetEscalationRule) Match(obs *Observation) *Signal {
	if obs.PreviousBet <= 0 || obs.CurrentBet <= 0 {
		return nil
	}
	ratio := obs.CurrentBet / obs.PreviousBet
	if ratio < betEscalationRatio {
		return nil
	}
	return &Signal{Kind: KindBetEscalation, Intensity: ratio, At: obs.At}
}
