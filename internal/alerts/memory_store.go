package alerts

import (
	"context"
	"sync"
)

// maxPerSession caps retained history per session so long-lived sessions
// cannot grow the log without bound. Oldest entries are dropped first.
const maxPerSession = 500

// MemoryStore is an in-memory append-only alert log for development and tests.
type MemoryStore struct {
	mu        sync.RWMutex
	alerts    []*Alert
	bySession map[string][]*Alert
}

// NewMemoryStore creates an empty in-memory alert store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bySession: make(map[string][]*Alert),
	}
}

func (s *MemoryStore) Record(_ context.Context, alert *Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *alert
	s.alerts = append(s.alerts, &cp)

	sess := append(s.bySession[alert.SessionID], &cp)
	if len(sess) > maxPerSession {
		sess = sess[len(sess)-maxPerSession:]
	}
	s.bySession[alert.SessionID] = sess
	return nil
}

func (s *MemoryStore) List(_ context.Context, f Filter) ([]*Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Alert
	// Newest first.
	for i := len(s.alerts) - 1; i >= 0; i-- {
		a := s.alerts[i]
		if f.SessionID != "" && a.SessionID != f.SessionID {
			continue
		}
		if f.UserID != "" && a.UserID != f.UserID {
			continue
		}
		if f.Platform != "" && a.Platform != f.Platform {
			continue
		}
		if f.Level != "" && a.Level != f.Level {
			continue
		}
		if !f.Since.IsZero() && a.At.Before(f.Since) {
			continue
		}
		cp := *a
		out = append(out, &cp)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) LastForSession(_ context.Context, sessionID string) (*Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess := s.bySession[sessionID]
	if len(sess) == 0 {
		return nil, ErrAlertNotFound
	}
	cp := *sess[len(sess)-1]
	return &cp, nil
}

// DropSession releases history for an evicted session. The flat log keeps
// its entries; only the per-session index is released.
func (s *MemoryStore) DropSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bySession, sessionID)
}
