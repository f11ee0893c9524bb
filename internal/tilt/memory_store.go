package tilt

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the in-memory session store. Sessions are ephemeral by
// design — only the alert log and daily aggregates outlive a process — so
// this is the production store, not just a test double.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session // by session ID
	active   map[string]string   // userID|platform -> session ID
}

// NewMemoryStore creates an empty session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		active:   make(map[string]string),
	}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess.Clone(), nil
}

func (s *MemoryStore) Active(_ context.Context, userID, platform string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.active[lockKey(userID, platform)]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.sessions[id].Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess.Clone()
	s.active[lockKey(sess.UserID, sess.Platform)] = sess.ID
	return nil
}

func (s *MemoryStore) List(_ context.Context, f SessionFilter) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Session
	for _, sess := range s.sessions {
		if f.UserID != "" && sess.UserID != f.UserID {
			continue
		}
		if f.Platform != "" && sess.Platform != f.Platform {
			continue
		}
		if f.MinLevel != "" && f.MinLevel.Above(sess.RiskLevel) {
			continue
		}
		out = append(out, sess.Clone())
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	key := lockKey(sess.UserID, sess.Platform)
	if s.active[key] == id {
		delete(s.active, key)
	}
	return nil
}

func (s *MemoryStore) IdleSince(_ context.Context, cutoff time.Time) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Session
	for _, sess := range s.sessions {
		if sess.LastUpdateTime.Before(cutoff) {
			out = append(out, sess.Clone())
		}
	}
	return out, nil
}
